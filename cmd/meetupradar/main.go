package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meetupradar/internal/app"
	"meetupradar/internal/config"
	"meetupradar/internal/discord"
	"meetupradar/internal/logger"
	"meetupradar/internal/registry"
	"meetupradar/internal/schedule"
	"meetupradar/internal/scrape"
	"meetupradar/internal/status"
)

var (
	cfgPath string
	runNow  bool
)

var rootCmd = &cobra.Command{
	Use:   "meetupradar",
	Short: "Scrapes local gatherings and posts them to a Discord channel",
	Long: `meetupradar scrapes Meetup search results for configured locations and
search terms on a weekly schedule, deduplicates the discovered events, and
posts each one to a Discord channel with an interactive "Create event"
control backed by a durable action store.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "path to the configuration file")
	rootCmd.Flags().BoolVar(&runNow, "now", false, "post events immediately and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.New("meetupradar")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		return err
	}

	store, err := registry.Open(cfg.Database, log)
	if err != nil {
		log.Error("open action registry", slog.Any("err", err))
		return err
	}

	pub, err := discord.New(cfg.Token, cfg.ChannelID, cfg.TZ(), store, log)
	if err != nil {
		log.Error("init discord publisher", slog.Any("err", err))
		return err
	}
	if err := pub.Open(); err != nil {
		log.Error("connect to discord", slog.Any("err", err))
		return err
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := pub.Rearm(ctx); err != nil {
		log.Error("re-arm pending actions", slog.Any("err", err))
		return err
	}

	if cfg.StatusListen != "" {
		statusSrv := status.New(cfg.StatusListen, store, log)
		go statusSrv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := statusSrv.Shutdown(shutdownCtx); err != nil {
				log.Error("status server shutdown", slog.Any("err", err))
			}
		}()
	}

	application := app.New(cfg, log, scrape.NewClient(log), store, pub)

	if runNow {
		log.Info("immediate mode, running one cycle")
		application.RunCycle(ctx)
		return nil
	}

	hour, minute := cfg.Clock()
	spec := schedule.Spec{
		Weekday: cfg.Weekday(),
		Hour:    hour,
		Minute:  minute,
		TZ:      cfg.TZ(),
	}
	return schedule.Run(ctx, log, spec, application.RunCycle)
}
