package publish

import (
	"errors"
	"fmt"
)

// ErrPermission marks an external action rejected for missing privileges.
// The transport wraps the platform's permission error with it.
var ErrPermission = errors.New("missing permission to create events")

// Outcome is the resolved state transition after a control activation:
// whether the control set flips to its disabled "created" state, whether
// the registry record is consumed, and the private notice for the acting
// user. Disable and Consume are only ever set together, and only when the
// external action succeeded.
type Outcome struct {
	Disable bool
	Consume bool
	Reply   string
}

// ResolveTrigger maps (record found?, external action result) to the
// transition. Stale identifiers and failed actions leave the control
// clickable and the record pending so a later retry can succeed.
func ResolveTrigger(title string, found bool, actionErr error) Outcome {
	switch {
	case !found:
		return Outcome{Reply: "❌ This event action has expired and can no longer be used."}
	case errors.Is(actionErr, ErrPermission):
		return Outcome{Reply: "❌ I don't have permission to create events in this server. Please make sure I have the 'Manage Events' permission."}
	case actionErr != nil:
		return Outcome{Reply: "❌ Failed to create the event. Please try again later."}
	default:
		return Outcome{
			Disable: true,
			Consume: true,
			Reply:   fmt.Sprintf("✅ Created event: %s", title),
		}
	}
}
