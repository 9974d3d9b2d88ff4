// Package operation enumerates the request types accepted by the API
// together with their per-type rules.
package operation

import "net/http"

// Kind identifies one of the supported operations.
type Kind int

const (
	// Login checks credentials and issues a session token.
	Login Kind = iota + 1
	// Register creates a new user.
	Register
	// SaveEvent stores an event for the session's user.
	SaveEvent
	// GetEvents lists the session user's events from today onwards.
	GetEvents
	// GetUsername returns the session user's login.
	GetUsername
)

// All lists every Kind in declaration order.
var All = []Kind{Login, Register, SaveEvent, GetEvents, GetUsername}

// Field names shared between request bodies and validation rules.
const (
	FieldType     = "type"
	FieldLogin    = "login"
	FieldPassword = "password"
	FieldName     = "name"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldDuration = "duration"
	FieldUserID   = "user_id"
)

// StatusInvalid is returned for malformed bodies, unknown types and
// requests that fail validation.
const StatusInvalid = http.StatusMethodNotAllowed

// Parse maps a wire tag to its Kind.
func Parse(tag string) (Kind, bool) {
	for _, k := range All {
		if k.String() == tag {
			return k, true
		}
	}
	return 0, false
}

// String returns the wire tag of k.
func (k Kind) String() string {
	switch k {
	case Login:
		return "login"
	case Register:
		return "register"
	case SaveEvent:
		return "save_event"
	case GetEvents:
		return "get_events"
	case GetUsername:
		return "get_username"
	default:
		return "unknown"
	}
}

// FailureStatus is the HTTP status written when a handler for k does not
// succeed.
func (k Kind) FailureStatus() int {
	switch k {
	case Login, GetUsername:
		return http.StatusNotFound
	case Register, SaveEvent, GetEvents:
		return http.StatusBadRequest
	default:
		return StatusInvalid
	}
}

// RequiresSession reports whether k acts on behalf of a logged-in user.
func (k Kind) RequiresSession() bool {
	switch k {
	case SaveEvent, GetEvents, GetUsername:
		return true
	default:
		return false
	}
}

// MandatoryFields lists the parameters that must be present and non-empty
// before a handler for k runs. For session operations it includes the
// injected user id.
func (k Kind) MandatoryFields() []string {
	switch k {
	case Login, Register:
		return []string{FieldLogin, FieldPassword}
	case SaveEvent:
		return []string{FieldName, FieldDate, FieldTime, FieldDuration, FieldUserID}
	case GetEvents, GetUsername:
		return []string{FieldUserID}
	default:
		return nil
	}
}
