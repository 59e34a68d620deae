package ocpp

import "fmt"

// UnknownActionError is returned by an inbound adapter when a Call names
// an action outside the version's table. The server replies with a
// NotImplemented CallError.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Action)
}
