package command

import (
	"fmt"
)

type ErrorKind int

const (
	KindNotConnected ErrorKind = iota
	KindSendFailed
	KindTimeout
	KindInvalidResponse
	KindCallError
	KindUnsupportedVersion
)

// CommandError is the failure surface of the dispatcher. CallError carries
// the code and description reported by the charge point verbatim.
type CommandError struct {
	Kind          ErrorKind
	ChargePointID string
	Code          string
	Description   string
	Detail        string
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case KindNotConnected:
		return fmt.Sprintf("charge point %s not connected", e.ChargePointID)
	case KindSendFailed:
		return fmt.Sprintf("send to %s failed: %s", e.ChargePointID, e.Detail)
	case KindTimeout:
		return fmt.Sprintf("command to %s timed out", e.ChargePointID)
	case KindInvalidResponse:
		return fmt.Sprintf("invalid response from %s: %s", e.ChargePointID, e.Detail)
	case KindCallError:
		return fmt.Sprintf("call error from %s: %s (%s)", e.ChargePointID, e.Code, e.Description)
	case KindUnsupportedVersion:
		return e.Detail
	default:
		return "command error"
	}
}

func notConnected(chargePointID string) *CommandError {
	return &CommandError{Kind: KindNotConnected, ChargePointID: chargePointID}
}

func timeoutError(chargePointID string) *CommandError {
	return &CommandError{Kind: KindTimeout, ChargePointID: chargePointID}
}

func invalidResponse(chargePointID, detail string) *CommandError {
	return &CommandError{Kind: KindInvalidResponse, ChargePointID: chargePointID, Detail: detail}
}

func callError(chargePointID, code, description string) *CommandError {
	return &CommandError{Kind: KindCallError, ChargePointID: chargePointID, Code: code, Description: description}
}

func unsupportedVersion(detail string) *CommandError {
	return &CommandError{Kind: KindUnsupportedVersion, Detail: detail}
}
