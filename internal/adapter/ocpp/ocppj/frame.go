// Package ocppj implements the OCPP-J wire framing shared by every
// protocol version: Call, CallResult and CallError envelopes.
package ocppj

import (
	"encoding/json"
	"fmt"
)

// OCPP-J message type identifiers.
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Frame is one OCPP-J envelope. Exactly one of the three kinds is set,
// discriminated by Type. Payloads are kept as raw JSON so unknown fields
// survive a parse/serialize round trip.
type Frame struct {
	Type     int
	UniqueID string

	// Call
	Action  string
	Payload json.RawMessage

	// CallError
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// FrameError describes why a text frame could not be parsed.
type FrameError struct {
	Kind        FrameErrorKind
	MessageType int    // UnknownMessageType
	Field       string // FieldTypeMismatch
	Expected    int    // MissingFields
	Got         int    // MissingFields
}

type FrameErrorKind int

const (
	ErrInvalidJson FrameErrorKind = iota
	ErrEmptyArray
	ErrInvalidMessageType
	ErrUnknownMessageType
	ErrMissingFields
	ErrFieldTypeMismatch
)

func (e *FrameError) Error() string {
	switch e.Kind {
	case ErrInvalidJson:
		return "invalid json"
	case ErrEmptyArray:
		return "empty array"
	case ErrInvalidMessageType:
		return "message type is not a number"
	case ErrUnknownMessageType:
		return fmt.Sprintf("unknown message type %d", e.MessageType)
	case ErrMissingFields:
		return fmt.Sprintf("expected %d fields, got %d", e.Expected, e.Got)
	case ErrFieldTypeMismatch:
		return fmt.Sprintf("field type mismatch: %s", e.Field)
	default:
		return "frame error"
	}
}

var emptyObject = json.RawMessage(`{}`)

// NewCall builds a Call frame with the given payload object.
func NewCall(uniqueID, action string, payload json.RawMessage) Frame {
	if len(payload) == 0 {
		payload = emptyObject
	}
	return Frame{Type: MessageTypeCall, UniqueID: uniqueID, Action: action, Payload: payload}
}

// NewCallResult builds a CallResult frame.
func NewCallResult(uniqueID string, payload json.RawMessage) Frame {
	if len(payload) == 0 {
		payload = emptyObject
	}
	return Frame{Type: MessageTypeCallResult, UniqueID: uniqueID, Payload: payload}
}

// NewCallError builds a CallError frame with empty details.
func NewCallError(uniqueID, code, description string) Frame {
	return Frame{
		Type:             MessageTypeCallError,
		UniqueID:         uniqueID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     emptyObject,
	}
}

// Parse decodes an OCPP-J text frame.
func Parse(text []byte) (Frame, *FrameError) {
	var elems []json.RawMessage
	if err := json.Unmarshal(text, &elems); err != nil {
		return Frame{}, &FrameError{Kind: ErrInvalidJson}
	}
	if len(elems) == 0 {
		return Frame{}, &FrameError{Kind: ErrEmptyArray}
	}

	var msgType int
	if err := json.Unmarshal(elems[0], &msgType); err != nil {
		return Frame{}, &FrameError{Kind: ErrInvalidMessageType}
	}

	switch msgType {
	case MessageTypeCall:
		if len(elems) < 3 {
			return Frame{}, &FrameError{Kind: ErrMissingFields, Expected: 4, Got: len(elems)}
		}
		uniqueID, ferr := parseString(elems[1], "uniqueId")
		if ferr != nil {
			return Frame{}, ferr
		}
		action, ferr := parseString(elems[2], "action")
		if ferr != nil {
			return Frame{}, ferr
		}
		payload := emptyObject
		if len(elems) >= 4 {
			if ferr := requireObject(elems[3], "payload"); ferr != nil {
				return Frame{}, ferr
			}
			payload = elems[3]
		}
		return NewCall(uniqueID, action, payload), nil

	case MessageTypeCallResult:
		if len(elems) < 2 {
			return Frame{}, &FrameError{Kind: ErrMissingFields, Expected: 3, Got: len(elems)}
		}
		uniqueID, ferr := parseString(elems[1], "uniqueId")
		if ferr != nil {
			return Frame{}, ferr
		}
		payload := emptyObject
		if len(elems) >= 3 {
			if ferr := requireObject(elems[2], "payload"); ferr != nil {
				return Frame{}, ferr
			}
			payload = elems[2]
		}
		return NewCallResult(uniqueID, payload), nil

	case MessageTypeCallError:
		if len(elems) < 2 {
			return Frame{}, &FrameError{Kind: ErrMissingFields, Expected: 5, Got: len(elems)}
		}
		uniqueID, ferr := parseString(elems[1], "uniqueId")
		if ferr != nil {
			return Frame{}, ferr
		}
		code := "InternalError"
		if len(elems) >= 3 {
			if c, ferr := parseString(elems[2], "errorCode"); ferr == nil {
				code = c
			} else {
				return Frame{}, ferr
			}
		}
		description := ""
		if len(elems) >= 4 {
			d, ferr := parseString(elems[3], "errorDescription")
			if ferr != nil {
				return Frame{}, ferr
			}
			description = d
		}
		details := emptyObject
		if len(elems) >= 5 {
			if ferr := requireObject(elems[4], "errorDetails"); ferr != nil {
				return Frame{}, ferr
			}
			details = elems[4]
		}
		return Frame{
			Type:             MessageTypeCallError,
			UniqueID:         uniqueID,
			ErrorCode:        code,
			ErrorDescription: description,
			ErrorDetails:     details,
		}, nil

	default:
		return Frame{}, &FrameError{Kind: ErrUnknownMessageType, MessageType: msgType}
	}
}

// Serialize encodes a frame back to OCPP-J text. Payloads are emitted
// verbatim so fields the codec does not know about are preserved.
func Serialize(f Frame) ([]byte, error) {
	switch f.Type {
	case MessageTypeCall:
		return json.Marshal([]interface{}{f.Type, f.UniqueID, f.Action, rawOrEmpty(f.Payload)})
	case MessageTypeCallResult:
		return json.Marshal([]interface{}{f.Type, f.UniqueID, rawOrEmpty(f.Payload)})
	case MessageTypeCallError:
		return json.Marshal([]interface{}{f.Type, f.UniqueID, f.ErrorCode, f.ErrorDescription, rawOrEmpty(f.ErrorDetails)})
	default:
		return nil, fmt.Errorf("cannot serialize frame with message type %d", f.Type)
	}
}

// RecoverUniqueID extracts the uniqueId from an unparseable frame so a
// CallError reply can still be correlated. Returns "" when unrecoverable.
func RecoverUniqueID(text []byte) string {
	var elems []json.RawMessage
	if err := json.Unmarshal(text, &elems); err != nil || len(elems) < 2 {
		return ""
	}
	var id string
	if err := json.Unmarshal(elems[1], &id); err != nil {
		return ""
	}
	return id
}

func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyObject
	}
	return raw
}

func parseString(raw json.RawMessage, field string) (string, *FrameError) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &FrameError{Kind: ErrFieldTypeMismatch, Field: field}
	}
	return s, nil
}

func requireObject(raw json.RawMessage, field string) *FrameError {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &FrameError{Kind: ErrFieldTypeMismatch, Field: field}
	}
	return nil
}
