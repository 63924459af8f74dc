package transport

import (
	"encoding/json"
	"fmt"
)

// Frame type tags, the first element of every JSON-array frame.
const (
	FrameEvent  = "EVENT"
	FrameReq    = "REQ"
	FrameClose  = "CLOSE"
	FrameAuth   = "AUTH"
	FrameOK     = "OK"
	FrameEOSE   = "EOSE"
	FrameClosed = "CLOSED"
	FrameNotice = "NOTICE"

	// FrameMalformed is not a wire frame type; Conn uses it to surface a
	// decode failure to the relay layer without closing the connection.
	FrameMalformed = "__malformed__"
)

// ClientFrame is a decoded client→relay message: EVENT, REQ, CLOSE, or
// AUTH (spec.md §6). Exactly the fields relevant to Type are populated.
type ClientFrame struct {
	Type      string
	Event     *Event
	SubID     string
	Filters   []Filter
	DecodeErr error
}

// DecodeClientFrame parses a raw JSON array frame into its typed form.
func DecodeClientFrame(raw []byte) (*ClientFrame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("transport: malformed frame: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("transport: empty frame")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return nil, fmt.Errorf("transport: frame type must be a string: %w", err)
	}

	switch tag {
	case FrameEvent:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: EVENT frame needs exactly 2 elements")
		}
		var evt Event
		if err := json.Unmarshal(parts[1], &evt); err != nil {
			return nil, fmt.Errorf("transport: decode EVENT payload: %w", err)
		}
		return &ClientFrame{Type: FrameEvent, Event: &evt}, nil

	case FrameReq:
		if len(parts) < 3 {
			return nil, fmt.Errorf("transport: REQ frame needs a subscription id and at least one filter")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("transport: decode REQ subscription id: %w", err)
		}
		filters := make([]Filter, 0, len(parts)-2)
		for _, raw := range parts[2:] {
			var f Filter
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("transport: decode REQ filter: %w", err)
			}
			filters = append(filters, f)
		}
		return &ClientFrame{Type: FrameReq, SubID: subID, Filters: filters}, nil

	case FrameClose:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: CLOSE frame needs exactly 2 elements")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("transport: decode CLOSE subscription id: %w", err)
		}
		return &ClientFrame{Type: FrameClose, SubID: subID}, nil

	case FrameAuth:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: AUTH frame needs exactly 2 elements")
		}
		var evt Event
		if err := json.Unmarshal(parts[1], &evt); err != nil {
			return nil, fmt.Errorf("transport: decode AUTH payload: %w", err)
		}
		return &ClientFrame{Type: FrameAuth, Event: &evt}, nil

	default:
		return nil, fmt.Errorf("transport: unknown client frame type %q", tag)
	}
}

// EncodeEventFrame builds a relay→client ["EVENT", subId, event] frame.
func EncodeEventFrame(subID string, e *Event) ([]byte, error) {
	return json.Marshal([]interface{}{FrameEvent, subID, e})
}

// EncodeOKFrame builds a relay→client ["OK", eventId, ok, message] frame.
func EncodeOKFrame(eventID string, ok bool, message string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameOK, eventID, ok, message})
}

// EncodeEOSEFrame builds a relay→client ["EOSE", subId] frame, marking
// the end of stored events for a subscription.
func EncodeEOSEFrame(subID string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameEOSE, subID})
}

// EncodeClosedFrame builds a relay→client ["CLOSED", subId, reason]
// frame.
func EncodeClosedFrame(subID, reason string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameClosed, subID, reason})
}

// EncodeNoticeFrame builds a relay→client ["NOTICE", text] frame. The
// relay sends one for each malformed client frame; events of kinds it
// has no rule for are admitted without a NOTICE.
func EncodeNoticeFrame(text string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameNotice, text})
}

// EncodeAuthChallengeFrame builds a relay→client ["AUTH", challenge]
// frame.
func EncodeAuthChallengeFrame(challenge string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameAuth, challenge})
}

// RelayFrame is a decoded relay→client message: EVENT, OK, EOSE, CLOSED,
// NOTICE, or AUTH. Exactly the fields relevant to Type are populated.
// A client (cmd/signer, or any future one) decodes the relay's side of
// the wire with this instead of DecodeClientFrame, which only
// understands the client→relay direction.
type RelayFrame struct {
	Type      string
	SubID     string
	Event     *Event
	OKEventID string
	OK        bool
	Message   string
	Reason    string
	Challenge string
}

// DecodeRelayFrame parses a raw JSON array frame sent by the relay.
func DecodeRelayFrame(raw []byte) (*RelayFrame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("transport: malformed frame: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("transport: empty frame")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return nil, fmt.Errorf("transport: frame type must be a string: %w", err)
	}

	switch tag {
	case FrameEvent:
		if len(parts) != 3 {
			return nil, fmt.Errorf("transport: EVENT frame needs exactly 3 elements")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("transport: decode EVENT subscription id: %w", err)
		}
		var evt Event
		if err := json.Unmarshal(parts[2], &evt); err != nil {
			return nil, fmt.Errorf("transport: decode EVENT payload: %w", err)
		}
		return &RelayFrame{Type: FrameEvent, SubID: subID, Event: &evt}, nil

	case FrameOK:
		if len(parts) != 4 {
			return nil, fmt.Errorf("transport: OK frame needs exactly 4 elements")
		}
		var eventID string
		var ok bool
		var message string
		if err := json.Unmarshal(parts[1], &eventID); err != nil {
			return nil, fmt.Errorf("transport: decode OK event id: %w", err)
		}
		if err := json.Unmarshal(parts[2], &ok); err != nil {
			return nil, fmt.Errorf("transport: decode OK flag: %w", err)
		}
		if err := json.Unmarshal(parts[3], &message); err != nil {
			return nil, fmt.Errorf("transport: decode OK message: %w", err)
		}
		return &RelayFrame{Type: FrameOK, OKEventID: eventID, OK: ok, Message: message}, nil

	case FrameEOSE:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: EOSE frame needs exactly 2 elements")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("transport: decode EOSE subscription id: %w", err)
		}
		return &RelayFrame{Type: FrameEOSE, SubID: subID}, nil

	case FrameClosed:
		if len(parts) != 3 {
			return nil, fmt.Errorf("transport: CLOSED frame needs exactly 3 elements")
		}
		var subID, reason string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("transport: decode CLOSED subscription id: %w", err)
		}
		if err := json.Unmarshal(parts[2], &reason); err != nil {
			return nil, fmt.Errorf("transport: decode CLOSED reason: %w", err)
		}
		return &RelayFrame{Type: FrameClosed, SubID: subID, Reason: reason}, nil

	case FrameNotice:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: NOTICE frame needs exactly 2 elements")
		}
		var text string
		if err := json.Unmarshal(parts[1], &text); err != nil {
			return nil, fmt.Errorf("transport: decode NOTICE text: %w", err)
		}
		return &RelayFrame{Type: FrameNotice, Message: text}, nil

	case FrameAuth:
		if len(parts) != 2 {
			return nil, fmt.Errorf("transport: AUTH frame needs exactly 2 elements")
		}
		var challenge string
		if err := json.Unmarshal(parts[1], &challenge); err != nil {
			return nil, fmt.Errorf("transport: decode AUTH challenge: %w", err)
		}
		return &RelayFrame{Type: FrameAuth, Challenge: challenge}, nil

	default:
		return nil, fmt.Errorf("transport: unknown relay frame type %q", tag)
	}
}

// EncodeClientEventFrame builds a client→relay ["EVENT", event] frame.
func EncodeClientEventFrame(e *Event) ([]byte, error) {
	return json.Marshal([]interface{}{FrameEvent, e})
}

// EncodeReqFrame builds a client→relay ["REQ", subId, filter...] frame.
func EncodeReqFrame(subID string, filters []Filter) ([]byte, error) {
	parts := make([]interface{}, 0, len(filters)+2)
	parts = append(parts, FrameReq, subID)
	for _, f := range filters {
		parts = append(parts, f)
	}
	return json.Marshal(parts)
}

// EncodeCloseFrame builds a client→relay ["CLOSE", subId] frame.
func EncodeCloseFrame(subID string) ([]byte, error) {
	return json.Marshal([]interface{}{FrameClose, subID})
}

// EncodeClientAuthFrame builds a client→relay ["AUTH", event] frame, the
// signed response to a relay-issued challenge.
func EncodeClientAuthFrame(e *Event) ([]byte, error) {
	return json.Marshal([]interface{}{FrameAuth, e})
}
