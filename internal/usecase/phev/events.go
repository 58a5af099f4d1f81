package phev

import (
	"fmt"

	protocol "phev-gateway/internal/protocol/phev"
)

// EventType 应用层事件类型
type EventType int

const (
	EventConnected EventType = iota
	EventStarted
	EventRegisterUpdate
	EventVIN
	EventECUVersion
	EventDateSync
	EventPingResponse
	EventFilteredMessage
	EventRegistrationComplete
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventStarted:
		return "STARTED"
	case EventRegisterUpdate:
		return "REGISTER_UPDATE"
	case EventVIN:
		return "VIN"
	case EventECUVersion:
		return "ECU_VERSION"
	case EventDateSync:
		return "DATE_SYNC"
	case EventPingResponse:
		return "PING_RESPONSE"
	case EventFilteredMessage:
		return "FILTERED_MESSAGE"
	case EventRegistrationComplete:
		return "REGISTRATION_COMPLETE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Event is handed to the application handler. It is only valid for the duration
// of the handler call; Data may alias transport buffers for pass-through events.
type Event struct {
	Type    EventType
	Reg     byte
	Data    []byte
	Length  int
	Client  *Client
	// Message is the decoded frame behind a register update, nil otherwise.
	Message *protocol.Message
}

// UserContext returns the opaque value the client was created with.
func (e *Event) UserContext() any {
	if e.Client == nil {
		return nil
	}
	return e.Client.UserContext()
}

// EventHandler is the single application callback. The return value is a status
// code reserved for future use and is currently ignored.
type EventHandler func(ev *Event) int
