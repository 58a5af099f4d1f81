package phev

import (
	"bytes"

	"phev-gateway/internal/pipe"
)

const (
	vinMaxLength        = 18
	ecuVersionMaxLength = 10
)

// Translate maps a pipe event onto an application event for c. It returns false
// when there is nothing to deliver: no handler registered, or a BB heartbeat.
func Translate(ev pipe.Event, c *Client) (*Event, bool) {
	if c == nil || c.handler == nil {
		return nil, false
	}

	switch e := ev.(type) {
	case pipe.Connected:
		return &Event{Type: EventConnected, Client: c}, true
	case pipe.StartAck:
		return &Event{Type: EventStarted, Client: c}, true
	case pipe.RegUpdate:
		if e.Message == nil {
			return nil, false
		}
		return &Event{
			Type:    EventRegisterUpdate,
			Reg:     e.Message.Reg,
			Data:    e.Message.Data,
			Length:  len(e.Message.Data),
			Client:  c,
			Message: e.Message,
		}, true
	case pipe.GotVIN:
		vin := boundedString(e.VIN, vinMaxLength)
		return &Event{Type: EventVIN, Data: []byte(vin), Length: len(vin), Client: c}, true
	case pipe.ECUVersion:
		version := boundedString(e.Raw, ecuVersionMaxLength)
		return &Event{Type: EventECUVersion, Data: []byte(version), Length: len(version), Client: c}, true
	case pipe.DateInfo:
		return &Event{Type: EventDateSync, Data: e.Data, Length: len(e.Data), Client: c}, true
	case pipe.PingResponse:
		return &Event{Type: EventPingResponse, Data: e.Data, Length: len(e.Data), Client: c}, true
	case pipe.FilteredMessage:
		return &Event{Type: EventFilteredMessage, Data: e.Data, Length: len(e.Data), Client: c}, true
	case pipe.BB:
		return nil, false
	default:
		return nil, false
	}
}

// boundedString copies at most n bytes of b, stopping at the first NUL.
func boundedString(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
