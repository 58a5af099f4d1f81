package phev

import (
	"bytes"
	"testing"

	"phev-gateway/internal/pipe"
	protocol "phev-gateway/internal/protocol/phev"
)

func TestTranslate(t *testing.T) {
	c, _ := newTestClient(t, func(*Event) int { return 0 })
	update := protocol.NewRequest(protocol.CmdResp, protocol.RegBatteryLevel, []byte{0x40})

	tests := []struct {
		name   string
		in     pipe.Event
		want   EventType
		reg    byte
		data   []byte
		absent bool
	}{
		{name: "connected", in: pipe.Connected{}, want: EventConnected},
		{name: "start ack", in: pipe.StartAck{}, want: EventStarted},
		{name: "register update", in: pipe.RegUpdate{Message: update}, want: EventRegisterUpdate, reg: protocol.RegBatteryLevel, data: []byte{0x40}},
		{name: "vin", in: pipe.GotVIN{VIN: []byte("JMBXTGG2WNZ000001")}, want: EventVIN, data: []byte("JMBXTGG2WNZ000001")},
		{name: "vin stops at nul", in: pipe.GotVIN{VIN: []byte("ABC\x00DEF")}, want: EventVIN, data: []byte("ABC")},
		{name: "vin trailing nuls", in: pipe.GotVIN{VIN: []byte("JMBXTGG2WNZ000001\x00\x00\x00")}, want: EventVIN, data: []byte("JMBXTGG2WNZ000001")},
		{name: "vin cut at 18 bytes", in: pipe.GotVIN{VIN: []byte("JMBXTGG2WNZ000001234")}, want: EventVIN, data: []byte("JMBXTGG2WNZ0000012")},
		{name: "ecu version bounded", in: pipe.ECUVersion{Raw: []byte("0123456789ABCDEF")}, want: EventECUVersion, data: []byte("0123456789")},
		{name: "date", in: pipe.DateInfo{Data: []byte{0x16, 0x0a, 0x13}}, want: EventDateSync, data: []byte{0x16, 0x0a, 0x13}},
		{name: "ping response", in: pipe.PingResponse{Data: []byte{0x00}}, want: EventPingResponse, data: []byte{0x00}},
		{name: "filtered", in: pipe.FilteredMessage{Data: []byte{0x9f, 0x04}}, want: EventFilteredMessage, data: []byte{0x9f, 0x04}},
		{name: "bb is dropped", in: pipe.BB{}, absent: true},
		{name: "nil update is dropped", in: pipe.RegUpdate{}, absent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Translate(tt.in, c)
			if tt.absent {
				if ok {
					t.Fatalf("Translate() = %+v, want nothing", ev)
				}
				return
			}
			if !ok {
				t.Fatal("Translate() returned nothing")
			}
			if ev.Type != tt.want {
				t.Errorf("Type = %v, want %v", ev.Type, tt.want)
			}
			if ev.Reg != tt.reg {
				t.Errorf("Reg = %#02x, want %#02x", ev.Reg, tt.reg)
			}
			if tt.data != nil && !bytes.Equal(ev.Data, tt.data) {
				t.Errorf("Data = %q, want %q", ev.Data, tt.data)
			}
			if ev.Length != len(ev.Data) {
				t.Errorf("Length = %d, want %d", ev.Length, len(ev.Data))
			}
			if ev.Client != c {
				t.Error("event does not carry the client")
			}
		})
	}
}

func TestTranslateVINIsCopied(t *testing.T) {
	c, _ := newTestClient(t, func(*Event) int { return 0 })
	src := []byte("JMBXTGG2WNZ000001")

	ev, ok := Translate(pipe.GotVIN{VIN: src}, c)
	if !ok {
		t.Fatal("Translate() returned nothing")
	}
	src[0] = 'X'
	if string(ev.Data) != "JMBXTGG2WNZ000001" {
		t.Errorf("VIN changed with source buffer: %q", ev.Data)
	}
}

func TestTranslateRegUpdateCarriesMessage(t *testing.T) {
	c, _ := newTestClient(t, func(*Event) int { return 0 })
	msg := protocol.NewRequest(protocol.CmdResp, protocol.RegHeadLights, []byte{0x01})

	ev, ok := Translate(pipe.RegUpdate{Message: msg}, c)
	if !ok || ev.Message != msg {
		t.Fatalf("Translate() = %+v, %v", ev, ok)
	}
}

func TestTranslateWithoutHandler(t *testing.T) {
	c, _ := newTestClient(t, nil)
	if _, ok := Translate(pipe.Connected{}, c); ok {
		t.Error("Translate() delivered an event with no handler")
	}
	if _, ok := Translate(pipe.Connected{}, nil); ok {
		t.Error("Translate() delivered an event with no client")
	}
}

func TestEventTypeString(t *testing.T) {
	if EventVIN.String() != "VIN" {
		t.Errorf("EventVIN.String() = %q", EventVIN.String())
	}
	if got := EventType(99).String(); got != "UNKNOWN(99)" {
		t.Errorf("String() = %q", got)
	}
}
