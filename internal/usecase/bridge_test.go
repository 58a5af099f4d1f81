package usecase

import (
	"testing"

	"go.uber.org/zap/zaptest"

	protocol "phev-gateway/internal/protocol/phev"
	"phev-gateway/internal/usecase/phev"
)

type dispatched struct {
	topic, key string
	payload    MQPayload
}

type recordingDispatcher struct {
	items []dispatched
	full  bool
}

func (r *recordingDispatcher) Dispatch(topic, key string, payload interface{}) bool {
	if r.full {
		return false
	}
	r.items = append(r.items, dispatched{topic: topic, key: key, payload: payload.(MQPayload)})
	return true
}

func TestEventBridgeForwardsEvents(t *testing.T) {
	rd := &recordingDispatcher{}
	b := NewEventBridge(rd, BridgeOptions{Topic: "phev_events"}, zaptest.NewLogger(t))

	events := []*phev.Event{
		{Type: phev.EventConnected},
		{Type: phev.EventVIN, Data: []byte("JMBXTGG2WNZ000001"), Length: 17},
		{Type: phev.EventRegisterUpdate, Reg: protocol.RegBatteryLevel, Data: []byte{0x50}, Length: 1},
		{Type: phev.EventECUVersion, Data: []byte("1.2.3"), Length: 5},
		{Type: phev.EventDateSync, Data: []byte{0x16}, Length: 1},
		{Type: phev.EventPingResponse},
	}
	for _, ev := range events {
		b.Handle(ev)
	}

	wantTypes := []string{PayloadConnected, PayloadVIN, PayloadRegister, PayloadBattery, PayloadECUVersion, PayloadPing}
	if len(rd.items) != len(wantTypes) {
		t.Fatalf("got %d payloads, want %d", len(rd.items), len(wantTypes))
	}
	for i, want := range wantTypes {
		got := rd.items[i]
		if got.payload.Type != want {
			t.Errorf("payload[%d].Type = %q, want %q", i, got.payload.Type, want)
		}
		if got.topic != "phev_events" || got.key != "phev."+want {
			t.Errorf("payload[%d] routed to %q/%q", i, got.topic, got.key)
		}
	}

	if rd.items[0].payload.VIN != "" {
		t.Errorf("VIN before identification = %q", rd.items[0].payload.VIN)
	}
	if rd.items[2].payload.VIN != "JMBXTGG2WNZ000001" {
		t.Errorf("VIN after identification = %q", rd.items[2].payload.VIN)
	}
	reg := rd.items[2].payload.Data.(RegisterData)
	if reg.Register != "1d" || reg.Value != "50" || reg.Length != 1 {
		t.Errorf("register data = %+v", reg)
	}
	if soc := rd.items[3].payload.Data.(BatteryData).SOC; soc != 0x50 {
		t.Errorf("soc = %d", soc)
	}
}

func TestEventBridgeKeyByVIN(t *testing.T) {
	rd := &recordingDispatcher{}
	b := NewEventBridge(rd, BridgeOptions{KeyByVIN: true}, zaptest.NewLogger(t))

	b.Handle(&phev.Event{Type: phev.EventVIN, Data: []byte("JMB1")})
	b.Handle(&phev.Event{Type: phev.EventRegisterUpdate, Reg: protocol.RegHeadLights, Data: []byte{1}})

	for _, it := range rd.items {
		if it.key != "JMB1" {
			t.Errorf("key = %q, want VIN", it.key)
		}
	}
	if b.VIN() != "JMB1" {
		t.Errorf("VIN() = %q", b.VIN())
	}
}

func TestEventBridgeCallsNext(t *testing.T) {
	var got []phev.EventType
	b := NewEventBridge(&recordingDispatcher{full: true}, BridgeOptions{
		Next: func(ev *phev.Event) int {
			got = append(got, ev.Type)
			return 7
		},
	}, zaptest.NewLogger(t))

	if status := b.Handle(&phev.Event{Type: phev.EventRegistrationComplete}); status != 7 {
		t.Errorf("status = %d, want 7", status)
	}
	if len(got) != 1 || got[0] != phev.EventRegistrationComplete {
		t.Errorf("next got %v", got)
	}
}
