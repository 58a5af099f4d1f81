package phev

import (
	"bytes"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		msg      *Message
		wantCmd  byte
		wantType byte
		wantReg  byte
		wantData []byte
	}{
		{
			name:    "request",
			msg:     NewRequest(CmdSend, 0x10, []byte{0x01, 0x02}),
			wantCmd: CmdSend, wantType: Request, wantReg: 0x10, wantData: []byte{0x01, 0x02},
		},
		{
			name:    "response",
			msg:     NewResponse(CmdResp, 0x10, []byte{0x03}),
			wantCmd: CmdResp, wantType: Response, wantReg: 0x10, wantData: []byte{0x03},
		},
		{
			name:    "command",
			msg:     CommandMessage(RegAirConSchedule, []byte{0x02, 0x01, 0x02, 0x00}),
			wantCmd: CmdSend, wantType: Request, wantReg: RegAirConSchedule, wantData: []byte{0x02, 0x01, 0x02, 0x00},
		},
		{
			name:    "simple request",
			msg:     SimpleRequest(RegHeadLights, 0x01),
			wantCmd: CmdSend, wantType: Request, wantReg: RegHeadLights, wantData: []byte{0x01},
		},
		{
			name:    "simple response",
			msg:     SimpleResponse(RegHeadLights, 0x02),
			wantCmd: CmdSend, wantType: Response, wantReg: RegHeadLights, wantData: []byte{0x02},
		},
		{
			name:    "ack",
			msg:     Ack(CmdResp, 0x29),
			wantCmd: CmdResp, wantType: Response, wantReg: 0x29, wantData: []byte{0x00},
		},
		{
			name:    "ping",
			msg:     PingMessage(0x2a),
			wantCmd: CmdPingSendMY18, wantType: Request, wantReg: 0x2a, wantData: []byte{0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.msg
			if m.Command != tt.wantCmd || m.Type != tt.wantType || m.Reg != tt.wantReg {
				t.Errorf("got %s, want cmd=0x%02x type=%d reg=0x%02x", m, tt.wantCmd, tt.wantType, tt.wantReg)
			}
			if !bytes.Equal(m.Data, tt.wantData) {
				t.Errorf("data = % x, want % x", m.Data, tt.wantData)
			}
		})
	}
}

func TestNewMessageCopiesData(t *testing.T) {
	data := []byte{0x01}
	m := NewRequest(CmdSend, 0x10, data)
	data[0] = 0xff
	if m.Data[0] != 0x01 {
		t.Error("NewRequest() aliases the caller's buffer")
	}
}

func TestStartMessage(t *testing.T) {
	mac := [6]byte{0x24, 0x0d, 0xc2, 0xc2, 0x91, 0x85}
	m := StartMessage(mac)

	if m.Command != CmdStartSendMY18 || m.Type != Request || m.Reg != RegStart {
		t.Fatalf("unexpected start message %s", m)
	}
	want := []byte{0x24, 0x0d, 0xc2, 0xc2, 0x91, 0x85, 0x00}
	if !bytes.Equal(m.Data, want) {
		t.Errorf("data = % x, want % x", m.Data, want)
	}
}

func TestStartMessageEncoded(t *testing.T) {
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	got := StartMessageEncoded(mac)

	start := []byte{0x5e, 0x0a, 0x01, 0x01, 1, 2, 3, 4, 5, 6, 0x00}
	start = append(start, sum(start))
	aa := []byte{0xf6, 0x04, 0x01, 0xaa, 0x00}
	aa = append(aa, sum(aa))
	want := append(start, aa...)

	if !bytes.Equal(got, want) {
		t.Fatalf("StartMessageEncoded() = % x, want % x", got, want)
	}

	first := ExtractFrame(got)
	if !bytes.Equal(first, start) {
		t.Errorf("first frame = % x, want % x", first, start)
	}
	second := ExtractFrame(got[len(first):])
	if !bytes.Equal(second, aa) {
		t.Errorf("second frame = % x, want % x", second, aa)
	}
}

func TestAckForSwapsNibbles(t *testing.T) {
	for b := 0; b < 256; b++ {
		cmd := byte(b)
		ack := AckFor(&Message{Command: cmd, Type: Request, Reg: 0x33, Data: []byte{0x01}})

		want := ((cmd & 0x0f) << 4) | ((cmd & 0xf0) >> 4)
		if ack.Command != want {
			t.Fatalf("AckFor(0x%02x).Command = 0x%02x, want 0x%02x", cmd, ack.Command, want)
		}
		if ack.Reg != 0x33 || ack.Type != Response || !bytes.Equal(ack.Data, []byte{0x00}) {
			t.Fatalf("AckFor(0x%02x) = %s", cmd, ack)
		}
	}
}
