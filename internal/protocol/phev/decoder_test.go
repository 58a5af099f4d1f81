package phev

import (
	"bufio"
	"bytes"
	"testing"
)

func TestPacketScannerSplitsStream(t *testing.T) {
	f1 := Encode(SimpleRequest(RegHeadLights, 0x01))
	f2 := Unscramble(Encode(NewRequest(CmdResp, RegBatteryLevel, []byte{0x55})), 0x20)
	f3 := Encode(PingMessage(7))

	var stream []byte
	stream = append(stream, 0x00) // garbage
	stream = append(stream, f1...)
	stream = append(stream, f2...)
	stream = append(stream, f3...)

	sc := bufio.NewScanner(bytes.NewReader(stream))
	sc.Split(NewPacketScanner(0).SplitFunc)

	var got [][]byte
	for sc.Scan() {
		got = append(got, append([]byte{}, sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}

	want := [][]byte{f1, f2, f3}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("frame %d = % x, want % x", i, got[i], want[i])
		}
	}

	msg, err := Decode(got[1])
	if err != nil {
		t.Fatalf("Decode(scrambled) error = %v", err)
	}
	if msg.Reg != RegBatteryLevel || msg.Data[0] != 0x55 {
		t.Errorf("decoded %s", msg)
	}
}

func TestPacketScannerSplitFunc(t *testing.T) {
	frame := Encode(SimpleRequest(RegHorn, 0x01))
	ps := NewPacketScanner(0)

	tests := []struct {
		name        string
		data        []byte
		atEOF       bool
		wantAdvance int
		wantToken   []byte
	}{
		{name: "need header", data: frame[:3], wantAdvance: 0},
		{name: "need body", data: frame[:5], wantAdvance: 0},
		{name: "complete", data: frame, wantAdvance: len(frame), wantToken: frame},
		{name: "skip unknown command", data: []byte{0x01, 0x04, 0x01, 0x0a}, wantAdvance: 1},
		{name: "skip short declared", data: []byte{0xf6, 0x01, 0x01, 0x0a}, wantAdvance: 1},
		{name: "drop partial at eof", data: frame[:5], atEOF: true, wantAdvance: 5},
		{name: "empty at eof", data: nil, atEOF: true, wantAdvance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advance, token, err := ps.SplitFunc(tt.data, tt.atEOF)
			if err != nil {
				t.Fatalf("SplitFunc() error = %v", err)
			}
			if advance != tt.wantAdvance {
				t.Errorf("advance = %d, want %d", advance, tt.wantAdvance)
			}
			if !bytes.Equal(token, tt.wantToken) {
				t.Errorf("token = % x, want % x", token, tt.wantToken)
			}
		})
	}
}

func TestPacketScannerMaxSize(t *testing.T) {
	frame := Encode(CommandMessage(0x10, make([]byte, 20)))
	advance, token, _ := NewPacketScanner(10).SplitFunc(frame, false)
	if advance != 1 || token != nil {
		t.Errorf("SplitFunc() = (%d, % x), want oversized frame skipped", advance, token)
	}
}
