package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap/zaptest"

	"phev-gateway/internal/config"
	"phev-gateway/internal/pipe"
	protocol "phev-gateway/internal/protocol/phev"
)

type fakeSession struct {
	frames   [][]byte
	pings    int
	detached bool
	pingErr  error
}

func (s *fakeSession) HandleFrame(raw []byte) error {
	s.frames = append(s.frames, append([]byte{}, raw...))
	return nil
}

func (s *fakeSession) Attach(pipe.Conn) error { return nil }
func (s *fakeSession) Detach()                { s.detached = true }

func (s *fakeSession) Ping() error {
	s.pings++
	return s.pingErr
}

func newTestClient(t *testing.T, s Session) *TCPClient {
	t.Helper()
	cfg := config.VehicleConfig{Host: "192.168.8.46", Port: 8080, PingInterval: 2 * time.Second}
	return NewTCPClient(cfg, s, zaptest.NewLogger(t))
}

func TestConsumeReassemblesFrames(t *testing.T) {
	s := &fakeSession{}
	c := newTestClient(t, s)
	ctx := newConnContext("192.168.8.46:8080")

	f1 := protocol.Encode(protocol.NewRequest(protocol.CmdResp, protocol.RegBatteryLevel, []byte{0x50}))
	f2 := protocol.Unscramble(protocol.Encode(protocol.NewResponse(protocol.CmdPingResp, 0x01, []byte{0x00})), 0x20)

	stream := append([]byte{0x00}, f1...)
	stream = append(stream, f2...)

	// split mid frame
	c.consume(ctx, stream[:4])
	if len(s.frames) != 0 {
		t.Fatalf("frame delivered before it was complete")
	}
	c.consume(ctx, stream[4:])

	if len(s.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(s.frames))
	}
	if !bytes.Equal(s.frames[0], f1) || !bytes.Equal(s.frames[1], f2) {
		t.Errorf("frames = % x", s.frames)
	}
	if len(ctx.buffer) != 0 {
		t.Errorf("buffer left with % x", ctx.buffer)
	}
}

func TestConsumeKeepsPartialTail(t *testing.T) {
	s := &fakeSession{}
	c := newTestClient(t, s)
	ctx := newConnContext("test")

	f := protocol.Encode(protocol.SimpleRequest(protocol.RegHeadLights, 1))
	c.consume(ctx, append(append([]byte{}, f...), f[:3]...))

	if len(s.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(s.frames))
	}
	if !bytes.Equal(ctx.buffer, f[:3]) {
		t.Errorf("buffer = % x, want % x", ctx.buffer, f[:3])
	}
}

func TestOnTickPings(t *testing.T) {
	s := &fakeSession{pingErr: pipe.ErrNotConnected}
	c := newTestClient(t, s)

	delay, action := c.OnTick()
	if delay != 2*time.Second || action != gnet.None {
		t.Errorf("OnTick() = %v, %v", delay, action)
	}
	s.pingErr = errors.New("write failed")
	c.OnTick()
	if s.pings != 2 {
		t.Errorf("pings = %d, want 2", s.pings)
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := newTestClient(t, &fakeSession{})
	if err := c.Stop(); err == nil {
		t.Error("Stop() expected error before Start")
	}
}

func TestOnTickShutsDownWhenSessionExits(t *testing.T) {
	s := &fakeSession{}
	running := true
	cfg := config.VehicleConfig{Host: "192.168.8.46", Port: 8080, PingInterval: time.Second}
	c := NewTCPClient(cfg, s, zaptest.NewLogger(t), WithRunning(func() bool { return running }))

	if _, action := c.OnTick(); action != gnet.None || s.pings != 1 {
		t.Fatalf("running tick: action=%v pings=%d", action, s.pings)
	}

	running = false
	if _, action := c.OnTick(); action != gnet.Shutdown {
		t.Errorf("OnTick() action = %v, want Shutdown", action)
	}
	if s.pings != 1 {
		t.Errorf("pinged after exit: pings=%d", s.pings)
	}
}

func TestOnTickWithoutPingInterval(t *testing.T) {
	s := &fakeSession{}
	c := NewTCPClient(config.VehicleConfig{Host: "h", Port: 1}, s, zaptest.NewLogger(t), WithRunning(func() bool { return true }))

	if delay, action := c.OnTick(); delay != time.Second || action != gnet.None || s.pings != 0 {
		t.Errorf("OnTick() = %v, %v, pings=%d", delay, action, s.pings)
	}
}
