package simulator

import (
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap"

	protocol "phev-gateway/internal/protocol/phev"
)

// connContext 保存每个连接的状态
type connContext struct {
	buffer  []byte
	scanner *protocol.PacketScanner
}

// Server accepts client connections on behalf of one simulated car.
type Server struct {
	gnet.BuiltinEventEngine

	addr   string
	car    *Car
	logger *zap.Logger
}

func NewServer(host string, port int, car *Car, logger *zap.Logger) *Server {
	return &Server{
		addr:   fmt.Sprintf("tcp://%s:%d", host, port),
		car:    car,
		logger: logger,
	}
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.logger.Info("Simulated car listening", zap.String("address", s.addr), zap.String("vin", s.car.VIN))
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	s.logger.Info("Client connected", zap.String("remote_addr", c.RemoteAddr().String()))
	c.SetContext(&connContext{
		buffer:  make([]byte, 0, 512),
		scanner: protocol.NewPacketScanner(0),
	})
	return nil, gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	ctx := c.Context().(*connContext)
	buf, _ := c.Next(-1)
	ctx.buffer = append(ctx.buffer, buf...)

	var out []byte
	for len(ctx.buffer) > 0 {
		advance, token, _ := ctx.scanner.SplitFunc(ctx.buffer, false)
		if advance == 0 {
			break
		}
		if token != nil {
			for _, frame := range s.car.Respond(token) {
				out = append(out, frame...)
			}
		}
		ctx.buffer = ctx.buffer[advance:]
	}
	ctx.buffer = append(ctx.buffer[:0:0], ctx.buffer...)

	if len(out) > 0 {
		if _, err := c.Write(out); err != nil {
			s.logger.Warn("Simulator write failed", zap.Error(err))
			return gnet.Close
		}
	}
	return gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	s.logger.Info("Client disconnected", zap.String("remote_addr", c.RemoteAddr().String()), zap.Error(err))
	return gnet.None
}

// Start blocks until Stop is called.
func (s *Server) Start() error {
	return gnet.Run(s, s.addr,
		gnet.WithLogger(s.logger.Sugar()),
		gnet.WithReusePort(true),
	)
}

func (s *Server) Stop(ctx context.Context) error {
	return gnet.Stop(ctx, s.addr)
}
