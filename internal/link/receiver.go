package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/danmuck/arqlink/internal/logging"
	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol/session"
)

var ErrNotListening = errors.New("link: receiver not listening")

// ReceiverService binds a UDP endpoint and writes the reassembled stream
// to its output for as long as the process runs.
type ReceiverService struct {
	cfg  config.ReceiverConfig
	out  io.Writer
	conn net.PacketConn
}

func NewReceiverService(cfg config.ReceiverConfig, out io.Writer) *ReceiverService {
	cfg.Link = cfg.Link.WithDefaults()
	if out == nil {
		out = os.Stdout
	}
	return &ReceiverService{cfg: cfg, out: out}
}

// Listen binds the endpoint and reports the port on the diagnostic log.
func (s *ReceiverService) Listen() error {
	if err := config.ValidateReceiverConfig(s.cfg); err != nil {
		return err
	}
	conn, err := net.ListenPacket("udp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.ListenAddr, err)
	}
	s.conn = conn
	logger := logging.For("link")
	event := logger.Info().Str("addr", conn.LocalAddr().String())
	if udp, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		event = event.Int("port", udp.Port)
	}
	event.Msg("receiver bound")
	return nil
}

// Addr is the bound endpoint, nil before Listen.
func (s *ReceiverService) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run binds and serves until the process is signalled.
func (s *ReceiverService) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := s.Listen(); err != nil {
		return err
	}
	err := s.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve runs the receiver loop on the bound endpoint and closes it on
// return.
func (s *ReceiverService) Serve(ctx context.Context) error {
	if s.conn == nil {
		return ErrNotListening
	}
	defer s.conn.Close()

	receiver, err := session.NewReceiver(s.cfg.Link, s.conn, s.out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := observability.NewBoard()
	receiver.SetBoard(board)
	startStatusServer(ctx, "receiver", s.cfg.MetricsAddr, board)

	datagrams := session.ReadDatagrams(ctx, s.conn, s.cfg.Link.ReadBufferSize)
	return receiver.Run(ctx, datagrams)
}
