package link

import (
	"context"
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

// SenderService streams one input to one peer and exits once every byte
// is acknowledged.
type SenderService struct {
	cfg config.SenderConfig
	in  io.Reader
}

func NewSenderService(cfg config.SenderConfig, in io.Reader) *SenderService {
	cfg.Link = cfg.Link.WithDefaults()
	if in == nil {
		in = os.Stdin
	}
	return &SenderService{cfg: cfg, in: in}
}

// Run blocks until the transfer completes or the process is signalled.
func (s *SenderService) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *SenderService) RunContext(ctx context.Context) error {
	if err := config.ValidateSenderConfig(s.cfg); err != nil {
		return err
	}
	peer, err := net.ResolveUDPAddr("udp", s.cfg.PeerAddr())
	if err != nil {
		return fmt.Errorf("resolve peer %s: %w", s.cfg.PeerAddr(), err)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return fmt.Errorf("bind sender endpoint: %w", err)
	}
	defer conn.Close()

	sender, err := session.NewSender(s.cfg.Link, conn, peer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := observability.NewBoard()
	sender.SetBoard(board)
	startStatusServer(ctx, "sender", s.cfg.MetricsAddr, board)

	logger := logging.For("link")
	logger.Info().
		Str("local", conn.LocalAddr().String()).
		Str("peer", peer.String()).
		Msg("sender endpoint ready")

	datagrams := session.ReadDatagrams(ctx, conn, s.cfg.Link.ReadBufferSize)
	chunks := session.ReadChunks(ctx, s.in, s.cfg.Link.ChunkSize)
	return sender.Run(ctx, datagrams, chunks)
}

func startStatusServer(ctx context.Context, node, addr string, board *observability.Board) {
	if addr == "" {
		return
	}
	logger := logging.For("status")
	router := observability.NewStatusRouter(node, logger, board)
	go func() {
		if err := observability.ServeStatus(ctx, addr, router, logger); err != nil {
			logger.Warn().Err(err).Str("addr", addr).Msg("status server stopped")
		}
	}()
}
