package link

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/danmuck/arqlink/internal/testutil/testlog"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func startReceiver(t *testing.T, ctx context.Context, out *lockedBuffer) (*ReceiverService, <-chan error) {
	t.Helper()
	cfg := config.DefaultReceiverConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	rs := NewReceiverService(cfg, out)
	if err := rs.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	errc := make(chan error, 1)
	go func() {
		errc <- rs.Serve(ctx)
	}()
	return rs, errc
}

func TestTransferOverLoopback(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	rs, errc := startReceiver(t, ctx, &out)

	input := make([]byte, 50000)
	rand.New(rand.NewSource(7)).Read(input)

	scfg := config.DefaultSenderConfig()
	scfg.Port = rs.Addr().(*net.UDPAddr).Port
	scfg.Link.ChunkSize = 700

	sctx, scancel := context.WithTimeout(ctx, 30*time.Second)
	defer scancel()
	if err := NewSenderService(scfg, bytes.NewReader(input)).RunContext(sctx); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got := out.Bytes(); !bytes.Equal(got, input) {
		t.Fatalf("receiver output differs: got %d bytes want %d", len(got), len(input))
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("receiver stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("receiver did not stop")
	}
}

func TestSenderEmptyInputCompletes(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	rs, _ := startReceiver(t, ctx, &out)

	scfg := config.DefaultSenderConfig()
	scfg.Port = rs.Addr().(*net.UDPAddr).Port
	sctx, scancel := context.WithTimeout(ctx, 5*time.Second)
	defer scancel()
	if err := NewSenderService(scfg, bytes.NewReader(nil)).RunContext(sctx); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(out.Bytes()) != 0 {
		t.Fatalf("unexpected output %q", out.Bytes())
	}
}

func TestServeRequiresListen(t *testing.T) {
	testlog.Start(t)
	rs := NewReceiverService(config.DefaultReceiverConfig(), &lockedBuffer{})
	if err := rs.Serve(context.Background()); !errors.Is(err, ErrNotListening) {
		t.Fatalf("expected ErrNotListening, got %v", err)
	}
	if rs.Addr() != nil {
		t.Fatalf("addr should be nil before listen")
	}
}

func TestListenBindFailure(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultReceiverConfig()
	cfg.ListenAddr = "not-an-address"
	if err := NewReceiverService(cfg, &lockedBuffer{}).Listen(); err == nil {
		t.Fatalf("expected bind failure")
	}
}

func TestSenderRejectsMissingPort(t *testing.T) {
	testlog.Start(t)
	err := NewSenderService(config.DefaultSenderConfig(), bytes.NewReader(nil)).RunContext(context.Background())
	if err == nil {
		t.Fatalf("expected config validation error")
	}
}
