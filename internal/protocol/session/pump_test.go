package session

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/arqlink/internal/testutil/testlog"
)

func TestReadChunksSlicesStream(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	for c := range ReadChunks(ctx, strings.NewReader("abcdefg"), 3) {
		if c.Err != nil {
			t.Fatalf("chunk error: %v", c.Err)
		}
		got = append(got, string(c.Data))
	}
	if strings.Join(got, "|") != "abc|def|g" {
		t.Fatalf("unexpected chunks: %v", got)
	}
}

func TestReadChunksEmptyInputClosesImmediately(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, ok := <-ReadChunks(ctx, strings.NewReader(""), 8); ok {
		t.Fatalf("empty input should yield no chunks")
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadChunksReportsReadError(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, ok := <-ReadChunks(ctx, brokenReader{}, 8)
	if !ok || !errors.Is(c.Err, io.ErrClosedPipe) {
		t.Fatalf("expected read error chunk, got ok=%v err=%v", ok, c.Err)
	}
}

func TestReadDatagramsOverLoopback(t *testing.T) {
	testlog.Start(t)
	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := ReadDatagrams(ctx, server, 1024)

	if _, err := client.WriteTo([]byte("ping"), server.LocalAddr()); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case dg := <-in:
		if dg.Err != nil || string(dg.Data) != "ping" {
			t.Fatalf("unexpected datagram: %+v", dg)
		}
		if dg.From.String() != client.LocalAddr().String() {
			t.Fatalf("unexpected source %v", dg.From)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("datagram not received")
	}

	// a short datagram read after a long one must not alias its buffer
	long := strings.Repeat("L", 512)
	for _, msg := range []string{long, "ack"} {
		if _, err := client.WriteTo([]byte(msg), server.LocalAddr()); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var got []Datagram
	for len(got) < 2 {
		select {
		case dg := <-in:
			if dg.Err != nil {
				t.Fatalf("read: %v", dg.Err)
			}
			got = append(got, dg)
		case <-time.After(2 * time.Second):
			t.Fatalf("datagram not received")
		}
	}
	if string(got[0].Data) != long || string(got[1].Data) != "ack" {
		t.Fatalf("datagrams overlap: lengths %d and %d, second %q", len(got[0].Data), len(got[1].Data), got[1].Data)
	}
	if cap(got[1].Data) >= 1024 {
		t.Fatalf("datagram should not retain the read buffer, cap=%d", cap(got[1].Data))
	}

	cancel()
	server.Close()
	select {
	case _, ok := <-in:
		if ok {
			t.Fatalf("pump should close quietly after shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pump did not stop")
	}
}
