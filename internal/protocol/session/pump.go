package session

import (
	"context"
	"errors"
	"io"
	"net"
)

// PacketWriter is the send half of a datagram channel. net.PacketConn
// satisfies it.
type PacketWriter interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// Datagram is one inbound transmission unit or, when Err is set, the
// terminal read failure of the pump that produced it.
type Datagram struct {
	Data []byte
	From net.Addr
	Err  error
}

// Chunk is one slice of the input stream or, when Err is set, a read
// failure. The channel is closed at end of stream.
type Chunk struct {
	Data []byte
	Err  error
}

// ReadDatagrams reads conn until it fails or ctx is done. The read itself
// cannot be interrupted, so callers close conn to stop a blocked pump.
// Each datagram is copied out of a single read buffer of the given size.
func ReadDatagrams(ctx context.Context, conn net.PacketConn, size int) <-chan Datagram {
	out := make(chan Datagram)
	go func() {
		defer close(out)
		buf := make([]byte, size)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				select {
				case out <- Datagram{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- Datagram{Data: append([]byte(nil), buf[:n]...), From: from}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ReadChunks slices r into size-byte chunks; only the last may be short.
// The channel is unbuffered so a receive succeeds exactly when a chunk has
// already been read, which is what the sender treats as input readiness.
func ReadChunks(ctx context.Context, r io.Reader, size int) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for {
			buf := make([]byte, size)
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				select {
				case out <- Chunk{Data: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			switch {
			case err == nil:
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			default:
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out
}
