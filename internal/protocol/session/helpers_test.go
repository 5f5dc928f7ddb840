package session

import (
	"net"
	"strconv"
	"testing"

	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
)

var (
	senderAddr   = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}
	receiverAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40002}
)

// recordingConn captures every datagram written through it.
type recordingConn struct {
	writes [][]byte
	addrs  []net.Addr
}

func (c *recordingConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.writes = append(c.writes, append([]byte(nil), p...))
	c.addrs = append(c.addrs, addr)
	return len(p), nil
}

func (c *recordingConn) reset() {
	c.writes = nil
	c.addrs = nil
}

// messages decodes every captured write, failing on anything that does not
// verify.
func (c *recordingConn) messages(t *testing.T) []protocol.Message {
	t.Helper()
	codec := frame.DefaultCodec()
	var out []protocol.Message
	for _, w := range c.writes {
		for _, d := range codec.Decode(w) {
			if !codec.Verify(d) {
				t.Fatalf("captured frame does not verify: %q", w)
			}
			out = append(out, d.Message)
		}
	}
	return out
}

func encodeFrame(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	out, err := frame.DefaultCodec().Encode(m)
	if err != nil {
		t.Fatalf("encode %s: %v", m, err)
	}
	return out
}

// wrongChecksumFrame encodes m with a checksum prefix off by one, the
// single-byte alteration that is always detected.
func wrongChecksumFrame(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	codec := frame.DefaultCodec()
	sum, err := codec.Checksum(m)
	if err != nil {
		t.Fatalf("checksum %s: %v", m, err)
	}
	body, err := protocol.Marshal(m)
	if err != nil {
		t.Fatalf("marshal %s: %v", m, err)
	}
	out := strconv.AppendUint(nil, uint64(sum+1), 10)
	out = append(out, body...)
	return append(out, frame.Delimiter)
}

// chunks returns a closed, pre-filled input channel.
func chunks(parts ...string) <-chan Chunk {
	ch := make(chan Chunk, len(parts))
	for _, p := range parts {
		ch <- Chunk{Data: []byte(p)}
	}
	close(ch)
	return ch
}

func seqs(msgs []protocol.Message) []uint64 {
	out := make([]uint64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Seq)
	}
	return out
}

func equalSeqs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
