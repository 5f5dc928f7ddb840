package frame

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/danmuck/arqlink/internal/protocol"
	"golang.org/x/crypto/blake2b"
)

const (
	Delimiter byte = '\n'
	bodyOpen  byte = '{'

	// NoChecksum marks a Decoded whose prefix was not a usable checksum.
	NoChecksum = -1
)

var (
	ErrNoBody      = errors.New("frame: missing message body")
	ErrBadChecksum = errors.New("frame: checksum prefix is not an integer in 0..255")
	ErrUnknownHash = errors.New("frame: unknown checksum hash")
)

// Hash names the digest folded into the one-byte frame checksum.
type Hash string

const (
	HashSHA256  Hash = "sha256"
	HashBLAKE2b Hash = "blake2b"
)

// Decoded is one frame pulled out of a datagram. Err is set when the frame
// could not be parsed; Checksum is NoChecksum when the prefix was unusable.
type Decoded struct {
	Checksum int
	Message  protocol.Message
	Err      error
}

func (d Decoded) Corrupt() bool {
	return d.Err != nil
}

// Codec encodes and decodes checksummed, newline-delimited frames.
type Codec struct {
	name    Hash
	newHash func() hash.Hash
}

func NewCodec(name Hash) (*Codec, error) {
	switch Hash(strings.ToLower(strings.TrimSpace(string(name)))) {
	case "", HashSHA256:
		return &Codec{name: HashSHA256, newHash: sha256.New}, nil
	case HashBLAKE2b:
		return &Codec{name: HashBLAKE2b, newHash: newBLAKE2b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
	}
}

func DefaultCodec() *Codec {
	return &Codec{name: HashSHA256, newHash: sha256.New}
}

func (c *Codec) Hash() Hash {
	return c.name
}

// Checksum folds the digest of the canonical body plus delimiter into one
// byte by summing the digest bytes mod 256.
func (c *Codec) Checksum(m protocol.Message) (uint8, error) {
	body, err := protocol.Marshal(m)
	if err != nil {
		return 0, err
	}
	return c.checksum(body), nil
}

func (c *Codec) checksum(body []byte) uint8 {
	h := c.newHash()
	h.Write(body)
	h.Write([]byte{Delimiter})
	var sum uint8
	for _, b := range h.Sum(nil) {
		sum += b
	}
	return sum
}

// Encode renders m as <decimal checksum><body>\n.
func (c *Codec) Encode(m protocol.Message) ([]byte, error) {
	body, err := protocol.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+5)
	out = strconv.AppendUint(out, uint64(c.checksum(body)), 10)
	out = append(out, body...)
	return append(out, Delimiter), nil
}

// Decode splits buf on the delimiter, skipping empty fragments, and parses
// each fragment. Unparsable fragments are returned in place with Err set so
// callers see corruption at the position it occurred.
func (c *Codec) Decode(buf []byte) []Decoded {
	out := make([]Decoded, 0, bytes.Count(buf, []byte{Delimiter})+1)
	for _, frag := range bytes.Split(buf, []byte{Delimiter}) {
		if len(frag) == 0 {
			continue
		}
		out = append(out, decodeFragment(frag))
	}
	return out
}

func decodeFragment(frag []byte) Decoded {
	idx := bytes.IndexByte(frag, bodyOpen)
	if idx < 0 {
		return Decoded{Checksum: NoChecksum, Err: ErrNoBody}
	}
	sum, err := strconv.ParseUint(string(frag[:idx]), 10, 8)
	if err != nil {
		return Decoded{Checksum: NoChecksum, Err: fmt.Errorf("%w: %q", ErrBadChecksum, frag[:idx])}
	}
	msg, err := protocol.Unmarshal(frag[idx:])
	if err != nil {
		return Decoded{Checksum: int(sum), Err: err}
	}
	return Decoded{Checksum: int(sum), Message: msg}
}

// Verify recomputes the checksum of a decoded message exactly as Encode
// does and reports whether it matches the received prefix.
func (c *Codec) Verify(d Decoded) bool {
	if d.Err != nil || d.Checksum < 0 {
		return false
	}
	sum, err := c.Checksum(d.Message)
	if err != nil {
		return false
	}
	return int(sum) == d.Checksum
}

func newBLAKE2b() hash.Hash {
	// New256 only fails for oversized keys.
	h, _ := blake2b.New256(nil)
	return h
}
