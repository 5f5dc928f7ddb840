package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/danmuck/arqlink/internal/logging"
	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/rs/zerolog"
)

const roleReceiver = "receiver"

var ErrSinkWrite = errors.New("session: output write failed")

// ReceiverStats is a point-in-time view of receiver state.
type ReceiverStats struct {
	Peer       string `json:"peer"`
	NextSeq    uint64 `json:"next_seq"`
	Buffered   int    `json:"buffered"`
	Segments   uint64 `json:"segments"`
	Duplicates uint64 `json:"duplicates"`
	Delivered  uint64 `json:"delivered_bytes"`
	Acks       uint64 `json:"acks"`
	Nacks      uint64 `json:"nacks"`
	Corrupt    uint64 `json:"corrupt_frames"`
}

// Receiver turns verified data segments into an in-order byte stream on
// sink and answers each one with an ack, or a corrupt frame with a nack.
type Receiver struct {
	cfg   Config
	codec *frame.Codec
	conn  PacketWriter
	sink  io.Writer
	log   zerolog.Logger
	board *observability.Board

	inbox *Inbox
	peer  net.Addr
	stats ReceiverStats
}

func NewReceiver(cfg Config, conn PacketWriter, sink io.Writer) (*Receiver, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if conn == nil || sink == nil {
		return nil, fmt.Errorf("%w: receiver needs a channel and a sink", ErrInvalidConfig)
	}
	codec, err := frame.NewCodec(cfg.Checksum)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:   cfg,
		codec: codec,
		conn:  conn,
		sink:  sink,
		log:   logging.For(roleReceiver),
		inbox: NewInbox(),
	}, nil
}

func (r *Receiver) SetBoard(b *observability.Board) {
	r.board = b
}

// Peer is the address bound by the first datagram, nil before that.
func (r *Receiver) Peer() net.Addr {
	return r.peer
}

func (r *Receiver) NextSeq() uint64 {
	return r.inbox.Next()
}

func (r *Receiver) Stats() ReceiverStats {
	out := r.stats
	if r.peer != nil {
		out.Peer = r.peer.String()
	}
	out.NextSeq = r.inbox.Next()
	out.Buffered = r.inbox.Pending()
	return out
}

// Run serves datagrams until ctx is done, the channel fails or the sink
// rejects a write.
func (r *Receiver) Run(ctx context.Context, datagrams <-chan Datagram) error {
	r.log.Info().Str("checksum", string(r.codec.Hash())).Msg("receiver started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dg, ok := <-datagrams:
			if !ok {
				return ErrChannelClosed
			}
			if dg.Err != nil {
				return fmt.Errorf("receiver channel read: %w", dg.Err)
			}
			if err := r.OnChannelData(dg.Data, dg.From); err != nil {
				return err
			}
			r.publish()
		}
	}
}

// OnChannelData handles one inbound datagram from addr. The first sender
// seen becomes the peer for the life of the receiver. By default the first
// bad frame is nacked and the rest of the datagram is dropped.
func (r *Receiver) OnChannelData(buf []byte, from net.Addr) error {
	if r.peer == nil && from != nil {
		r.peer = from
		r.log.Info().Str("peer", from.String()).Msg("peer bound")
	}
	for _, d := range r.codec.Decode(buf) {
		if !r.codec.Verify(d) || d.Message.Kind != protocol.KindData {
			r.stats.Corrupt++
			observability.RecordCorruptFrame(roleReceiver)
			r.log.Warn().Err(d.Err).Int("checksum", d.Checksum).Msg("corrupt frame")
			r.send(protocol.Nack())
			if r.cfg.ContinueAfterCorrupt {
				continue
			}
			return nil
		}
		if err := r.accept(d.Message); err != nil {
			return err
		}
	}
	return nil
}

func (r *Receiver) accept(m protocol.Message) error {
	if r.inbox.Insert(m.Seq, m.Payload) {
		r.stats.Segments++
	} else {
		r.stats.Duplicates++
		observability.RecordDuplicate()
		r.log.Debug().Uint64("seq", m.Seq).Msg("duplicate segment")
	}
	if _, err := r.inbox.Drain(r.deliver); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	r.send(protocol.Ack(m.Seq))
	return nil
}

func (r *Receiver) deliver(seq uint64, payload []byte) error {
	n, err := r.sink.Write(payload)
	r.stats.Delivered += uint64(n)
	observability.RecordDelivered(n)
	if err != nil {
		return err
	}
	r.log.Debug().Uint64("seq", seq).Int("bytes", n).Msg("delivered")
	return nil
}

func (r *Receiver) send(m protocol.Message) {
	if r.peer == nil {
		r.log.Warn().Stringer("msg", m).Msg("no peer bound, dropping reply")
		return
	}
	out, err := r.codec.Encode(m)
	if err != nil {
		r.log.Error().Err(err).Stringer("msg", m).Msg("encode reply")
		return
	}
	if _, err := r.conn.WriteTo(out, r.peer); err != nil {
		r.log.Warn().Err(err).Stringer("msg", m).Msg("datagram send failed")
		return
	}
	switch m.Kind {
	case protocol.KindAck:
		r.stats.Acks++
	case protocol.KindNack:
		r.stats.Nacks++
	}
	observability.RecordFrameSent(roleReceiver, m.Kind.String())
}

func (r *Receiver) publish() {
	if r.board != nil {
		r.board.Publish(r.Stats())
	}
}
