package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/arqlink/internal/logging"
	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/rs/zerolog"
)

const roleSender = "sender"

var (
	ErrInputRead     = errors.New("session: input read failed")
	ErrChannelClosed = errors.New("session: datagram channel closed")
)

// SenderStats is a point-in-time view of sender state.
type SenderStats struct {
	NextSeq      uint64        `json:"next_seq"`
	InFlight     int           `json:"in_flight"`
	InFlightSize int           `json:"in_flight_bytes"`
	Window       int           `json:"window"`
	RTT          time.Duration `json:"rtt"`
	Segments     uint64        `json:"segments"`
	Retransmits  uint64        `json:"retransmits"`
	Timeouts     uint64        `json:"timeouts"`
	BatchResends uint64        `json:"batch_resends"`
	AcksMatched  uint64        `json:"acks_matched"`
	Nacks        uint64        `json:"nacks"`
	Corrupt      uint64        `json:"corrupt_frames"`
	DoneReading  bool          `json:"done_reading"`
	Done         bool          `json:"done"`
}

// Sender reads the input stream into sequenced segments, keeps at most
// window-1 of them in flight and retransmits until each is acknowledged.
type Sender struct {
	cfg   Config
	codec *frame.Codec
	conn  PacketWriter
	peer  net.Addr
	log   zerolog.Logger
	board *observability.Board

	outbox      *Outbox
	nextSeq     uint64
	window      int
	rtt         time.Duration
	doneReading bool
	stats       SenderStats
}

func NewSender(cfg Config, conn PacketWriter, peer net.Addr) (*Sender, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if conn == nil || peer == nil {
		return nil, fmt.Errorf("%w: sender needs a channel and a peer", ErrInvalidConfig)
	}
	codec, err := frame.NewCodec(cfg.Checksum)
	if err != nil {
		return nil, err
	}
	return &Sender{
		cfg:    cfg,
		codec:  codec,
		conn:   conn,
		peer:   peer,
		log:    logging.For(roleSender),
		outbox: NewOutbox(),
		window: cfg.InitialWindow,
		rtt:    cfg.InitialRTT,
	}, nil
}

// SetBoard publishes a stats snapshot to b after every loop iteration.
func (s *Sender) SetBoard(b *observability.Board) {
	s.board = b
}

func (s *Sender) Window() int {
	return s.window
}

func (s *Sender) RTT() time.Duration {
	return s.rtt
}

func (s *Sender) InFlight() int {
	return s.outbox.Len()
}

func (s *Sender) NextSeq() uint64 {
	return s.nextSeq
}

// HasRoom reports whether the window admits one more segment.
func (s *Sender) HasRoom() bool {
	return s.outbox.Len()+1 < s.window
}

// Done is true once the input is exhausted and every segment is acked.
func (s *Sender) Done() bool {
	return s.doneReading && s.outbox.Len() == 0
}

func (s *Sender) Stats() SenderStats {
	out := s.stats
	out.NextSeq = s.nextSeq
	out.InFlight = s.outbox.Len()
	out.InFlightSize = s.outbox.Bytes()
	out.Window = s.window
	out.RTT = s.rtt
	out.DoneReading = s.doneReading
	out.Done = s.Done()
	return out
}

// Run drives the sender until everything is acknowledged, ctx is done or
// a local resource fails. Every wake-up, whatever caused it, ends with a
// timeout check.
func (s *Sender) Run(ctx context.Context, datagrams <-chan Datagram, input <-chan Chunk) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.log.Info().
		Str("peer", s.peer.String()).
		Int("window", s.window).
		Dur("rtt", s.rtt).
		Str("checksum", string(s.codec.Hash())).
		Msg("sender started")

	for {
		if s.Done() {
			s.publish()
			s.log.Info().
				Uint64("segments", s.stats.Segments).
				Uint64("retransmits", s.stats.Retransmits).
				Msg("all data acknowledged")
			return nil
		}

		var ready <-chan Chunk
		if !s.doneReading && s.HasRoom() {
			ready = input
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dg, ok := <-datagrams:
			if !ok {
				return ErrChannelClosed
			}
			if dg.Err != nil {
				return fmt.Errorf("sender channel read: %w", dg.Err)
			}
			s.OnChannelData(dg.Data, time.Now())
		case c, ok := <-ready:
			now := time.Now()
			if err := s.take(c, ok, now); err != nil {
				return err
			}
			if err := s.OnInputReady(ready, now); err != nil {
				return err
			}
		case <-ticker.C:
		}

		s.CheckTimeouts(time.Now())
		s.publish()
	}
}

// OnChannelData handles one inbound datagram. A corrupt frame or a nack
// stops interpretation of the rest of the datagram and triggers a resend
// of the whole outbox. Verified acks release their segment, take a fresh
// rtt sample and grow the window by one.
func (s *Sender) OnChannelData(buf []byte, now time.Time) {
	resend := false
	for _, d := range s.codec.Decode(buf) {
		if !s.codec.Verify(d) {
			s.stats.Corrupt++
			observability.RecordCorruptFrame(roleSender)
			s.log.Warn().Err(d.Err).Int("checksum", d.Checksum).Msg("corrupt response")
			resend = true
			break
		}
		if d.Message.Kind == protocol.KindNack {
			s.stats.Nacks++
			s.log.Debug().Msg("nack received")
			resend = true
			break
		}
		if d.Message.Kind != protocol.KindAck {
			s.log.Debug().Stringer("msg", d.Message).Msg("ignoring non-ack message")
			continue
		}
		s.onAck(d.Message.Seq, now)
	}
	if resend {
		s.resendAll(now)
	}
}

func (s *Sender) onAck(seq uint64, now time.Time) {
	seg, ok := s.outbox.Remove(seq)
	if !ok {
		s.log.Debug().Uint64("seq", seq).Msg("ack for segment not in flight")
		return
	}
	rtt := now.Sub(seg.SentAt)
	if rtt < s.cfg.MinRTT {
		rtt = s.cfg.MinRTT
	}
	s.rtt = rtt
	s.window++
	s.stats.AcksMatched++
	observability.RecordAckMatched(rtt, s.window)
	s.log.Debug().
		Uint64("seq", seq).
		Dur("rtt", rtt).
		Int("window", s.window).
		Int("attempts", seg.Attempts).
		Msg("ack")
}

func (s *Sender) resendAll(now time.Time) {
	if s.outbox.Len() == 0 {
		return
	}
	segs := s.outbox.List()
	for _, seg := range segs {
		s.transmit(seg.Frame, protocol.KindData)
		s.outbox.MarkAttempt(seg.Seq, now)
	}
	s.stats.BatchResends++
	s.stats.Retransmits += uint64(len(segs))
	observability.RecordRetransmit("batch", len(segs))
	s.log.Info().Int("segments", len(segs)).Msg("resent outstanding window")
}

// OnInputReady admits chunks that are already available while the window
// has room. It never blocks on the input.
func (s *Sender) OnInputReady(input <-chan Chunk, now time.Time) error {
	for !s.doneReading && s.HasRoom() {
		select {
		case c, ok := <-input:
			if err := s.take(c, ok, now); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *Sender) take(c Chunk, ok bool, now time.Time) error {
	if !ok {
		s.doneReading = true
		s.log.Info().Uint64("segments", s.nextSeq).Msg("input exhausted")
		return nil
	}
	if c.Err != nil {
		return fmt.Errorf("%w: %w", ErrInputRead, c.Err)
	}
	return s.sendNew(c.Data, now)
}

func (s *Sender) sendNew(data []byte, now time.Time) error {
	seq := s.nextSeq
	out, err := s.codec.Encode(protocol.Data(seq, data))
	if err != nil {
		return err
	}
	seg := PendingSegment{Seq: seq, Size: len(data), Frame: out, SentAt: now, Attempts: 1}
	if err := s.outbox.Push(seg); err != nil {
		return err
	}
	s.transmit(out, protocol.KindData)
	s.nextSeq++
	s.stats.Segments++
	s.log.Debug().Uint64("seq", seq).Int("bytes", len(data)).Int("in_flight", s.outbox.Len()).Msg("segment sent")
	return nil
}

// CheckTimeouts retransmits each segment unacknowledged for longer than
// TimeoutMultiplier x rtt and shrinks the window by one per segment, never
// below one.
func (s *Sender) CheckTimeouts(now time.Time) {
	timeout := s.cfg.RetransmitTimeout(s.rtt)
	for _, seg := range s.outbox.Expired(now, timeout) {
		s.transmit(seg.Frame, protocol.KindData)
		s.outbox.MarkAttempt(seg.Seq, now)
		if s.window > 1 {
			s.window--
		}
		s.stats.Timeouts++
		s.stats.Retransmits++
		observability.RecordRetransmit("timeout", 1)
		observability.RecordWindow(s.window)
		s.log.Debug().
			Uint64("seq", seg.Seq).
			Dur("timeout", timeout).
			Int("window", s.window).
			Int("attempts", seg.Attempts).
			Msg("segment timed out")
	}
}

func (s *Sender) transmit(out []byte, kind protocol.Kind) {
	if _, err := s.conn.WriteTo(out, s.peer); err != nil {
		s.log.Warn().Err(err).Stringer("kind", kind).Msg("datagram send failed")
		return
	}
	observability.RecordFrameSent(roleSender, kind.String())
}

func (s *Sender) publish() {
	if s.board != nil {
		s.board.Publish(s.Stats())
	}
}
