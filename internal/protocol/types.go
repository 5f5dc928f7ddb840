package protocol

import "fmt"

// MaxPayload bounds the bytes carried by one data segment.
const MaxPayload = 1375

// Kind tags which variant a Message holds.
type Kind uint8

const (
	KindData Kind = iota + 1
	KindAck
	KindNack
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAck:
		return "ack"
	case KindNack:
		return "nack"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is one protocol message. Seq is meaningful for data and ack,
// Payload only for data.
type Message struct {
	Kind    Kind
	Seq     uint64
	Payload []byte
}

func Data(seq uint64, payload []byte) Message {
	return Message{Kind: KindData, Seq: seq, Payload: payload}
}

func Ack(seq uint64) Message {
	return Message{Kind: KindAck, Seq: seq}
}

func Nack() Message {
	return Message{Kind: KindNack}
}

func (m Message) Validate() error {
	switch m.Kind {
	case KindData:
		if len(m.Payload) > MaxPayload {
			return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(m.Payload), MaxPayload)
		}
		return nil
	case KindAck, KindNack:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, m.Kind)
	}
}

func (m Message) String() string {
	switch m.Kind {
	case KindData:
		return fmt.Sprintf("data{s=%d len=%d}", m.Seq, len(m.Payload))
	case KindAck:
		return fmt.Sprintf("ack{s=%d}", m.Seq)
	default:
		return m.Kind.String() + "{}"
	}
}
