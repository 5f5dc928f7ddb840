package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	keyData = "data"
	keySeq  = "s"
)

// Unmarshal parses a canonical body into a Message. The variant is chosen
// from the exact key set present: {} is a nack, {"s"} an ack and
// {"data","s"} a data segment. Any other shape is malformed.
func Unmarshal(body []byte) (Message, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Message{}, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch len(raw) {
	case 0:
		return Nack(), nil
	case 1:
		seq, err := decodeSeq(raw)
		if err != nil {
			return Message{}, err
		}
		return Ack(seq), nil
	case 2:
		seq, err := decodeSeq(raw)
		if err != nil {
			return Message{}, err
		}
		rawData, ok := raw[keyData]
		if !ok {
			return Message{}, fmt.Errorf("%w: missing %q", ErrMalformed, keyData)
		}
		payload, err := decodePayload(rawData)
		if err != nil {
			return Message{}, err
		}
		return Data(seq, payload), nil
	default:
		return Message{}, fmt.Errorf("%w: unexpected key count %d", ErrMalformed, len(raw))
	}
}

func decodeSeq(raw map[string]json.RawMessage) (uint64, error) {
	v, ok := raw[keySeq]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformed, keySeq)
	}
	var seq uint64
	if err := json.Unmarshal(v, &seq); err != nil {
		return 0, fmt.Errorf("%w: sequence: %v", ErrMalformed, err)
	}
	return seq, nil
}

func decodePayload(v json.RawMessage) ([]byte, error) {
	var text string
	if err := json.Unmarshal(v, &text); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformed, err)
	}
	payload := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xff {
			return nil, fmt.Errorf("%w: U+%04X", ErrPayloadByte, r)
		}
		payload = append(payload, byte(r))
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayload)
	}
	return payload, nil
}
