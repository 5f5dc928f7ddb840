package protocol

import "strconv"

const hexDigits = "0123456789abcdef"

// Marshal renders m in canonical form:
//
//	data: {"data": "<chunk>", "s": <seq>}
//	ack:  {"s": <seq>}
//	nack: {}
//
// Each payload byte is one code point in U+0000..U+00FF. Bytes outside
// printable ASCII are written as \u00XX so the body is always ASCII.
func Marshal(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return AppendMarshal(make([]byte, 0, marshalSizeHint(m)), m), nil
}

// AppendMarshal appends the canonical form of an already validated message.
func AppendMarshal(dst []byte, m Message) []byte {
	switch m.Kind {
	case KindData:
		dst = append(dst, `{"data": "`...)
		dst = appendEscaped(dst, m.Payload)
		dst = append(dst, `", "s": `...)
		dst = strconv.AppendUint(dst, m.Seq, 10)
		return append(dst, '}')
	case KindAck:
		dst = append(dst, `{"s": `...)
		dst = strconv.AppendUint(dst, m.Seq, 10)
		return append(dst, '}')
	default:
		return append(dst, '{', '}')
	}
}

func appendEscaped(dst []byte, payload []byte) []byte {
	for _, b := range payload {
		switch b {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			if b < 0x20 || b > 0x7e {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0x0f])
				continue
			}
			dst = append(dst, b)
		}
	}
	return dst
}

func marshalSizeHint(m Message) int {
	// worst case is six bytes per escaped payload byte
	return 32 + 6*len(m.Payload)
}
