package protocol

import "errors"

var (
	ErrMalformed       = errors.New("protocol: malformed message")
	ErrUnknownKind     = errors.New("protocol: unknown message kind")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrPayloadByte     = errors.New("protocol: payload code point out of byte range")
)
