package wire

import "errors"

var (
	ErrShortBuffer        = errors.New("wire: buffer too small")
	ErrFrameTooLarge      = errors.New("wire: frame exceeds maximum size")
	ErrUnknownMessageType = errors.New("wire: unknown message type")
	ErrUnknownRequestType = errors.New("wire: unknown request type")
	ErrUnknownPayloadType = errors.New("wire: unknown payload type")
	ErrValueTooLong       = errors.New("wire: value exceeds maximum length")
)
