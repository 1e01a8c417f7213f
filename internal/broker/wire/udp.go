package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// TopicWireLen is the fixed, null-padded topic field size in a
	// publisher datagram.
	TopicWireLen = 50
	// MaxStringLen bounds a STRING payload. Longer input is silently
	// truncated, matching the tolerant decoder contract.
	MaxStringLen = 1500

	// MinUDPSize is the smallest decodable datagram: topic, type byte
	// and a one-byte STRING payload.
	MinUDPSize = TopicWireLen + 1 + 1
	// MaxUDPSize bounds the receive buffer.
	MaxUDPSize = TopicWireLen + 1 + MaxStringLen
)

// UDPMessage is one decoded publisher datagram.
type UDPMessage struct {
	Topic   string
	Payload Payload
}

// DecodeUDP parses a publisher datagram: a 50-byte null-padded topic, a
// payload type byte and the typed payload. Oversize payloads are
// truncated to their maximum; undersize ones fail.
func DecodeUDP(b []byte) (UDPMessage, error) {
	if len(b) < MinUDPSize {
		return UDPMessage{}, fmt.Errorf("%w: datagram of %d bytes", ErrShortBuffer, len(b))
	}

	topic := cString(b[:TopicWireLen])
	payloadType := PayloadType(b[TopicWireLen])
	payload := b[TopicWireLen+1:]

	var decoded Payload
	switch payloadType {
	case PayloadInt:
		if len(payload) < 5 {
			return UDPMessage{}, fmt.Errorf("%w: INT payload of %d bytes", ErrShortBuffer, len(payload))
		}
		decoded = IntPayload{
			Sign: payload[0],
			Abs:  binary.BigEndian.Uint32(payload[1:5]),
		}
	case PayloadShortReal:
		if len(payload) < 2 {
			return UDPMessage{}, fmt.Errorf("%w: SHORT_REAL payload of %d bytes", ErrShortBuffer, len(payload))
		}
		decoded = ShortRealPayload{
			Hundredths: binary.BigEndian.Uint16(payload[0:2]),
		}
	case PayloadFloat:
		if len(payload) < 6 {
			return UDPMessage{}, fmt.Errorf("%w: FLOAT payload of %d bytes", ErrShortBuffer, len(payload))
		}
		decoded = FloatPayload{
			Sign:     payload[0],
			Mantissa: binary.BigEndian.Uint32(payload[1:5]),
			Exponent: payload[5],
		}
	case PayloadString:
		if len(payload) > MaxStringLen {
			payload = payload[:MaxStringLen]
		}
		decoded = StringPayload{Text: cString(payload)}
	default:
		return UDPMessage{}, fmt.Errorf("%w: %d", ErrUnknownPayloadType, uint8(payloadType))
	}

	return UDPMessage{Topic: topic, Payload: decoded}, nil
}

// cString interprets b as a null-padded string, stopping at the first
// NUL byte.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
