// Package wire implements the broker's binary protocols: typed UDP
// publisher payloads and length-prefixed TCP frames.
package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// PayloadType discriminates the four publisher payload encodings.
type PayloadType uint8

const (
	PayloadInt PayloadType = iota
	PayloadShortReal
	PayloadFloat
	PayloadString
)

func (t PayloadType) String() string {
	switch t {
	case PayloadInt:
		return "INT"
	case PayloadShortReal:
		return "SHORT_REAL"
	case PayloadFloat:
		return "FLOAT"
	case PayloadString:
		return "STRING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// maxWireSize bounds the serialized size of a response payload variant.
// The table keys the per-variant maximum by tag; the largest entry
// (STRING) equals the variant term of maxResponsePayload in tcp.go.
func (t PayloadType) maxWireSize() int {
	switch t {
	case PayloadInt:
		return 1 + 4
	case PayloadShortReal:
		return 2
	case PayloadFloat:
		return 1 + 4 + 1
	case PayloadString:
		return 2 + MaxStringLen
	default:
		return 0
	}
}

// Payload is one of the four typed values carried from publishers to
// subscribers.
type Payload interface {
	Type() PayloadType
	// Value renders the payload the way the subscriber prints it.
	Value() string

	appendWire(b []byte) []byte
}

// IntPayload is a sign byte plus 32-bit magnitude.
type IntPayload struct {
	Sign uint8
	Abs  uint32
}

func (p IntPayload) Type() PayloadType { return PayloadInt }

func (p IntPayload) Value() string {
	if p.Sign != 0 && p.Abs != 0 {
		return fmt.Sprintf("-%d", p.Abs)
	}
	return fmt.Sprintf("%d", p.Abs)
}

func (p IntPayload) appendWire(b []byte) []byte {
	b = append(b, p.Sign)
	return binary.BigEndian.AppendUint32(b, p.Abs)
}

// ShortRealPayload is a non-negative real scaled by 100.
type ShortRealPayload struct {
	Hundredths uint16
}

func (p ShortRealPayload) Type() PayloadType { return PayloadShortReal }

func (p ShortRealPayload) Value() string {
	return fmt.Sprintf("%d.%02d", p.Hundredths/100, p.Hundredths%100)
}

func (p ShortRealPayload) appendWire(b []byte) []byte {
	return binary.BigEndian.AppendUint16(b, p.Hundredths)
}

// FloatPayload represents (-1)^Sign * Mantissa * 10^(-Exponent).
type FloatPayload struct {
	Sign     uint8
	Mantissa uint32
	Exponent uint8
}

func (p FloatPayload) Type() PayloadType { return PayloadFloat }

func (p FloatPayload) Value() string {
	var sb strings.Builder
	if p.Sign != 0 && p.Mantissa != 0 {
		sb.WriteByte('-')
	}

	digits := strconv.FormatUint(uint64(p.Mantissa), 10)
	exp := int(p.Exponent)
	switch {
	case exp == 0:
		sb.WriteString(digits)
	case exp >= len(digits):
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", exp-len(digits)))
		sb.WriteString(digits)
	default:
		sb.WriteString(digits[:len(digits)-exp])
		sb.WriteByte('.')
		sb.WriteString(digits[len(digits)-exp:])
	}
	return sb.String()
}

func (p FloatPayload) appendWire(b []byte) []byte {
	b = append(b, p.Sign)
	b = binary.BigEndian.AppendUint32(b, p.Mantissa)
	return append(b, p.Exponent)
}

// StringPayload is an opaque text value.
type StringPayload struct {
	Text string
}

func (p StringPayload) Type() PayloadType { return PayloadString }

func (p StringPayload) Value() string { return p.Text }

func (p StringPayload) appendWire(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(p.Text)))
	return append(b, p.Text...)
}
