package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
)

// MessageType discriminates the two TCP frame directions.
type MessageType uint8

const (
	MessageRequest MessageType = iota
	MessageResponse
)

// RequestType discriminates subscriber requests.
type RequestType uint8

const (
	RequestConnect RequestType = iota
	RequestSubscribe
	RequestUnsubscribe
)

func (t RequestType) String() string {
	switch t {
	case RequestConnect:
		return "CONNECT"
	case RequestSubscribe:
		return "SUBSCRIBE"
	case RequestUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

const (
	// MaxClientIDLen bounds a CONNECT identity.
	MaxClientIDLen = 10
	// MaxTopicLen bounds both subscription patterns and response topics.
	MaxTopicLen = 50

	// frameHeaderLen is the (type, payload length) prefix.
	frameHeaderLen = 1 + 2

	maxRequestPayload  = 1 + 1 + MaxTopicLen
	maxResponsePayload = 4 + 2 + 1 + MaxTopicLen + 1 + 2 + MaxStringLen

	// MaxFramePayload is the upper bound a receiver accepts for the
	// length prefix of either direction.
	MaxFramePayload = maxResponsePayload
)

// Request is a subscriber-to-server message. Value carries the client id
// for CONNECT and the topic pattern for SUBSCRIBE/UNSUBSCRIBE.
type Request struct {
	Type  RequestType
	Value string
}

// Response is one server-to-subscriber publication. ClientIP and
// ClientPort identify the UDP publisher; both are numeric host-order
// values.
type Response struct {
	ClientIP   uint32
	ClientPort uint16
	Topic      string
	Payload    Payload
}

// ClientAddr returns the publisher address as a printable netip.Addr.
func (r Response) ClientAddr() netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], r.ClientIP)
	return netip.AddrFrom4(b)
}

func (r Request) maxValueLen() int {
	if r.Type == RequestConnect {
		return MaxClientIDLen
	}
	return MaxTopicLen
}

// EncodeRequestFrame serializes a complete request frame, header
// included.
func (r Request) EncodeRequestFrame() ([]byte, error) {
	switch r.Type {
	case RequestConnect, RequestSubscribe, RequestUnsubscribe:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRequestType, uint8(r.Type))
	}
	if len(r.Value) > r.maxValueLen() {
		return nil, fmt.Errorf("%w: %s of %d bytes", ErrValueTooLong, r.Type, len(r.Value))
	}

	payloadLen := 1 + 1 + len(r.Value)
	b := make([]byte, 0, frameHeaderLen+payloadLen)
	b = append(b, byte(MessageRequest))
	b = binary.BigEndian.AppendUint16(b, uint16(payloadLen))
	b = append(b, byte(r.Type), byte(len(r.Value)))
	b = append(b, r.Value...)
	return b, nil
}

// DecodeRequest parses a request frame payload (without the frame
// header).
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < 2 {
		return Request{}, fmt.Errorf("%w: request payload of %d bytes", ErrShortBuffer, len(b))
	}

	r := Request{Type: RequestType(b[0])}
	switch r.Type {
	case RequestConnect, RequestSubscribe, RequestUnsubscribe:
	default:
		return Request{}, fmt.Errorf("%w: %d", ErrUnknownRequestType, b[0])
	}

	valueLen := int(b[1])
	if valueLen > r.maxValueLen() {
		return Request{}, fmt.Errorf("%w: %s of %d bytes", ErrValueTooLong, r.Type, valueLen)
	}
	if len(b) < 2+valueLen {
		return Request{}, fmt.Errorf("%w: request payload of %d bytes", ErrShortBuffer, len(b))
	}

	r.Value = string(b[2 : 2+valueLen])
	return r, nil
}

// EncodeResponseFrame serializes a complete response frame, header
// included.
func (r Response) EncodeResponseFrame() ([]byte, error) {
	if len(r.Topic) > MaxTopicLen {
		return nil, fmt.Errorf("%w: topic of %d bytes", ErrValueTooLong, len(r.Topic))
	}
	if s, ok := r.Payload.(StringPayload); ok && len(s.Text) > MaxStringLen {
		return nil, fmt.Errorf("%w: string payload of %d bytes", ErrValueTooLong, len(s.Text))
	}

	b := make([]byte, frameHeaderLen, frameHeaderLen+maxResponsePayload)
	b[0] = byte(MessageResponse)

	b = binary.BigEndian.AppendUint32(b, r.ClientIP)
	b = binary.BigEndian.AppendUint16(b, r.ClientPort)
	b = append(b, byte(len(r.Topic)))
	b = append(b, r.Topic...)
	b = append(b, byte(r.Payload.Type()))
	b = r.Payload.appendWire(b)

	binary.BigEndian.PutUint16(b[1:3], uint16(len(b)-frameHeaderLen))
	return b, nil
}

// DecodeResponse parses a response frame payload (without the frame
// header).
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < 4+2+1 {
		return Response{}, fmt.Errorf("%w: response payload of %d bytes", ErrShortBuffer, len(b))
	}

	var r Response
	r.ClientIP = binary.BigEndian.Uint32(b[0:4])
	r.ClientPort = binary.BigEndian.Uint16(b[4:6])

	topicLen := int(b[6])
	if topicLen > MaxTopicLen {
		return Response{}, fmt.Errorf("%w: topic of %d bytes", ErrValueTooLong, topicLen)
	}
	b = b[7:]
	if len(b) < topicLen+1 {
		return Response{}, fmt.Errorf("%w: truncated topic", ErrShortBuffer)
	}
	r.Topic = string(b[:topicLen])

	payloadType := PayloadType(b[topicLen])
	payload := b[topicLen+1:]

	switch payloadType {
	case PayloadInt:
		if len(payload) < 5 {
			return Response{}, fmt.Errorf("%w: INT payload of %d bytes", ErrShortBuffer, len(payload))
		}
		r.Payload = IntPayload{Sign: payload[0], Abs: binary.BigEndian.Uint32(payload[1:5])}
	case PayloadShortReal:
		if len(payload) < 2 {
			return Response{}, fmt.Errorf("%w: SHORT_REAL payload of %d bytes", ErrShortBuffer, len(payload))
		}
		r.Payload = ShortRealPayload{Hundredths: binary.BigEndian.Uint16(payload[0:2])}
	case PayloadFloat:
		if len(payload) < 6 {
			return Response{}, fmt.Errorf("%w: FLOAT payload of %d bytes", ErrShortBuffer, len(payload))
		}
		r.Payload = FloatPayload{
			Sign:     payload[0],
			Mantissa: binary.BigEndian.Uint32(payload[1:5]),
			Exponent: payload[5],
		}
	case PayloadString:
		if len(payload) < 2 {
			return Response{}, fmt.Errorf("%w: STRING payload of %d bytes", ErrShortBuffer, len(payload))
		}
		strLen := int(binary.BigEndian.Uint16(payload[0:2]))
		if strLen > MaxStringLen {
			return Response{}, fmt.Errorf("%w: string payload of %d bytes", ErrValueTooLong, strLen)
		}
		if len(payload) < 2+strLen {
			return Response{}, fmt.Errorf("%w: truncated string payload", ErrShortBuffer)
		}
		r.Payload = StringPayload{Text: string(payload[2 : 2+strLen])}
	default:
		return Response{}, fmt.Errorf("%w: %d", ErrUnknownPayloadType, uint8(payloadType))
	}

	return r, nil
}

// ReadFrame reads one length-prefixed frame from the stream and returns
// its type and payload. io.EOF on a clean close before any header byte;
// io.ErrUnexpectedEOF on a mid-frame close.
func ReadFrame(rd io.Reader) (MessageType, []byte, error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(rd, header[:]); err != nil {
		return 0, nil, err
	}

	msgType := MessageType(header[0])
	if msgType != MessageRequest && msgType != MessageResponse {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, header[0])
	}

	payloadLen := int(binary.BigEndian.Uint16(header[1:3]))
	if payloadLen > MaxFramePayload {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(rd, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	return msgType, payload, nil
}
