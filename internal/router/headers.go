package router

import (
	"encoding/binary"
	"net/netip"
)

const (
	EthernetHeaderLen = 14
	IPv4HeaderLen     = 20
	ARPPacketLen      = 28
	ICMPHeaderLen     = 8

	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806

	ProtocolICMP = 1

	DefaultTTL = 64

	// MaxFrameLen bounds every receive buffer.
	MaxFrameLen = 1400

	icmpTypeEchoReply      = 0
	icmpTypeUnreachable    = 3
	icmpTypeEchoRequest    = 8
	icmpTypeTimeExceeded   = 11
	icmpCodeUnreachableNet = 0
	icmpCodeTTLExceeded    = 0
)

// EtherType reads the 13th/14th byte of an ethernet frame. The caller must
// have checked the frame length.
func EtherType(frame []byte) uint16 {
	return binary.BigEndian.Uint16(frame[12:14])
}

// SetEthernetAddrs rewrites the ethernet destination, source and type
// fields in place.
func SetEthernetAddrs(frame []byte, dst, src []byte, etherType uint16) {
	copy(frame[0:6], dst)
	copy(frame[6:12], src)
	binary.BigEndian.PutUint16(frame[12:14], etherType)
}

// IPv4Header is a zero-copy view over a 20-byte IPv4 header. Options are
// not interpreted; the dataplane treats the header as fixed-size, matching
// the wire formats it generates.
type IPv4Header []byte

func (h IPv4Header) TotalLen() uint16     { return binary.BigEndian.Uint16(h[2:4]) }
func (h IPv4Header) SetTotalLen(v uint16) { binary.BigEndian.PutUint16(h[2:4], v) }

func (h IPv4Header) TTL() uint8     { return h[8] }
func (h IPv4Header) SetTTL(v uint8) { h[8] = v }

func (h IPv4Header) Protocol() uint8     { return h[9] }
func (h IPv4Header) SetProtocol(v uint8) { h[9] = v }

func (h IPv4Header) Checksum() uint16     { return binary.BigEndian.Uint16(h[10:12]) }
func (h IPv4Header) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h[10:12], v) }

func (h IPv4Header) Src() uint32     { return binary.BigEndian.Uint32(h[12:16]) }
func (h IPv4Header) SetSrc(v uint32) { binary.BigEndian.PutUint32(h[12:16], v) }

func (h IPv4Header) Dst() uint32     { return binary.BigEndian.Uint32(h[16:20]) }
func (h IPv4Header) SetDst(v uint32) { binary.BigEndian.PutUint32(h[16:20], v) }

// ChecksumValid reports whether the stored checksum is consistent with the
// header contents. A correctly checksummed header sums to zero, so the
// field does not need to be cleared first.
func (h IPv4Header) ChecksumValid() bool {
	return Checksum(h[:IPv4HeaderLen]) == 0
}

// UpdateChecksum clears and recomputes the header checksum.
func (h IPv4Header) UpdateChecksum() {
	h.SetChecksum(0)
	h.SetChecksum(Checksum(h[:IPv4HeaderLen]))
}

// ICMPHeader is a zero-copy view over an 8-byte ICMP header.
type ICMPHeader []byte

func (h ICMPHeader) Type() uint8     { return h[0] }
func (h ICMPHeader) SetType(v uint8) { h[0] = v }

func (h ICMPHeader) Code() uint8     { return h[1] }
func (h ICMPHeader) SetCode(v uint8) { h[1] = v }

func (h ICMPHeader) Checksum() uint16     { return binary.BigEndian.Uint16(h[2:4]) }
func (h ICMPHeader) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h[2:4], v) }

// ZeroRest clears the type-specific trailing 4 bytes of the header.
func (h ICMPHeader) ZeroRest() {
	h[4], h[5], h[6], h[7] = 0, 0, 0, 0
}

// Checksum computes the RFC 1071 one's-complement sum over b, reading
// 16-bit words in network order. An odd trailing byte is padded with zero.
func Checksum(b []byte) uint16 {
	var sum uint32
	for len(b) >= 2 {
		sum += uint32(b[0])<<8 | uint32(b[1])
		b = b[2:]
	}
	if len(b) == 1 {
		sum += uint32(b[0]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}

// AddrToUint32 converts an IPv4 address to its numeric (host-order) value.
func AddrToUint32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Uint32ToAddr is the inverse of AddrToUint32.
func Uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
