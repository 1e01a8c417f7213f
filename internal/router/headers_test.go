package router

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumKnownVector(t *testing.T) {
	// Example header from RFC 1071 discussions: checksum field zeroed.
	h := []byte{
		0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00,
		0x40, 0x11, 0x00, 0x00, 0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0xc7,
	}
	got := Checksum(h)
	assert.Equal(t, uint16(0xb861), got)
}

func TestChecksumRoundTrip(t *testing.T) {
	headers := [][]byte{
		{
			0x45, 0x00, 0x00, 0x54, 0x1c, 0x46, 0x40, 0x00,
			0x40, 0x01, 0x00, 0x00, 0xac, 0x10, 0x0a, 0x63,
			0xac, 0x10, 0x0a, 0x0c,
		},
		{
			0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00,
			0x40, 0x11, 0x00, 0x00, 0xc0, 0xa8, 0x00, 0x01,
			0xc0, 0xa8, 0x00, 0xc7,
		},
		{
			0x45, 0x10, 0x05, 0xdc, 0xff, 0xff, 0x00, 0x00,
			0x01, 0x06, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x01,
			0xff, 0xff, 0xff, 0xff,
		},
	}

	for _, h := range headers {
		c := Checksum(h)
		binary.BigEndian.PutUint16(h[10:12], c)
		assert.Equal(t, uint16(0), Checksum(h), "checksummed header must sum to zero")
		assert.True(t, IPv4Header(h).ChecksumValid())
	}
}

func TestChecksumOddLength(t *testing.T) {
	// An odd trailing byte is padded with a zero low byte.
	assert.Equal(t, Checksum([]byte{0x12, 0x34, 0x56, 0x00}), Checksum([]byte{0x12, 0x34, 0x56}))
}

func TestIPv4HeaderAccessors(t *testing.T) {
	h := make(IPv4Header, IPv4HeaderLen)

	h.SetTTL(64)
	h.SetProtocol(ProtocolICMP)
	h.SetTotalLen(84)
	h.SetSrc(0x0A000001)
	h.SetDst(0xC0A80101)

	assert.Equal(t, uint8(64), h.TTL())
	assert.Equal(t, uint8(ProtocolICMP), h.Protocol())
	assert.Equal(t, uint16(84), h.TotalLen())
	assert.Equal(t, uint32(0x0A000001), h.Src())
	assert.Equal(t, uint32(0xC0A80101), h.Dst())
}

func TestAddrConversionRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x0A000001, 0xC0A80101, 0xFFFFFFFF} {
		assert.Equal(t, v, AddrToUint32(Uint32ToAddr(v)))
	}
	assert.Equal(t, "10.0.0.1", Uint32ToAddr(0x0A000001).String())
}
