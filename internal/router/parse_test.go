package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseRouteFile(t *testing.T) {
	path := writeFile(t, "rtable.txt", `
10.0.0.0 10.0.0.1 255.0.0.0 1
192.168.1.0 192.168.1.1 255.255.255.0 0

0.0.0.0 10.0.0.1 0.0.0.0 1
`)

	entries, err := ParseRouteFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, RouteEntry{
		Prefix:  0x0A000000,
		Mask:    0xFF000000,
		NextHop: 0x0A000001,
		Iface:   1,
	}, entries[0])
	assert.Equal(t, RouteEntry{
		Prefix:  0xC0A80100,
		Mask:    0xFFFFFF00,
		NextHop: 0xC0A80101,
		Iface:   0,
	}, entries[1])
	assert.Equal(t, RouteEntry{Prefix: 0, Mask: 0, NextHop: 0x0A000001, Iface: 1}, entries[2])
}

func TestParseRouteFileErrors(t *testing.T) {
	_, err := ParseRouteFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = ParseRouteFile(writeFile(t, "short.txt", "10.0.0.0 10.0.0.1 255.0.0.0\n"))
	assert.ErrorIs(t, err, ErrBadTableFormat)

	_, err = ParseRouteFile(writeFile(t, "badip.txt", "10.0.0.x 10.0.0.1 255.0.0.0 1\n"))
	assert.ErrorIs(t, err, ErrBadTableFormat)

	_, err = ParseRouteFile(writeFile(t, "badiface.txt", "10.0.0.0 10.0.0.1 255.0.0.0 one\n"))
	assert.ErrorIs(t, err, ErrBadTableFormat)
}

func TestParseArpFile(t *testing.T) {
	path := writeFile(t, "arp.txt", `
10.0.0.1 aa:bb:cc:dd:ee:ff
10.0.0.2 02:00:00:00:00:01
`)

	entries, err := ParseArpFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint32(0x0A000001), entries[0].IP)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", entries[0].MAC.String())
}

func TestParseArpFileErrors(t *testing.T) {
	_, err := ParseArpFile(writeFile(t, "badmac.txt", "10.0.0.1 nonsense\n"))
	assert.ErrorIs(t, err, ErrBadTableFormat)
}

func TestRoutingTableRejectsNonContiguousMask(t *testing.T) {
	rt := NewRoutingTable()
	err := rt.AddEntry(RouteEntry{Prefix: 0x0A000000, Mask: 0xFF00FF00, NextHop: 1, Iface: 0})
	assert.ErrorIs(t, err, ErrBadRouteEntry)
}
