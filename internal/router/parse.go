package router

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/praserx/ipconv"
)

// ParseRouteFile reads a routing table in the textual format
// "<prefix> <next_hop> <mask> <interface>", one entry per line. Blank
// lines are skipped.
func ParseRouteFile(path string) ([]RouteEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("router: failed to open routing table: %w", err)
	}
	defer f.Close()

	var entries []RouteEntry

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: line %d of %s", ErrBadTableFormat, lineNo, path)
		}

		prefix, err := parseIPv4(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTableFormat, lineNo, err)
		}
		nextHop, err := parseIPv4(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTableFormat, lineNo, err)
		}
		mask, err := parseIPv4(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTableFormat, lineNo, err)
		}
		iface, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad interface index %q", ErrBadTableFormat, lineNo, fields[3])
		}

		entries = append(entries, RouteEntry{
			Prefix:  prefix,
			Mask:    mask,
			NextHop: nextHop,
			Iface:   iface,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("router: failed to read routing table: %w", err)
	}

	return entries, nil
}

// StaticArpEntry is one "<ip> <mac>" line of a static ARP file.
type StaticArpEntry struct {
	IP  uint32
	MAC net.HardwareAddr
}

// ParseArpFile reads a static ARP table: "<ip> <XX:XX:XX:XX:XX:XX>" per
// line.
func ParseArpFile(path string) ([]StaticArpEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("router: failed to open ARP table: %w", err)
	}
	defer f.Close()

	var entries []StaticArpEntry

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d of %s", ErrBadTableFormat, lineNo, path)
		}

		ip, err := parseIPv4(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTableFormat, lineNo, err)
		}
		mac, err := net.ParseMAC(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTableFormat, lineNo, err)
		}

		entries = append(entries, StaticArpEntry{IP: ip, MAC: mac})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("router: failed to read ARP table: %w", err)
	}

	return entries, nil
}

func parseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return 0, fmt.Errorf("bad IPv4 address %q", s)
	}
	return ipconv.IPv4ToInt(ip.To4())
}
