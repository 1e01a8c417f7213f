//go:build linux

package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/router"
)

// Frame is one received ethernet frame tagged with its ingress interface
// index. Data is an owned copy, safe to retain.
type Frame struct {
	Iface int
	Data  []byte
}

type capturePort struct {
	name   string
	handle *afpacket.TPacket
}

// AFPacket owns one AF_PACKET socket per router interface. The interface
// index used throughout the dataplane is the position of the name in the
// Open call.
type AFPacket struct {
	ports []capturePort
	log   log.Logger
}

// Open binds a TPACKET ring to every named interface and installs the
// configured BPF filter. On any failure all already-open sockets are
// closed before returning.
func Open(names []string, opts Options) (*AFPacket, error) {
	opts = opts.withDefaults()

	filter, err := compileFilter(opts.Filter, opts.SnapLen)
	if err != nil {
		return nil, err
	}

	l := &AFPacket{
		ports: make([]capturePort, 0, len(names)),
		log:   log.GetLogger().WithField("component", "link"),
	}

	ok := false
	defer func() {
		if !ok {
			l.Close()
		}
	}()

	for _, name := range names {
		handle, err := afpacket.NewTPacket(
			afpacket.OptInterface(name),
			afpacket.OptFrameSize(opts.SnapLen),
			afpacket.OptBlockSize(opts.BlockSize),
			afpacket.OptNumBlocks(opts.NumBlocks),
			afpacket.OptPollTimeout(100*time.Millisecond),
		)
		if err != nil {
			return nil, fmt.Errorf("link: failed to open %s: %w", name, err)
		}
		if err := handle.SetBPF(filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("link: failed to set BPF filter on %s: %w", name, err)
		}
		l.ports = append(l.ports, capturePort{name: name, handle: handle})
	}

	ok = true
	return l, nil
}

// Run reads frames from every interface into the channel until ctx is
// cancelled. Each interface gets its own reader goroutine; the channel
// serializes delivery to the single consumer.
func (l *AFPacket) Run(ctx context.Context, frames chan<- Frame) {
	for i := range l.ports {
		go l.readLoop(ctx, i, frames)
	}
}

func (l *AFPacket) readLoop(ctx context.Context, iface int, frames chan<- Frame) {
	port := l.ports[iface]
	for {
		if ctx.Err() != nil {
			return
		}

		data, _, err := port.handle.ZeroCopyReadPacketData()
		if err != nil {
			if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, afpacket.ErrPoll) {
				l.log.WithError(err).Errorf("poll failed on %s", port.name)
				continue
			}
			l.log.WithError(err).Errorf("read failed on %s, stopping reader", port.name)
			return
		}

		if len(data) > router.MaxFrameLen {
			data = data[:router.MaxFrameLen]
		}
		buf := make([]byte, len(data))
		copy(buf, data)

		select {
		case frames <- Frame{Iface: iface, Data: buf}:
		case <-ctx.Done():
			return
		}
	}
}

// Send transmits a raw ethernet frame on the given interface.
func (l *AFPacket) Send(iface int, frame []byte) error {
	if iface < 0 || iface >= len(l.ports) {
		return router.ErrUnknownIface
	}
	return l.ports[iface].handle.WritePacketData(frame)
}

// InterfaceInfo looks up the IPv4 address and MAC of an interface from
// the OS.
func (l *AFPacket) InterfaceInfo(iface int) (router.IfaceInfo, error) {
	if iface < 0 || iface >= len(l.ports) {
		return router.IfaceInfo{}, router.ErrUnknownIface
	}

	netIface, err := net.InterfaceByName(l.ports[iface].name)
	if err != nil {
		return router.IfaceInfo{}, fmt.Errorf("link: failed to look up %s: %w", l.ports[iface].name, err)
	}
	addrs, err := netIface.Addrs()
	if err != nil {
		return router.IfaceInfo{}, fmt.Errorf("link: failed to list addresses of %s: %w", l.ports[iface].name, err)
	}

	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			addr := netip.AddrFrom4([4]byte(v4))
			return router.IfaceInfo{IP: addr, MAC: netIface.HardwareAddr}, nil
		}
	}
	return router.IfaceInfo{}, router.ErrNoInterfaceAddr
}

// Close releases every socket. Safe to call more than once.
func (l *AFPacket) Close() {
	for _, p := range l.ports {
		if p.handle != nil {
			p.handle.Close()
		}
	}
	l.ports = nil
}

// compileFilter turns a pcap filter expression into raw instructions the
// AF_PACKET socket accepts.
func compileFilter(expr string, snapLen int) ([]bpf.RawInstruction, error) {
	prog, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("link: failed to compile filter %q: %w", expr, err)
	}

	raw := make([]bpf.RawInstruction, len(prog))
	for i, ins := range prog {
		raw[i] = bpf.RawInstruction{
			Op: ins.Code,
			Jt: ins.Jt,
			Jf: ins.Jf,
			K:  ins.K,
		}
	}
	return raw, nil
}
