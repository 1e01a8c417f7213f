package router

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"

	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/metrics"
)

// IfaceInfo is the (IP, MAC) pair of one router interface.
type IfaceInfo struct {
	IP  netip.Addr
	MAC net.HardwareAddr
}

// Link is the raw frame transport the router runs on. Implementations
// must deliver frames verbatim and report per-interface addressing.
type Link interface {
	// Send transmits a full ethernet frame on the given interface.
	Send(iface int, frame []byte) error
	// InterfaceInfo returns the IPv4 address and MAC of an interface.
	InterfaceInfo(iface int) (IfaceInfo, error)
}

// Router is the IPv4 dataplane: ethernet dispatch, ARP resolution, LPM
// forwarding and ICMP signalling. It is not safe for concurrent use; all
// frames must be handed to it from a single goroutine.
type Router struct {
	rtable *RoutingTable
	arp    *ArpTable
	link   Link
	ifaces map[int]IfaceInfo
	log    log.Logger
}

func New(link Link) *Router {
	return &Router{
		rtable: NewRoutingTable(),
		arp:    NewArpTable(),
		link:   link,
		ifaces: make(map[int]IfaceInfo),
		log:    log.GetLogger().WithField("component", "router"),
	}
}

// AddRoute adds one forwarding rule. Routes may only be added before the
// first frame is handled.
func (r *Router) AddRoute(e RouteEntry) error {
	return r.rtable.AddEntry(e)
}

// AddRoutes adds a batch of forwarding rules.
func (r *Router) AddRoutes(entries []RouteEntry) error {
	return r.rtable.AddEntries(entries)
}

// AddStaticARP seeds the ARP table, bypassing resolution for ip.
func (r *Router) AddStaticARP(ip uint32, mac net.HardwareAddr) {
	r.arp.AddEntry(ip, mac)
}

// HandleFrame dispatches one received ethernet frame. Malformed or
// unroutable input never propagates an error: the frame is dropped and
// the loop keeps running.
func (r *Router) HandleFrame(frame []byte, iface int) {
	metrics.RouterFramesTotal.WithLabelValues(ifaceLabel(iface)).Inc()

	if len(frame) < EthernetHeaderLen {
		r.log.Error("cannot read ethernet header, frame too small")
		metrics.RouterDropsTotal.WithLabelValues("runt").Inc()
		return
	}

	switch et := EtherType(frame); et {
	case EtherTypeARP:
		r.handleARP(frame, iface)
	case EtherTypeIPv4:
		r.handleIPv4(frame, iface)
	default:
		r.log.Debugf("dropping frame with unhandled ethertype 0x%04x", et)
		metrics.RouterDropsTotal.WithLabelValues("ethertype").Inc()
	}
}

func (r *Router) handleARP(frame []byte, iface int) {
	if len(frame) < EthernetHeaderLen+ARPPacketLen {
		r.log.Error("cannot read ARP packet, frame too small")
		metrics.RouterDropsTotal.WithLabelValues("runt").Inc()
		return
	}

	var pkt arp.Packet
	if err := pkt.UnmarshalBinary(frame[EthernetHeaderLen:]); err != nil {
		r.log.WithError(err).Error("failed to parse ARP packet")
		metrics.RouterDropsTotal.WithLabelValues("malformed").Inc()
		return
	}

	switch pkt.Operation {
	case arp.OperationRequest:
		r.handleARPRequest(&pkt, iface)
	case arp.OperationReply:
		r.handleARPReply(&pkt)
	default:
		r.log.Errorf("unknown ARP opcode %d", pkt.Operation)
	}
}

func (r *Router) handleARPRequest(pkt *arp.Packet, iface int) {
	info, err := r.interfaceInfo(iface)
	if err != nil {
		r.log.WithError(err).Errorf("no address information for interface %d", iface)
		return
	}

	if pkt.TargetIP != info.IP {
		r.log.Debug("ARP request not for this router, ignoring")
		return
	}

	reply := &arp.Packet{
		HardwareType:       1,
		ProtocolType:       EtherTypeIPv4,
		HardwareAddrLength: 6,
		IPLength:           4,
		Operation:          arp.OperationReply,
		SenderHardwareAddr: info.MAC,
		SenderIP:           info.IP,
		TargetHardwareAddr: pkt.SenderHardwareAddr,
		TargetIP:           pkt.SenderIP,
	}
	r.sendARPPacket(reply, iface, pkt.SenderHardwareAddr)
}

func (r *Router) handleARPReply(pkt *arp.Packet) {
	senderIP := AddrToUint32(pkt.SenderIP)
	r.arp.AddEntry(senderIP, pkt.SenderHardwareAddr)
	r.log.Debugf("stored ARP entry %s -> %s", pkt.SenderIP, pkt.SenderHardwareAddr)

	pendingFrames := r.arp.DrainPending(senderIP)
	for _, p := range pendingFrames {
		metrics.RouterPendingFrames.Dec()
		r.sendFrame(p.Frame, p.Iface, senderIP, EtherTypeIPv4)
	}
}

// sendARPRequest broadcasts a who-has query for ip on the interface. The
// target hardware address on the wire is zeroed; only the ethernet
// destination is broadcast.
func (r *Router) sendARPRequest(ip uint32, iface int) {
	info, err := r.interfaceInfo(iface)
	if err != nil {
		r.log.WithError(err).Errorf("no address information for interface %d", iface)
		return
	}

	req := &arp.Packet{
		HardwareType:       1,
		ProtocolType:       EtherTypeIPv4,
		HardwareAddrLength: 6,
		IPLength:           4,
		Operation:          arp.OperationRequest,
		SenderHardwareAddr: info.MAC,
		SenderIP:           info.IP,
		TargetHardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 0},
		TargetIP:           Uint32ToAddr(ip),
	}
	r.sendARPPacket(req, iface, ethernet.Broadcast)
}

func (r *Router) sendARPPacket(pkt *arp.Packet, iface int, dst net.HardwareAddr) {
	payload, err := pkt.MarshalBinary()
	if err != nil {
		r.log.WithError(err).Error("failed to marshal ARP packet")
		return
	}

	f := &ethernet.Frame{
		Destination: dst,
		Source:      pkt.SenderHardwareAddr,
		EtherType:   ethernet.EtherTypeARP,
		Payload:     payload,
	}
	frame, err := f.MarshalBinary()
	if err != nil {
		r.log.WithError(err).Error("failed to marshal ethernet frame")
		return
	}

	if err := r.link.Send(iface, frame); err != nil {
		r.log.WithError(err).Errorf("failed to send ARP packet on interface %d", iface)
	}
}

func (r *Router) handleIPv4(frame []byte, iface int) {
	if len(frame) < EthernetHeaderLen+IPv4HeaderLen {
		r.log.Error("cannot read IP header, frame too small")
		metrics.RouterDropsTotal.WithLabelValues("runt").Inc()
		return
	}

	info, err := r.interfaceInfo(iface)
	if err != nil {
		r.log.WithError(err).Errorf("no address information for interface %d", iface)
		return
	}

	ip := IPv4Header(frame[EthernetHeaderLen:])
	forUs := ip.Dst() == AddrToUint32(info.IP)

	if ip.TTL() <= 1 && !forUs {
		r.log.Debug("TTL expired, dropping packet")
		metrics.RouterDropsTotal.WithLabelValues("ttl").Inc()
		r.sendICMPError(frame, iface, icmpTypeTimeExceeded, icmpCodeTTLExceeded)
		return
	}

	if !ip.ChecksumValid() {
		r.log.Error("IP checksum mismatch, dropping packet")
		metrics.RouterDropsTotal.WithLabelValues("checksum").Inc()
		return
	}

	if forUs {
		r.handleLocalIPv4(frame, iface)
		return
	}

	ip.SetTTL(ip.TTL() - 1)
	ip.UpdateChecksum()

	entry, ok := r.rtable.Lookup(ip.Dst())
	if !ok {
		r.log.Debugf("no route for %s, dropping packet", Uint32ToAddr(ip.Dst()))
		metrics.RouterDropsTotal.WithLabelValues("noroute").Inc()
		r.sendICMPError(frame, iface, icmpTypeUnreachable, icmpCodeUnreachableNet)
		return
	}

	metrics.RouterForwardedTotal.WithLabelValues(ifaceLabel(entry.Iface)).Inc()
	r.sendFrame(frame, entry.Iface, entry.NextHop, EtherTypeIPv4)
}

func (r *Router) handleLocalIPv4(frame []byte, iface int) {
	ip := IPv4Header(frame[EthernetHeaderLen:])

	switch proto := ip.Protocol(); proto {
	case ProtocolICMP:
		r.handleICMP(frame, iface)
	default:
		r.log.Errorf("dropping local packet with unhandled protocol %d", proto)
		metrics.RouterDropsTotal.WithLabelValues("protocol").Inc()
	}
}

func (r *Router) handleICMP(frame []byte, iface int) {
	if len(frame) < EthernetHeaderLen+IPv4HeaderLen+ICMPHeaderLen {
		r.log.Error("cannot read ICMP header, frame too small")
		metrics.RouterDropsTotal.WithLabelValues("runt").Inc()
		return
	}

	icmp := ICMPHeader(frame[EthernetHeaderLen+IPv4HeaderLen:])
	switch t := icmp.Type(); t {
	case icmpTypeEchoRequest:
		r.sendEchoReply(frame, iface)
	default:
		r.log.Debugf("dropping local ICMP message of type %d", t)
		metrics.RouterDropsTotal.WithLabelValues("icmp-type").Inc()
	}
}

// sendEchoReply turns an echo request around in place: addresses swapped,
// TTL reset to the default, both checksums recomputed.
func (r *Router) sendEchoReply(frame []byte, iface int) {
	ip := IPv4Header(frame[EthernetHeaderLen:])

	src, dst := ip.Src(), ip.Dst()
	ip.SetSrc(dst)
	ip.SetDst(src)
	ip.SetTTL(DefaultTTL)
	ip.UpdateChecksum()

	icmp := ICMPHeader(frame[EthernetHeaderLen+IPv4HeaderLen:])
	icmp.SetType(icmpTypeEchoReply)
	icmp.SetCode(0)
	icmp.SetChecksum(0)
	icmp.SetChecksum(Checksum(frame[EthernetHeaderLen+IPv4HeaderLen:]))

	r.sendFrame(frame, iface, ip.Dst(), EtherTypeIPv4)
}

// sendICMPError emits an ICMP error carrying the original IP header plus
// the first 8 payload bytes, per RFC 792. The input frame is reused when
// large enough, otherwise a fresh buffer is allocated.
func (r *Router) sendICMPError(frame []byte, iface int, icmpType, icmpCode uint8) {
	const errFrameLen = EthernetHeaderLen + 2*IPv4HeaderLen + ICMPHeaderLen + 8

	info, err := r.interfaceInfo(iface)
	if err != nil {
		r.log.WithError(err).Errorf("no address information for interface %d", iface)
		return
	}

	var errFrame []byte
	if len(frame) < errFrameLen {
		errFrame = make([]byte, errFrameLen)
		n := len(frame) - EthernetHeaderLen
		if n > IPv4HeaderLen+8 {
			n = IPv4HeaderLen + 8
		}
		copy(errFrame[EthernetHeaderLen:], frame[EthernetHeaderLen:EthernetHeaderLen+n])
	} else {
		errFrame = frame[:errFrameLen]
	}

	// Quote the offending header and payload prefix after the new ICMP
	// header, then overwrite the original header in place.
	quoteStart := EthernetHeaderLen + IPv4HeaderLen + ICMPHeaderLen
	copy(errFrame[quoteStart:], errFrame[EthernetHeaderLen:EthernetHeaderLen+IPv4HeaderLen+8])

	ip := IPv4Header(errFrame[EthernetHeaderLen:])
	dst := ip.Src()
	ip.SetDst(dst)
	ip.SetSrc(AddrToUint32(info.IP))
	ip.SetProtocol(ProtocolICMP)
	ip.SetTTL(DefaultTTL)
	ip.SetTotalLen(uint16(errFrameLen - EthernetHeaderLen))
	ip.UpdateChecksum()

	icmp := ICMPHeader(errFrame[EthernetHeaderLen+IPv4HeaderLen:])
	icmp.SetType(icmpType)
	icmp.SetCode(icmpCode)
	icmp.SetChecksum(0)
	icmp.ZeroRest()
	icmp.SetChecksum(Checksum(errFrame[EthernetHeaderLen+IPv4HeaderLen:]))

	r.sendFrame(errFrame, iface, dst, EtherTypeIPv4)
}

// sendFrame resolves the next hop and transmits. Without an ARP entry the
// frame is copied onto the pending queue and a request goes out instead;
// the queued copy is replayed by handleARPReply.
func (r *Router) sendFrame(frame []byte, iface int, nextHop uint32, etherType uint16) {
	info, err := r.interfaceInfo(iface)
	if err != nil {
		r.log.WithError(err).Errorf("no address information for interface %d", iface)
		return
	}

	mac, ok := r.arp.Lookup(nextHop)
	if !ok {
		r.log.Debugf("no ARP entry for %s, queueing frame", Uint32ToAddr(nextHop))
		r.sendARPRequest(nextHop, iface)

		buf := make([]byte, len(frame))
		copy(buf, frame)
		r.arp.EnqueuePending(nextHop, PendingFrame{Iface: iface, Frame: buf})
		metrics.RouterPendingFrames.Inc()
		return
	}

	SetEthernetAddrs(frame, mac, info.MAC, etherType)
	if err := r.link.Send(iface, frame); err != nil {
		r.log.WithError(err).Errorf("failed to send frame on interface %d", iface)
	}
}

// interfaceInfo caches per-interface addressing so the link layer is only
// queried once per interface.
func (r *Router) interfaceInfo(iface int) (IfaceInfo, error) {
	if info, ok := r.ifaces[iface]; ok {
		return info, nil
	}
	info, err := r.link.InterfaceInfo(iface)
	if err != nil {
		return IfaceInfo{}, err
	}
	r.ifaces[iface] = info
	r.log.Debugf("interface %d is %s / %s", iface, info.IP, info.MAC)
	return info, nil
}

func ifaceLabel(iface int) string {
	return strconv.Itoa(iface)
}
