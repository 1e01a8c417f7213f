//go:build !linux

package link

import (
	"context"
	"errors"

	"github.com/Albert24GG/pcom-assignments/internal/router"
)

var errUnsupported = errors.New("link: AF_PACKET capture requires linux")

// Frame is one received ethernet frame tagged with its ingress interface
// index.
type Frame struct {
	Iface int
	Data  []byte
}

// AFPacket is unavailable off linux; Open always fails.
type AFPacket struct{}

func Open(names []string, opts Options) (*AFPacket, error) {
	return nil, errUnsupported
}

func (l *AFPacket) Run(ctx context.Context, frames chan<- Frame) {}

func (l *AFPacket) Send(iface int, frame []byte) error { return errUnsupported }

func (l *AFPacket) InterfaceInfo(iface int) (router.IfaceInfo, error) {
	return router.IfaceInfo{}, errUnsupported
}

func (l *AFPacket) Close() {}
