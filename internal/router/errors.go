package router

import "errors"

var (
	ErrFrameTooShort   = errors.New("router: frame too short")
	ErrUnknownIface    = errors.New("router: unknown interface")
	ErrBadRouteEntry   = errors.New("router: invalid route entry")
	ErrBadTableFormat  = errors.New("router: malformed table file")
	ErrNoInterfaceAddr = errors.New("router: interface has no IPv4 address")
)
