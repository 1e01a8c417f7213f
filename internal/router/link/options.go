// Package link provides raw ethernet I/O for the dataplane router using
// AF_PACKET sockets.
package link

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	defaultSnapLen   = 1500
	defaultBlockSize = 1 << 20
	defaultNumBlocks = 8

	// defaultFilter keeps the ring buffers free of traffic the router
	// never handles.
	defaultFilter = "arp or ip"
)

// Options tunes the capture ring. Zero values fall back to defaults.
type Options struct {
	SnapLen   int    `mapstructure:"snap_len"`
	BlockSize int    `mapstructure:"block_size"`
	NumBlocks int    `mapstructure:"num_blocks"`
	Filter    string `mapstructure:"bpf_filter"`
}

// DecodeOptions builds Options from a loosely-typed configuration map.
func DecodeOptions(raw map[string]interface{}) (Options, error) {
	var opts Options
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("link: invalid capture options: %w", err)
	}
	return opts.withDefaults(), nil
}

func (o Options) withDefaults() Options {
	if o.SnapLen == 0 {
		o.SnapLen = defaultSnapLen
	}
	if o.BlockSize == 0 {
		o.BlockSize = defaultBlockSize
	}
	if o.NumBlocks == 0 {
		o.NumBlocks = defaultNumBlocks
	}
	if o.Filter == "" {
		o.Filter = defaultFilter
	}
	return o
}
