// Package api defines the contract for export-object dissector plugins.
package api

import (
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/tap"
)

// Consumer receives each finalized export object. Ownership of the entry
// transfers to the consumer; it must call Release when done.
type Consumer func(*export.Entry)

// Dissector reconstructs export objects from decoded packets delivered via
// its tap listener.
type Dissector interface {
	// Name returns the protocol display name.
	Name() string

	// FilterName returns the canonical protocol filter name. It doubles as
	// the registry sort key and the tap listener name prefix.
	FilterName() string

	// Configure applies dissector-specific options before registration.
	Configure(options map[string]interface{}) error

	// SetConsumer injects the sink for finalized export objects.
	SetConsumer(c Consumer)

	// PacketFunc returns the per-packet tap callback.
	PacketFunc() tap.PacketFunc
}

// DecodeOptions decodes a raw options map into a dissector's typed options
// struct. An empty or absent map leaves the target untouched.
func DecodeOptions(options map[string]interface{}, target interface{}) error {
	if len(options) == 0 {
		return nil
	}
	return mapstructure.Decode(options, target)
}
