// Package export implements the export-object registry and the safe-filename
// helpers shared by every dissector that can expose reconstructed files.
package export

import (
	"sort"
	"strings"

	"firestige.xyz/strix/internal/proto"
	"firestige.xyz/strix/internal/tap"
)

// ResetFunc parses or resets optional listener arguments. May be nil.
type ResetFunc func()

// Registration records one protocol's export-object tap. The tap listener
// name is derived once at registration time and never changes.
type Registration struct {
	protoID      int
	tapListenStr string
	packetFn     tap.PacketFunc
	resetFn      ResetFunc
}

// ProtoID returns the owning protocol id, or -1 for a nil registration.
// This is the only accessor that tolerates a nil receiver.
func (r *Registration) ProtoID() int {
	if r == nil {
		return -1
	}
	return r.protoID
}

// TapListenerName returns the string used to subscribe the tap listener.
func (r *Registration) TapListenerName() string {
	return r.tapListenStr
}

// PacketFunc returns the per-packet callback. The registry stores it and
// hands it out; it never invokes it.
func (r *Registration) PacketFunc() tap.PacketFunc {
	return r.packetFn
}

// ResetFunc returns the optional reset callback, nil when absent.
func (r *Registration) ResetFunc() ResetFunc {
	return r.resetFn
}

// Registry is the ordered catalog of export-object registrations, kept
// sorted by case-insensitive protocol filter name. Registration happens
// during single-threaded startup; reads dominate afterwards.
type Registry struct {
	protos *proto.Table
	taps   *tap.Table
	regs   []*Registration
}

func NewRegistry(protos *proto.Table, taps *tap.Table) *Registry {
	return &Registry{
		protos: protos,
		taps:   taps,
	}
}

// Register adds an export-object tap for a protocol. The packet callback is
// mandatory; passing nil is a programming error and panics. The tap listener
// name is "<filter-name>_eo"; uniqueness follows from protocol filter-name
// uniqueness, which the protocol table enforces.
func (r *Registry) Register(protoID int, packetFn tap.PacketFunc, resetFn ResetFunc) (tap.Token, error) {
	if packetFn == nil {
		panic("export: Register called with nil packet callback")
	}

	reg := &Registration{
		protoID:      protoID,
		tapListenStr: r.protos.FilterName(protoID) + "_eo",
		packetFn:     packetFn,
		resetFn:      resetFn,
	}

	tok, err := r.taps.Subscribe(reg.tapListenStr)
	if err != nil {
		return tok, err
	}

	key := strings.ToLower(r.protos.FilterName(protoID))
	i := sort.Search(len(r.regs), func(i int) bool {
		return strings.ToLower(r.protos.FilterName(r.regs[i].protoID)) >= key
	})
	r.regs = append(r.regs, nil)
	copy(r.regs[i+1:], r.regs[i:])
	r.regs[i] = reg

	return tok, nil
}

// FindByName returns the registration whose protocol filter name exactly
// matches name, or nil when none does. Linear scan; the registry is bounded
// by the number of dissectors offering export, not by packet volume.
func (r *Registry) FindByName(name string) *Registration {
	for _, reg := range r.regs {
		if r.protos.FilterName(reg.protoID) == name {
			return reg
		}
	}
	return nil
}

// Iterate visits every registration in sorted order. The visitor must not
// mutate the registry.
func (r *Registry) Iterate(fn func(*Registration)) {
	for _, reg := range r.regs {
		fn(reg)
	}
}

func (r *Registry) Count() int {
	return len(r.regs)
}

var defaultRegistry = NewRegistry(proto.Default(), tap.Default())

// Default returns the process-wide export-object registry, bound to the
// default protocol and tap tables.
func Default() *Registry {
	return defaultRegistry
}
