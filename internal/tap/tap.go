// Package tap implements the packet-event subscription mechanism.
// Subscribers claim a unique listener name and receive one callback per
// matching packet when the dissection path delivers events.
package tap

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"
)

// PacketInfo carries per-packet metadata handed to listeners alongside the
// decoded packet.
type PacketInfo struct {
	Number    int
	Timestamp time.Time
	SrcAddr   net.IP
	DstAddr   net.IP
	SrcPort   uint16
	DstPort   uint16
}

// PacketFunc is invoked once per packet delivered to a listener.
type PacketFunc func(info *PacketInfo, pkt gopacket.Packet) error

// Token is an opaque subscription handle returned by Subscribe.
type Token int

type listener struct {
	name string
	fn   PacketFunc
}

// Table tracks tap subscriptions by listener name.
type Table struct {
	mu        sync.RWMutex
	listeners []listener
	byName    map[string]Token
}

func NewTable() *Table {
	return &Table{
		byName: make(map[string]Token),
	}
}

// Subscribe claims a listener name and returns its token. Listener names
// must be unique per table.
func (t *Table) Subscribe(name string) (Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		return -1, fmt.Errorf("tap listener name must be non-empty")
	}
	if tok, exists := t.byName[name]; exists {
		return tok, fmt.Errorf("tap listener '%s' already subscribed", name)
	}

	tok := Token(len(t.listeners))
	t.listeners = append(t.listeners, listener{name: name})
	t.byName[name] = tok
	return tok, nil
}

// Listen attaches a packet callback to a subscribed listener name.
func (t *Table) Listen(name string, fn PacketFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tok, exists := t.byName[name]
	if !exists {
		return fmt.Errorf("tap listener '%s' not subscribed", name)
	}
	t.listeners[tok].fn = fn
	return nil
}

// Deliver hands one packet event to the named listener. Listeners without
// an attached callback drop the event silently.
func (t *Table) Deliver(name string, info *PacketInfo, pkt gopacket.Packet) error {
	t.mu.RLock()
	tok, exists := t.byName[name]
	var fn PacketFunc
	if exists {
		fn = t.listeners[tok].fn
	}
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("tap listener '%s' not subscribed", name)
	}
	if fn == nil {
		return nil
	}
	return fn(info, pkt)
}

// Subscribed reports whether a listener name is claimed.
func (t *Table) Subscribed(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byName[name]
	return ok
}

func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners)
}

var defaultTable = NewTable()

// Default returns the process-wide tap table.
func Default() *Table {
	return defaultTable
}
