// Package tftpobj reconstructs TFTP transfers into export objects. A read
// or write request opens a transfer keyed by the client endpoint; DATA
// blocks accumulate until the short final block closes it.
package tftpobj

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"

	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/tap"
	"firestige.xyz/strix/plugins/dissector/api"
)

const (
	opRRQ   = 1
	opWRQ   = 2
	opDATA  = 3
	opACK   = 4
	opERROR = 5

	blockSize = 512

	defaultMaxTransferBytes = 50 << 20
)

// Options configures the TFTP dissector.
type Options struct {
	// MaxTransferBytes aborts transfers that grow beyond this size.
	MaxTransferBytes int `mapstructure:"max_transfer_bytes"`
}

type transfer struct {
	filename  string
	server    string
	fromWrite bool // payload flows client→server
	nextBlock uint16
	data      []byte
}

// TFTPDissector implements api.Dissector for TFTP.
type TFTPDissector struct {
	opts      Options
	consumer  api.Consumer
	transfers map[string]*transfer // keyed by client "ip:port"
	seen      map[string]int
	logger    log.Logger
}

// New creates a TFTP export-object dissector.
func New() api.Dissector {
	return &TFTPDissector{
		opts:      Options{MaxTransferBytes: defaultMaxTransferBytes},
		transfers: make(map[string]*transfer),
		seen:      make(map[string]int),
		logger:    log.GetLogger().WithField("dissector", "tftp"),
	}
}

func (d *TFTPDissector) Name() string       { return "Trivial File Transfer Protocol" }
func (d *TFTPDissector) FilterName() string { return "tftp" }

func (d *TFTPDissector) Configure(options map[string]interface{}) error {
	if err := api.DecodeOptions(options, &d.opts); err != nil {
		return fmt.Errorf("decode tftp dissector options: %w", err)
	}
	if d.opts.MaxTransferBytes <= 0 {
		d.opts.MaxTransferBytes = defaultMaxTransferBytes
	}
	return nil
}

func (d *TFTPDissector) SetConsumer(c api.Consumer) {
	d.consumer = c
}

func (d *TFTPDissector) PacketFunc() tap.PacketFunc {
	return d.handlePacket
}

func (d *TFTPDissector) handlePacket(info *tap.PacketInfo, pkt gopacket.Packet) error {
	app := pkt.ApplicationLayer()
	if app == nil || len(app.Payload()) < 2 {
		return api.ErrNotExportable
	}
	payload := app.Payload()
	opcode := binary.BigEndian.Uint16(payload[:2])

	switch opcode {
	case opRRQ, opWRQ:
		return d.handleRequest(info, opcode, payload[2:])
	case opDATA:
		return d.handleData(info, payload[2:])
	case opACK:
		return nil
	case opERROR:
		// Either side aborted; drop whatever was in flight.
		delete(d.transfers, endpoint(info.SrcAddr.String(), info.SrcPort))
		delete(d.transfers, endpoint(info.DstAddr.String(), info.DstPort))
		return nil
	default:
		return fmt.Errorf("%w: unknown tftp opcode %d", api.ErrParsePacket, opcode)
	}
}

func (d *TFTPDissector) handleRequest(info *tap.PacketInfo, opcode uint16, rest []byte) error {
	nul := bytes.IndexByte(rest, 0)
	if nul <= 0 {
		return fmt.Errorf("%w: malformed tftp request", api.ErrParsePacket)
	}

	// The requester is the client regardless of direction.
	d.transfers[endpoint(info.SrcAddr.String(), info.SrcPort)] = &transfer{
		filename:  string(rest[:nul]),
		server:    info.DstAddr.String(),
		fromWrite: opcode == opWRQ,
		nextBlock: 1,
	}
	return nil
}

func (d *TFTPDissector) handleData(info *tap.PacketInfo, rest []byte) error {
	if len(rest) < 2 {
		return fmt.Errorf("%w: truncated tftp data block", api.ErrParsePacket)
	}
	block := binary.BigEndian.Uint16(rest[:2])
	data := rest[2:]

	// For a read the client receives data, for a write it sends it. The
	// client's endpoint is the stable key either way.
	key := endpoint(info.DstAddr.String(), info.DstPort)
	tr, ok := d.transfers[key]
	if !ok {
		key = endpoint(info.SrcAddr.String(), info.SrcPort)
		tr, ok = d.transfers[key]
	}
	if !ok {
		return api.ErrNotExportable
	}

	if block != tr.nextBlock {
		// Retransmission or loss; out-of-order reassembly is not attempted.
		return nil
	}
	tr.nextBlock++
	tr.data = append(tr.data, data...)

	if len(tr.data) > d.opts.MaxTransferBytes {
		delete(d.transfers, key)
		return fmt.Errorf("%w: transfer exceeds %d bytes", api.ErrIncomplete, d.opts.MaxTransferBytes)
	}

	if len(data) < blockSize {
		d.finalize(tr)
		delete(d.transfers, key)
	}
	return nil
}

func (d *TFTPDissector) finalize(tr *transfer) {
	dupn := d.seen[tr.filename]
	d.seen[tr.filename]++

	entry := &export.Entry{
		Hostname:    tr.server,
		ContentType: "application/octet-stream",
		Filename:    export.SanitizeFilename(tr.filename, export.MaxFilenameLen, dupn),
		Payload:     tr.data,
	}

	if d.consumer == nil {
		entry.Release()
		return
	}
	d.logger.WithFields(map[string]interface{}{
		"host": entry.Hostname,
		"name": entry.Filename,
		"size": len(entry.Payload),
	}).Debug("export object finalized")
	d.consumer(entry)
}

func endpoint(addr string, port uint16) string {
	return fmt.Sprintf("%s:%d", addr, port)
}
