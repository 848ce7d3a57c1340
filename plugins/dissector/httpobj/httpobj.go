// Package httpobj reconstructs HTTP response bodies into export objects.
// Requests are tracked per flow so a response can be attributed to the host
// and path that asked for it.
package httpobj

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/gopacket"

	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/tap"
	"firestige.xyz/strix/plugins/dissector/api"
)

const defaultMaxBodyBytes = 10 << 20

// Options configures the HTTP dissector.
type Options struct {
	// MaxBodyBytes caps how much of a response body is captured per object.
	MaxBodyBytes int `mapstructure:"max_body_bytes"`
}

type requestInfo struct {
	host string
	path string
}

// HTTPDissector implements api.Dissector for HTTP/1.x.
type HTTPDissector struct {
	opts     Options
	consumer api.Consumer
	pending  map[string]requestInfo // flow key of the request direction
	seen     map[string]int         // sanitization duplicate counters
	logger   log.Logger
}

// New creates an HTTP export-object dissector.
func New() api.Dissector {
	return &HTTPDissector{
		opts:    Options{MaxBodyBytes: defaultMaxBodyBytes},
		pending: make(map[string]requestInfo),
		seen:    make(map[string]int),
		logger:  log.GetLogger().WithField("dissector", "http"),
	}
}

func (d *HTTPDissector) Name() string       { return "Hypertext Transfer Protocol" }
func (d *HTTPDissector) FilterName() string { return "http" }

func (d *HTTPDissector) Configure(options map[string]interface{}) error {
	if err := api.DecodeOptions(options, &d.opts); err != nil {
		return fmt.Errorf("decode http dissector options: %w", err)
	}
	if d.opts.MaxBodyBytes <= 0 {
		d.opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return nil
}

func (d *HTTPDissector) SetConsumer(c api.Consumer) {
	d.consumer = c
}

func (d *HTTPDissector) PacketFunc() tap.PacketFunc {
	return d.handlePacket
}

func (d *HTTPDissector) handlePacket(info *tap.PacketInfo, pkt gopacket.Packet) error {
	app := pkt.ApplicationLayer()
	if app == nil || len(app.Payload()) == 0 {
		return api.ErrNotExportable
	}
	payload := app.Payload()

	if bytes.HasPrefix(payload, []byte("HTTP/")) {
		return d.handleResponse(info, payload)
	}
	return d.handleRequest(info, payload)
}

func (d *HTTPDissector) handleRequest(info *tap.PacketInfo, payload []byte) error {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrParsePacket, err)
	}
	defer req.Body.Close()

	d.pending[flowKey(info, false)] = requestInfo{
		host: req.Host,
		path: req.URL.Path,
	}
	return nil
}

func (d *HTTPDissector) handleResponse(info *tap.PacketInfo, payload []byte) error {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(payload)), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrParsePacket, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(d.opts.MaxBodyBytes)))
	if err != nil && len(body) == 0 {
		return fmt.Errorf("%w: %v", api.ErrIncomplete, err)
	}

	// The request traveled in the opposite direction of this response.
	req, tracked := d.pending[flowKey(info, true)]
	if tracked {
		delete(d.pending, flowKey(info, true))
	}

	hostname := req.host
	if hostname == "" {
		hostname = info.SrcAddr.String()
	}

	entry := &export.Entry{
		Hostname:    hostname,
		ContentType: resp.Header.Get("Content-Type"),
		Payload:     body,
	}
	entry.Filename = d.deriveFilename(req.path, entry.ContentType)

	if d.consumer == nil {
		entry.Release()
		return nil
	}
	d.logger.WithFields(map[string]interface{}{
		"host": entry.Hostname,
		"name": entry.Filename,
		"size": len(entry.Payload),
	}).Debug("export object finalized")
	d.consumer(entry)
	return nil
}

// deriveFilename picks a candidate name from the request path, falling back
// to the content type, and runs it through the sanitizer with a duplicate
// index that grows per repeated candidate.
func (d *HTTPDissector) deriveFilename(reqPath, contentType string) string {
	candidate := path.Base(reqPath)
	if candidate == "." || candidate == "/" || candidate == "" {
		candidate = export.ContentTypeExtension(contentType)
	}
	if candidate == "" {
		candidate = "object"
	}

	dupn := d.seen[candidate]
	d.seen[candidate]++
	return export.SanitizeFilename(candidate, export.MaxFilenameLen, dupn)
}

// flowKey identifies one direction of a TCP flow. reversed=true keys the
// opposite direction, i.e. the request that solicited a response.
func flowKey(info *tap.PacketInfo, reversed bool) string {
	if reversed {
		return fmt.Sprintf("%s:%d>%s:%d", info.DstAddr, info.DstPort, info.SrcAddr, info.SrcPort)
	}
	return fmt.Sprintf("%s:%d>%s:%d", info.SrcAddr, info.SrcPort, info.DstAddr, info.DstPort)
}
