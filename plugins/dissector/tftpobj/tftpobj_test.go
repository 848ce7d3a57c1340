package tftpobj

import (
	"bytes"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/tap"
	"firestige.xyz/strix/plugins/dissector/api"
)

var (
	clientIP = net.IP{10, 0, 0, 2}
	serverIP = net.IP{10, 0, 0, 1}
)

func payloadPacket(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, gopacket.LayerTypePayload, gopacket.Default)
}

func info(src net.IP, sport uint16, dst net.IP, dport uint16) *tap.PacketInfo {
	return &tap.PacketInfo{SrcAddr: src, SrcPort: sport, DstAddr: dst, DstPort: dport}
}

func rrq(filename string) []byte {
	b := []byte{0x00, 0x01}
	b = append(b, filename...)
	b = append(b, 0x00)
	b = append(b, "octet"...)
	b = append(b, 0x00)
	return b
}

func dataBlock(block uint16, data []byte) []byte {
	b := []byte{0x00, 0x03, byte(block >> 8), byte(block)}
	return append(b, data...)
}

func newTestDissector(t *testing.T) (*TFTPDissector, *[]*export.Entry) {
	t.Helper()
	d := New().(*TFTPDissector)
	entries := &[]*export.Entry{}
	d.SetConsumer(func(e *export.Entry) { *entries = append(*entries, e) })
	return d, entries
}

// transferFile drives a full read transfer: client requests, server answers
// from an ephemeral transfer port.
func transferFile(t *testing.T, d *TFTPDissector, filename string, content []byte) {
	t.Helper()

	req := payloadPacket(rrq(filename))
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 69), req))

	block := uint16(1)
	for off := 0; ; off += blockSize {
		end := off + blockSize
		if end > len(content) {
			end = len(content)
		}
		pkt := payloadPacket(dataBlock(block, content[off:end]))
		require.NoError(t, d.handlePacket(info(serverIP, 55000, clientIP, 50000), pkt))
		if end-off < blockSize {
			break
		}
		block++
	}
}

func TestTFTPDissector_ReconstructsTransfer(t *testing.T) {
	d, entries := newTestDissector(t)

	content := bytes.Repeat([]byte{0xab}, blockSize+100)
	transferFile(t, d, "notes.txt", content)

	require.Len(t, *entries, 1)
	entry := (*entries)[0]
	assert.Equal(t, serverIP.String(), entry.Hostname)
	assert.Equal(t, "application/octet-stream", entry.ContentType)
	assert.Equal(t, "notes.txt", entry.Filename)
	assert.Equal(t, content, entry.Payload)
}

func TestTFTPDissector_ShortSingleBlock(t *testing.T) {
	d, entries := newTestDissector(t)

	transferFile(t, d, "tiny.bin", []byte("abc"))

	require.Len(t, *entries, 1)
	assert.Equal(t, []byte("abc"), (*entries)[0].Payload)
}

func TestTFTPDissector_WriteRequest(t *testing.T) {
	d, entries := newTestDissector(t)

	wrq := []byte{0x00, 0x02}
	wrq = append(wrq, "upload.bin\x00octet\x00"...)
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 69), payloadPacket(wrq)))

	// For a write the client sends the data blocks.
	pkt := payloadPacket(dataBlock(1, []byte("payload")))
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 55000), pkt))

	require.Len(t, *entries, 1)
	assert.Equal(t, "upload.bin", (*entries)[0].Filename)
	assert.Equal(t, []byte("payload"), (*entries)[0].Payload)
}

func TestTFTPDissector_HostileFilenameSanitized(t *testing.T) {
	d, entries := newTestDissector(t)

	transferFile(t, d, "../../etc/passwd", []byte("root:x:0:0"))

	require.Len(t, *entries, 1)
	assert.Equal(t, "..%2f..%2fetc%2fpasswd", (*entries)[0].Filename)
}

func TestTFTPDissector_DuplicateFilenames(t *testing.T) {
	d, entries := newTestDissector(t)

	transferFile(t, d, "log.txt", []byte("first"))
	transferFile(t, d, "log.txt", []byte("second"))

	require.Len(t, *entries, 2)
	assert.Equal(t, "log.txt", (*entries)[0].Filename)
	assert.Equal(t, "log(1).txt", (*entries)[1].Filename)
}

func TestTFTPDissector_RetransmittedBlockIgnored(t *testing.T) {
	d, entries := newTestDissector(t)

	req := payloadPacket(rrq("file.bin"))
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 69), req))

	full := bytes.Repeat([]byte{0x01}, blockSize)
	from := info(serverIP, 55000, clientIP, 50000)
	require.NoError(t, d.handlePacket(from, payloadPacket(dataBlock(1, full))))
	// Retransmission of block 1 must not duplicate data.
	require.NoError(t, d.handlePacket(from, payloadPacket(dataBlock(1, full))))
	require.NoError(t, d.handlePacket(from, payloadPacket(dataBlock(2, []byte("end")))))

	require.Len(t, *entries, 1)
	assert.Len(t, (*entries)[0].Payload, blockSize+3)
}

func TestTFTPDissector_ErrorAbortsTransfer(t *testing.T) {
	d, entries := newTestDissector(t)

	req := payloadPacket(rrq("file.bin"))
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 69), req))

	errPkt := payloadPacket([]byte{0x00, 0x05, 0x00, 0x01, 'n', 'o', 0x00})
	require.NoError(t, d.handlePacket(info(serverIP, 55000, clientIP, 50000), errPkt))

	// Data after the abort belongs to no transfer.
	pkt := payloadPacket(dataBlock(1, []byte("late")))
	err := d.handlePacket(info(serverIP, 55000, clientIP, 50000), pkt)
	assert.ErrorIs(t, err, api.ErrNotExportable)
	assert.Empty(t, *entries)
}

func TestTFTPDissector_DataWithoutRequest(t *testing.T) {
	d, entries := newTestDissector(t)

	pkt := payloadPacket(dataBlock(1, []byte("orphan")))
	err := d.handlePacket(info(serverIP, 55000, clientIP, 50000), pkt)
	assert.ErrorIs(t, err, api.ErrNotExportable)
	assert.Empty(t, *entries)
}

func TestTFTPDissector_TransferSizeLimit(t *testing.T) {
	d, entries := newTestDissector(t)
	require.NoError(t, d.Configure(map[string]interface{}{"max_transfer_bytes": 600}))

	req := payloadPacket(rrq("big.bin"))
	require.NoError(t, d.handlePacket(info(clientIP, 50000, serverIP, 69), req))

	from := info(serverIP, 55000, clientIP, 50000)
	full := bytes.Repeat([]byte{0x01}, blockSize)
	require.NoError(t, d.handlePacket(from, payloadPacket(dataBlock(1, full))))

	err := d.handlePacket(from, payloadPacket(dataBlock(2, full)))
	assert.ErrorIs(t, err, api.ErrIncomplete)
	assert.Empty(t, *entries)
}

func TestTFTPDissector_UnknownOpcode(t *testing.T) {
	d, _ := newTestDissector(t)

	pkt := payloadPacket([]byte{0x00, 0x09, 0xff})
	err := d.handlePacket(info(clientIP, 50000, serverIP, 69), pkt)
	assert.ErrorIs(t, err, api.ErrParsePacket)
}

func TestTFTPDissector_Identity(t *testing.T) {
	d := New()
	assert.Equal(t, "Trivial File Transfer Protocol", d.Name())
	assert.Equal(t, "tftp", d.FilterName())
}
