package export

// Entry is one reconstructed export object, e.g. a single file carried over
// HTTP or TFTP. Every field is owned exclusively by the entry until Release.
type Entry struct {
	Hostname    string
	ContentType string
	Filename    string
	Payload     []byte
}

// Release drops every field so the backing storage can be reclaimed. Absent
// fields are a no-op. The entry must not be used after Release; ownership
// ends with the call.
func (e *Entry) Release() {
	e.Hostname = ""
	e.ContentType = ""
	e.Filename = ""
	e.Payload = nil
}
