package export

import (
	"fmt"
	"strings"
)

// MaxFilenameLen is the fixed upper bound on derived filenames.
const MaxFilenameLen = 255

// rejectSet marks the bytes never allowed in a derived filename. The
// printable members come from the Windows reserved-character list; control
// bytes 0x01-0x1f are rejected across platforms. NUL is not a member.
var rejectSet = func() [256]bool {
	var set [256]bool
	for _, c := range []byte(`<>:"/\|?*`) {
		set[c] = true
	}
	for c := byte(0x01); c <= 0x1f; c++ {
		set[c] = true
	}
	return set
}()

// SanitizeFilename turns an arbitrary protocol-supplied name into a
// filesystem-safe one. Rejected bytes become %xx escapes (lowercase hex).
// Results longer than maxLen are truncated with the extension (everything
// from the last '.') preserved. A non-zero dupn appends a "(N)" suffix
// before the extension to disambiguate duplicates.
//
// All byte counting is byte-oriented: truncation may split an earlier %xx
// escape or a multi-byte character. That matches the historical behavior
// consumers already depend on.
func SanitizeFilename(name string, maxLen, dupn int) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if rejectSet[c] {
			fmt.Fprintf(&b, "%%%02x", c)
		} else {
			b.WriteByte(c)
		}
	}
	out := b.String()

	if len(out) > maxLen {
		if dot := strings.LastIndexByte(out, '.'); dot >= 0 {
			// Retain the extension. When the extension alone fills the
			// whole budget the truncation step is skipped entirely.
			ext := out[dot:]
			if keep := maxLen - len(ext); keep >= 0 {
				out = out[:keep] + ext
			}
		} else {
			out = out[:maxLen]
		}
	}

	if dupn != 0 {
		out = renameDuplicate(out, maxLen, dupn)
	}
	return out
}

// renameDuplicate appends "(N)" before the extension, truncating the stem
// further when stem+suffix+extension would exceed maxLen. The suffix and
// extension are never shortened.
func renameDuplicate(name string, maxLen, dupn int) string {
	suffix := fmt.Sprintf("(%d)", dupn)
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		stem, ext := name[:dot], name[dot:]
		if keep := maxLen - (len(suffix) + len(ext)); keep >= 0 && len(stem) > keep {
			stem = stem[:keep]
		}
		return stem + suffix + ext
	}
	if keep := maxLen - len(suffix); keep >= 0 && len(name) > keep {
		name = name[:keep]
	}
	return name + suffix
}

// ContentTypeExtension maps a MIME content type to a canonical file
// extension. This is a deliberate pass-through stub: it returns its input
// unchanged and callers must treat the result as a hint only. A real
// mapping table needs its own specification before it can replace this.
func ContentTypeExtension(contentType string) string {
	return contentType
}
