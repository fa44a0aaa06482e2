package restore

import (
	"archive/tar"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/projectvault/projectrestore/internal/safety"
)

// Unix setuid/setgid bits, stripped before any entry materializes.
const dangerousModeBits = 0o4000 | 0o2000

// Action is the validator's decision for one archive entry.
type Action int

const (
	// ActionExtract admits the entry for materialization.
	ActionExtract Action = iota
	// ActionSkip drops the entry with a warning; the restore continues.
	ActionSkip
)

// Verdict is the typed per-entry result of validation. Validation is a
// pure decision: it never touches the filesystem and never writes.
type Verdict struct {
	Action Action
	// RelPath is the normalized relative path, set when Action is
	// ActionExtract.
	RelPath string
	// Mode carries the entry's permission bits with setuid/setgid
	// removed.
	Mode fs.FileMode
	// ModTime is the timestamp to restore on the entry. PAX-supplied
	// precision is dropped unless the policy applies pax records.
	ModTime time.Time
	// Reason explains a skip.
	Reason string
}

func skip(format string, args ...any) Verdict {
	return Verdict{Action: ActionSkip, Reason: fmt.Sprintf(format, args...)}
}

// ValidateEntry decides whether a single tar entry may materialize
// under the staging root, applying the zero-trust policy: only plain
// files and directories with contained paths are admitted.
//
// PAX header members are inert: they are skipped themselves, but the
// file entries following them are ordinary entries and restore
// normally. archive/tar merges per-file pax records into the next
// header, so a pax-format archive yields regular entries here; the
// records only influence the admitted attributes, never admission.
func ValidateEntry(hdr *tar.Header, policy Policy) Verdict {
	switch hdr.Typeflag {
	case tar.TypeSymlink, tar.TypeLink:
		return skip("link entry %q (target %q) is not allowed", hdr.Name, hdr.Linkname)
	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		return skip("device/fifo entry %q is not allowed", hdr.Name)
	case tar.TypeXHeader, tar.TypeXGlobalHeader:
		// Raw pax headers carry metadata, not data. The reader consumes
		// per-file ones itself; global ones surface here and are dropped
		// without affecting later entries.
		return skip("pax header %q carries no data", hdr.Name)
	case tar.TypeGNUSparse:
		if !policy.AllowSparse {
			return skip("sparse entry %q is not allowed by policy", hdr.Name)
		}
	case tar.TypeReg, tar.TypeDir:
		// Handled below.
	default:
		return skip("entry %q has unsupported type %q", hdr.Name, rune(hdr.Typeflag))
	}

	if isSparse(hdr) && !policy.AllowSparse {
		return skip("sparse entry %q is not allowed by policy", hdr.Name)
	}

	rel, err := safety.CleanRelativePath(hdr.Name)
	if err != nil {
		return skip("entry has unsafe path: %v", err)
	}

	modTime := hdr.ModTime
	if !policy.AllowPax && len(hdr.PAXRecords) > 0 {
		// Without allow_pax the extended records are ignored; keep only
		// the whole-second timestamp a ustar header can express.
		modTime = modTime.Truncate(time.Second)
	}

	return Verdict{
		Action:  ActionExtract,
		RelPath: rel,
		Mode:    fs.FileMode(hdr.Mode &^ dangerousModeBits).Perm(),
		ModTime: modTime,
	}
}

// isSparse detects PAX-encoded sparse entries; old GNU sparse entries
// carry their own typeflag.
func isSparse(hdr *tar.Header) bool {
	if hdr.Typeflag == tar.TypeGNUSparse {
		return true
	}
	for k := range hdr.PAXRecords {
		if strings.HasPrefix(k, "GNU.sparse.") {
			return true
		}
	}
	return false
}
