package command

import "strings"

// Fixed replies.
const (
	ReplyAuthOK         = "AUTH OK"
	ReplyAuthFailed     = "AUTH FAILED"
	ReplyReady          = "READY"
	ReplyCreateFailed   = "Error creating file"
	ReplyUnknownCommand = "Unknown command"
	ListingHeaderFiles  = "=== Server Files ===\n"
	ListingHeaderTrash  = "=== Trash Files ===\n"
	ListingEmpty        = "(none)\n"
	uploadedPrefix      = "File uploaded: "
	notFoundPrefix      = "File not found: "
	trashedPrefix       = "File moved to trash: "
	trashFailedPrefix   = "Error moving file to trash: "
	restoredPrefix      = "File restored: "
	restoreFailedPrefix = "Error restoring file: "
)

// Uploaded acknowledges a finished upload.
func Uploaded(name string) string { return uploadedPrefix + name }

// NotFound answers a DOWNLOAD of a missing file.
func NotFound(name string) string { return notFoundPrefix + name }

// Trashed acknowledges a DELETE.
func Trashed(name string) string { return trashedPrefix + name }

// TrashFailed reports a failed DELETE.
func TrashFailed(name string) string { return trashFailedPrefix + name }

// Restored acknowledges a RESTORE.
func Restored(name string) string { return restoredPrefix + name }

// RestoreFailed reports a failed RESTORE.
func RestoreFailed(name string) string { return restoreFailedPrefix + name }

// IsUploaded reports whether reply acknowledges an upload of name.
func IsUploaded(reply, name string) bool {
	return strings.TrimRight(reply, "\r\n") == Uploaded(name)
}

// FormatListing renders a header followed by one name per line, or the
// (none) marker when names is empty.
func FormatListing(header string, names []string) string {
	var b strings.Builder
	b.WriteString(header)
	if len(names) == 0 {
		b.WriteString(ListingEmpty)
		return b.String()
	}
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseListing extracts the names from a listing payload. The header line
// and the (none) marker are skipped, as are blank lines.
func ParseListing(payload string) []string {
	var names []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
		case strings.HasPrefix(line, "===") && strings.HasSuffix(line, "==="):
		case line+"\n" == ListingEmpty:
		default:
			names = append(names, line)
		}
	}
	return names
}
