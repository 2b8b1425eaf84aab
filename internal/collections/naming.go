package collections

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

const (
	maxIdentifierLength = 64
	hashSuffixLength    = 9
)

// Sanitize derives a stable collection id from a human-readable name.
// The invariant id == Sanitize(name) holds for every Collection; the
// function is deterministic and total (it never errors); the stricter
// name-validity rules are enforced earlier in ValidateName.
func Sanitize(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")

	if out == "" {
		out = "collection"
	}

	if len(out) > maxIdentifierLength {
		out = truncateWithHash(out)
	}
	return out
}

func truncateWithHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(sum[:])[:8]
	base := maxIdentifierLength - hashSuffixLength
	if base < 0 {
		base = 0
	}
	if base > len(s) {
		base = len(s)
	}
	trimmed := strings.TrimRight(s[:base], "_")
	return trimmed + suffix
}

// ValidateName enforces the Collection name invariant:
// non-empty, no path separators, no traversal sequences.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return kberrors.Validation(kberrors.CodeInvalidName, "collection name must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return kberrors.Validation(kberrors.CodeInvalidName, "collection name must not contain path separators")
	}
	if strings.Contains(name, "..") {
		return kberrors.Validation(kberrors.CodeInvalidName, "collection name must not contain traversal sequences")
	}
	return nil
}

// ValidatePath enforces the file path invariants:
// rejects "..", absolute paths, and disallowed extensions before any I/O.
func ValidatePath(folder, name string) error {
	if strings.TrimSpace(name) == "" {
		return kberrors.Validation(kberrors.CodeInvalidPath, "file name must not be empty")
	}
	if path.IsAbs(folder) || path.IsAbs(name) {
		return kberrors.Validation(kberrors.CodeInvalidPath, "file path must not be absolute")
	}
	for _, seg := range strings.Split(path.Join(folder, name), "/") {
		if seg == ".." {
			return kberrors.Validation(kberrors.CodeInvalidPath, "file path must not contain '..'")
		}
	}
	ext := path.Ext(name)
	if !AllowedExtensions[strings.ToLower(ext)] {
		return kberrors.Validation(kberrors.CodeInvalidExtension, "file extension "+ext+" is not allowed")
	}
	return nil
}

// CleanFolder normalizes a folder path: empty stays empty, otherwise it is
// cleaned and has no leading/trailing slash.
func CleanFolder(folder string) string {
	if folder == "" {
		return ""
	}
	cleaned := path.Clean(folder)
	cleaned = strings.Trim(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}
