package source

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
)

// Flags record what Load changed while normalizing a file.
type Flags uint8

const (
	FileVirtual        Flags = 1 << iota // built from memory, never read from disk
	FileHadBOM                           // a UTF-8 byte order mark was stripped
	FileNormalizedCRLF                   // CRLF line endings became LF
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// File is the normalized text of the target file. Offsets everywhere else
// in the reducer index Content.
type File struct {
	Path    string
	Content []byte
	Hash    [32]byte
	Flags   Flags

	newlines []uint32
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// NewFile builds a File from already normalized bytes.
func NewFile(path string, content []byte, flags Flags) *File {
	f := &File{
		Path:    filepath.ToSlash(filepath.Clean(path)),
		Content: content,
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
	for off := 0; ; off++ {
		i := bytes.IndexByte(content[off:], '\n')
		if i < 0 {
			break
		}
		off += i
		f.newlines = append(f.newlines, uint32(off)) // #nosec G115 -- bounded by Load
	}
	return f
}

// Load reads a file from disk, strips a BOM and turns CRLF into LF.
func Load(path string) (*File, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		return nil, fmt.Errorf("%s: file too large: %w", path, err)
	}

	var flags Flags
	if rest, ok := bytes.CutPrefix(content, bom); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return NewFile(path, content, flags), nil
}

// Virtual wraps in-memory text (tests, generated candidates).
func Virtual(name string, content []byte) *File {
	return NewFile(name, content, FileVirtual)
}

// Position converts a byte offset to a line/column pair.
func (f *File) Position(off uint32) LineCol {
	line, _ := slices.BinarySearch(f.newlines, off)
	var lineStart uint32
	if line > 0 {
		lineStart = f.newlines[line-1] + 1
	}
	return LineCol{Line: uint32(line) + 1, Col: off - lineStart + 1} // #nosec G115
}

// Text returns the bytes covered by span.
func (f *File) Text(sp Span) []byte {
	end := min(int(sp.End), len(f.Content))
	start := min(int(sp.Start), end)
	return f.Content[start:end]
}

// LineCount returns the number of lines, counting a trailing unterminated line.
func (f *File) LineCount() int {
	return CountLines(f.Content)
}

// Restore undoes the load-time normalizations so that written-back text keeps
// the original BOM and line endings.
func (f *File) Restore(content []byte) []byte {
	out := content
	if f.Flags&FileNormalizedCRLF != 0 {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	if f.Flags&FileHadBOM != 0 {
		out = append([]byte{0xEF, 0xBB, 0xBF}, out...)
	}
	return out
}

// CountLines counts lines the way editors do: "a\nb" and "a\nb\n" both have two.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
