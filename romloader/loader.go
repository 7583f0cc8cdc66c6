// Package romloader resolves a user supplied path into a raw N64 ROM image,
// whether the path names a bare image or an archive (ZIP, 7z, gzip, tar.gz,
// RAR) holding one.
package romloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// Maximum ROM size. Commercial carts top out at 64MB; homebrew and
// expansion images can be larger.
const maxROMSize = 128 * 1024 * 1024

// Extensions lists the recognized N64 image extensions.
var Extensions = []string{".n64", ".z64", ".v64"}

// ErrNoROMFile is returned when no ROM file is found in an archive
var ErrNoROMFile = errors.New("no ROM file found in archive")

// ErrFileTooLarge is returned when extracted content exceeds size limit
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// formatType represents the detected file format
type formatType int

const (
	formatRaw formatType = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// Load reads a ROM from a file path. It auto-detects compressed archives
// via magic bytes (falling back to the archive extension) and extracts the
// first member, in archive order, whose name ends with one of the given
// extensions. Anything that is not an archive is read whole as a flat image.
//
// Returns the ROM data, the filename (basename only, useful for display),
// and any error. On error the returned slice is always nil.
func Load(path string, extensions []string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Read header for magic byte detection
	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	format := detectFormat(header, path)

	// Reset file position
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("failed to seek file: %w", err)
	}

	switch format {
	case formatRaw:
		data, err := readFlat(f)
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Base(path), nil

	case formatZIP:
		return extractFromZIP(path, extensions)

	case format7z:
		return extractFrom7z(path, extensions)

	case formatGzip:
		return extractFromGzip(path, extensions)

	case formatRAR:
		return extractFromRAR(path, extensions)
	}
	return nil, "", fmt.Errorf("unhandled format %d", format)
}

// LoadN64 is Load with the standard N64 extension set.
func LoadN64(path string) ([]byte, string, error) {
	return Load(path, Extensions)
}

// detectFormat determines the container format based on magic bytes and
// extension. Anything unrecognized is treated as a flat image.
func detectFormat(header []byte, path string) formatType {
	ext := strings.ToLower(filepath.Ext(path))

	// Check magic bytes first (more reliable)
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return formatZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return formatRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return format7z
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return formatGzip
	}

	// Fall back to extension for archive formats
	switch ext {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}

	// Check for .tar.gz
	if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
		return formatGzip
	}

	return formatRaw
}

// isROMFile checks if a filename has one of the given ROM extensions (case-insensitive)
func isROMFile(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// readFlat reads a whole uncompressed image. The length comes from the file
// size and a short read is an error.
func readFlat(f *os.File) ([]byte, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat ROM: %w", err)
	}
	size := fi.Size()
	if size > maxROMSize {
		return nil, ErrFileTooLarge
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("couldn't read %d bytes from ROM image file %s: %w", size, f.Name(), err)
	}
	return data, nil
}

// limitedRead reads from r up to maxROMSize bytes, returning an error if exceeded
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxROMSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
