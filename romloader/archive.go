package romloader

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/bodgit/sevenzip"
)

// member is one entry of a random-access archive.
type member struct {
	name string
	info fs.FileInfo
	open func() (io.ReadCloser, error)
}

// firstROM scans members in archive order and decompresses the first one
// carrying a ROM extension. Later candidates are never looked at.
func firstROM(kind string, members []member, extensions []string) ([]byte, string, error) {
	for _, m := range members {
		if m.info.IsDir() || !isROMFile(m.name, extensions) {
			continue
		}

		rc, err := m.open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s in %s archive: %w", m.name, kind, err)
		}
		data, err := limitedRead(rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to decompress %s: %w", m.name, err)
		}
		return data, filepath.Base(m.name), nil
	}
	return nil, "", ErrNoROMFile
}

// extractFromZIP extracts the first ROM file from a ZIP archive
func extractFromZIP(path string, extensions []string) ([]byte, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("couldn't open ZIP file %s for reading: %w", path, err)
	}
	defer r.Close()

	members := make([]member, len(r.File))
	for i, f := range r.File {
		members[i] = member{name: f.Name, info: f.FileInfo(), open: f.Open}
	}
	return firstROM("zip", members, extensions)
}

// extractFrom7z extracts the first ROM file from a 7z archive
func extractFrom7z(path string, extensions []string) ([]byte, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("couldn't open 7z file %s for reading: %w", path, err)
	}
	defer r.Close()

	members := make([]member, len(r.File))
	for i, f := range r.File {
		members[i] = member{name: f.Name, info: f.FileInfo(), open: f.Open}
	}
	return firstROM("7z", members, extensions)
}
