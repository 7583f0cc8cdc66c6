package romloader

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nwaples/rardecode/v2"
)

// streamEntry is the header of the next entry of a sequential archive.
type streamEntry struct {
	name  string
	isDir bool
}

// nextFunc advances a sequential archive. It returns io.EOF at the end.
// After a successful call the archive reader yields the entry's contents.
type nextFunc func() (streamEntry, error)

// firstStreamROM walks a sequential archive and reads the first ROM entry.
func firstStreamROM(kind string, next nextFunc, r io.Reader, extensions []string) ([]byte, string, error) {
	for {
		e, err := next()
		if errors.Is(err, io.EOF) {
			return nil, "", ErrNoROMFile
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s entry: %w", kind, err)
		}
		if e.isDir || !isROMFile(e.name, extensions) {
			continue
		}

		data, err := limitedRead(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decompress %s: %w", e.name, err)
		}
		return data, filepath.Base(e.name), nil
	}
}

// extractFromRAR extracts the first ROM file from a RAR archive
func extractFromRAR(path string, extensions []string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("couldn't open RAR file %s for reading: %w", path, err)
	}
	defer r.Close()

	next := func() (streamEntry, error) {
		h, err := r.Next()
		if err != nil {
			return streamEntry{}, err
		}
		return streamEntry{name: h.Name, isDir: h.IsDir}, nil
	}
	return firstStreamROM("rar", next, r, extensions)
}

// extractFromGzip handles both tar.gz bundles and a single gzipped image.
func extractFromGzip(path string, extensions []string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("couldn't open gzip file %s for reading: %w", path, err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		tr := tar.NewReader(gr)
		next := func() (streamEntry, error) {
			h, err := tr.Next()
			if err != nil {
				return streamEntry{}, err
			}
			return streamEntry{name: h.Name, isDir: h.Typeflag != tar.TypeReg}, nil
		}
		return firstStreamROM("tar", next, tr, extensions)
	}

	// A bare .gz holds exactly one image, named after the archive.
	data, err := limitedRead(gr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress gzip: %w", err)
	}
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		name = name[:len(name)-3]
	}
	return data, name, nil
}
