// Package local reads the document from a file on disk and delivers saved
// documents to a download directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"housetrend/internal/core"
	"housetrend/internal/docstore"
)

// DownloadName is the file name every download is written under.
const DownloadName = "data.json"

var (
	_ docstore.Reader     = (*File)(nil)
	_ docstore.Downloader = (*DownloadDir)(nil)
)

// File is the local document file shipped alongside the dashboard.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Path() string { return f.path }

// Read parses the document file.
func (f *File) Read(_ context.Context) (core.Document, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Document{}, fmt.Errorf("%w: %s", docstore.ErrNotFound, f.path)
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	doc, err := core.DecodeDocument(b)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %s: %v", docstore.ErrMalformed, f.path, err)
	}
	return doc, nil
}

// DownloadDir writes saved documents as data.json into a directory the
// operator collects them from.
type DownloadDir struct {
	dir string
}

func NewDownloadDir(dir string) *DownloadDir {
	if dir == "" {
		dir = "."
	}
	return &DownloadDir{dir: dir}
}

// File returns the path of the latest download.
func (d *DownloadDir) File() string { return filepath.Join(d.dir, DownloadName) }

// Download replaces data.json atomically and returns its path.
func (d *DownloadDir) Download(_ context.Context, doc core.Document) (string, error) {
	b, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.dir, ".data-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	target := d.File()
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("replace %s: %w", target, err)
	}
	return target, nil
}
