package backup

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	manifestFileName = "manifest.json"
	archiveExt       = ".jsonl.gz"
	manifestVersion  = 1
)

// Manifest describes the contents of a backup archive directory.
type Manifest struct {
	Version     int              `json:"version"`
	Database    string           `json:"database"`
	CreatedAt   time.Time        `json:"created_at"`
	Collections []CollectionInfo `json:"collections"`
}

// CollectionInfo records a single archived collection.
type CollectionInfo struct {
	Name     string `json:"name"`
	Count    int64  `json:"count"`
	FileName string `json:"file_name"`
}

// WriteManifest writes the manifest into the archive directory.
func WriteManifest(dir string, m *Manifest) error {
	m.Version = manifestVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFileName), data, 0o644)
}

// ReadManifest reads and validates the manifest from an archive directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported archive version %d", m.Version)
	}
	if m.Database == "" {
		return nil, fmt.Errorf("manifest has no database name")
	}
	return &m, nil
}

// collectionWriter streams JSON lines into a gzip-compressed archive file.
type collectionWriter struct {
	file *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
}

func newCollectionWriter(path string) (*collectionWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	gz := gzip.NewWriter(file)
	return &collectionWriter{
		file: file,
		gz:   gz,
		buf:  bufio.NewWriter(gz),
	}, nil
}

// WriteLine appends one document line to the archive.
func (w *collectionWriter) WriteLine(line []byte) error {
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

// Close flushes and closes all layers.
func (w *collectionWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.gz.Close()
		w.file.Close()
		return err
	}
	if err := w.gz.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// collectionReader streams JSON lines out of a gzip-compressed archive file.
type collectionReader struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

func newCollectionReader(path string) (*collectionReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	scanner := bufio.NewScanner(gz)
	// Documents can exceed the default scanner buffer; Mongo caps BSON
	// documents at 16MB.
	scanner.Buffer(make([]byte, 64*1024), 20*1024*1024)

	return &collectionReader{
		file:    file,
		gz:      gz,
		scanner: scanner,
	}, nil
}

// Next returns the next document line, or false at end of archive.
func (r *collectionReader) Next() ([]byte, bool, error) {
	if !r.scanner.Scan() {
		return nil, false, r.scanner.Err()
	}
	return r.scanner.Bytes(), true, nil
}

// Close closes all layers.
func (r *collectionReader) Close() error {
	gzErr := r.gz.Close()
	fileErr := r.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}
