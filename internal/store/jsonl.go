// Package store persists verification records and side files as append-only
// line-delimited JSON and reads them back for reconciliation.
package store

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/ppiankov/proofvote/internal/model"
)

const maxLineSize = 10 * 1024 * 1024

// JSONLStore appends one JSON document per line. Appends are serialised and
// a document whose canonical digest is already in the file is not written
// again, so retrying a batch never duplicates earlier lines.
type JSONLStore struct {
	path string

	mu      sync.Mutex
	file    *os.File
	digests map[string]struct{}
}

// OpenJSONL opens path for appending, creating it and its directory
func OpenJSONL(path string) (*JSONLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	digests, err := loadDigests(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &JSONLStore{path: path, file: f, digests: digests}, nil
}

// Path returns the file backing the store
func (s *JSONLStore) Path() string {
	return s.path
}

// Append writes a verification record
func (s *JSONLStore) Append(record model.VerificationRecord) error {
	return s.AppendValue(record)
}

// AppendValue writes any JSON-serialisable value as one line
func (s *JSONLStore) AppendValue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal line: %w", err)
	}

	digest, err := Digest(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("store %s is closed", s.path)
	}
	if _, seen := s.digests[digest]; seen {
		return nil
	}

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	s.digests[digest] = struct{}{}
	return nil
}

// Close closes the underlying file
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Digest returns the sha256 of the RFC 8785 canonical form of data
func Digest(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func loadDigests(path string) (map[string]struct{}, error) {
	digests := make(map[string]struct{})

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return digests, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	err = eachLine(f, func(line int, data []byte) error {
		digest, err := Digest(data)
		if err != nil {
			// hand-edited lines that no longer parse are left alone
			return nil
		}
		digests[digest] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return digests, nil
}

func eachLine(r io.Reader, fn func(line int, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}
