// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonl persists harvested documents as newline-delimited JSON.
// Files are append-only; there is no update or delete path.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/chem-harvest/pkg/types"
)

// Append writes each document as one JSON line at the end of the file at
// path, creating parent directories as needed. Every document must pass
// schema validation; the batch is rejected before any write otherwise.
// It returns the number of documents written.
func Append(path string, docs []types.Document) (int, error) {
	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	count := 0
	for _, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return count, fmt.Errorf("encoding document %q: %w", doc.Title, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return count, fmt.Errorf("writing to %s: %w", path, err)
		}
		count++
	}
	if err := w.Flush(); err != nil {
		return count, fmt.Errorf("flushing %s: %w", path, err)
	}
	return count, nil
}

// ForEach reads documents lazily from path in file order, calling fn for
// each one. Blank lines are skipped. fn returning an error stops the scan
// and propagates the error.
func ForEach(path string, fn func(types.Document) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc types.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return fmt.Errorf("decoding %s line %d: %w", path, lineNo, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReadAll reads every document from path into memory.
func ReadAll(path string) ([]types.Document, error) {
	var docs []types.Document
	err := ForEach(path, func(doc types.Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Count returns the number of records in the file at path without
// deserializing them. A missing file counts as zero.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}
