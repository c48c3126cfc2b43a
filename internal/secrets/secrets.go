// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text
// files. Each file holds one secret: the filename is the key name and the
// trimmed file contents are the value.
//
// Recognized key files: ncbi-api-key, ncbi-email, uspto-api-key, epo-key,
// epo-secret, serpapi-key. Unknown files load too; the scrapers simply
// ignore them.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names the scrapers consume.
const (
	NCBIAPIKey  = "ncbi-api-key"
	NCBIEmail   = "ncbi-email"
	USPTOAPIKey = "uspto-api-key"
	EPOKey      = "epo-key"
	EPOSecret   = "epo-secret"
	SerpAPIKey  = "serpapi-key"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory yields an empty map, not an error;
// unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
