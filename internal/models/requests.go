package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RequestFile is the on-disk layout of a queue file.
//
//	[[tracks]]
//	title = "Song"
//	artist = "Artist"
type RequestFile struct {
	Tracks []Request `json:"tracks" toml:"tracks"`
}

// LoadRequests reads a queue file. ".json" files may hold a bare array or a {"tracks": [...]} object;
// anything else is parsed as TOML.
func LoadRequests(path string) ([]Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	return ParseRequests(data, filepath.Ext(path))
}

// ParseRequests decodes queue file contents by extension.
func ParseRequests(data []byte, ext string) ([]Request, error) {
	switch strings.ToLower(ext) {
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var reqs []Request
			if err := json.Unmarshal(data, &reqs); err != nil {
				return nil, fmt.Errorf("failed to parse queue file: %w", err)
			}
			return reqs, nil
		}

		var file RequestFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse queue file: %w", err)
		}
		return file.Tracks, nil
	default:
		var file RequestFile
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("failed to parse queue file: %w", err)
		}
		return file.Tracks, nil
	}
}
