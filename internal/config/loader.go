package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// A config file can layer on shared fragments with a top-level $include
// key naming one file or a list of files, relative to the including
// file. Includes load first; the including file overrides them section
// by section.
const includeKey = "$include"

// loadRaw reads one config file into a raw key map, expanding
// environment references and resolving $include directives. seen holds
// the include chain for cycle detection.
func loadRaw(path string, seen map[string]bool) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[abs] {
		return nil, fmt.Errorf("config include cycle detected at %s", abs)
	}
	seen[abs] = true
	defer delete(seen, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	raw, err := parseConfigBytes([]byte(os.ExpandEnv(string(data))), abs)
	if err != nil {
		return nil, err
	}

	includes, err := takeIncludes(raw)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for _, inc := range includes {
		if strings.TrimSpace(inc) == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		incRaw, err := loadRaw(inc, seen)
		if err != nil {
			return nil, err
		}
		merged = mergeSections(merged, incRaw)
	}
	return mergeSections(merged, raw), nil
}

// parseConfigBytes decodes YAML by default and JSON5 for .json/.json5
// files, by extension.
func parseConfigBytes(data []byte, path string) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, fmt.Errorf("failed to parse config: expected single document")
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// takeIncludes removes the $include directive from raw and returns its
// paths.
func takeIncludes(raw map[string]any) ([]string, error) {
	val, ok := raw[includeKey]
	if !ok {
		return nil, nil
	}
	delete(raw, includeKey)

	switch typed := val.(type) {
	case string:
		return []string{typed}, nil
	case []any:
		paths := make([]string, 0, len(typed))
		for _, entry := range typed {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			paths = append(paths, s)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("$include must be a string or list of strings")
	}
}

// mergeSections overlays src on dst, merging nested sections (server,
// provider, images, ...) a key at a time so an include can set one
// field of a section without clobbering the rest of it.
func mergeSections(dst, src map[string]any) map[string]any {
	for key, value := range src {
		if sub, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeSections(existing, sub)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

// decodeConfig turns the merged raw map into a typed Config. Unknown
// keys are rejected so a typoed section name fails at startup instead
// of silently falling back to defaults.
func decodeConfig(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
