package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"CaseReview/internal/constants"

	"gopkg.in/yaml.v3"
)

const (
	CursorLink  = "link"
	CursorToken = "token"
)

// File is the optional YAML companion to the environment. The jobs sequence
// in the same file is read by appmanager.
type File struct {
	Owners    map[string]string   `yaml:"owners"`
	Endpoints map[string]Endpoint `yaml:"endpoints"`
}

// Endpoint overrides the page size and cursor style of one Clio resource.
type Endpoint struct {
	PageSize int    `yaml:"page_size"`
	Cursor   string `yaml:"cursor"`
}

// LoadFile parses path. A missing file yields the built-in owner table and no
// endpoint overrides.
func LoadFile(path string) (*File, error) {
	f := &File{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: read %s: %v", constants.ErrConfig, path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", constants.ErrConfig, path, err)
		}
	}

	if len(f.Owners) == 0 {
		f.Owners = make(map[string]string, len(DefaultOwnerFolders))
		for name, folder := range DefaultOwnerFolders {
			f.Owners[name] = folder
		}
	}
	for name, ep := range f.Endpoints {
		ep.Cursor = strings.ToLower(strings.TrimSpace(ep.Cursor))
		if ep.Cursor == "" {
			ep.Cursor = CursorLink
		}
		if ep.Cursor != CursorLink && ep.Cursor != CursorToken {
			return nil, fmt.Errorf("%w: "+constants.ErrUnknownCursorStyle, constants.ErrConfig, ep.Cursor, name)
		}
		f.Endpoints[name] = ep
	}
	return f, nil
}
