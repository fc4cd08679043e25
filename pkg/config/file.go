package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// File reads settings from a YAML file on every call. Keys absent from the file keep
// their defaults and a missing file yields the defaults.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Settings(context.Context) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}

	if err != nil {
		return settings, fmt.Errorf("failed to read settings file %s: %w", f.Path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings file %s: %w", f.Path, err)
	}

	return settings.Sanitize(), nil
}
