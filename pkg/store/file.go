package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// File is a file-backed snapshot store: one file per key under a scope
// directory. This is the default backend, playing the role browser local
// storage plays for the web client.
type File struct {
	dir string
}

func NewFile(opts *Options) (*File, error) {
	opts.SetDefaults()
	dir := opts.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".flowpilot")
	}
	dir = filepath.Join(dir, opts.Scope)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *File) Set(ctx context.Context, key string, value string) error {
	return os.WriteFile(f.path(key), []byte(value), 0o600)
}

func (f *File) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *File) Close() error {
	return nil
}

func (f *File) path(key string) string {
	// keys are simple slot names ("workspace", "evaluation"); flatten
	// anything else so a key can never escape the scope directory
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(f.dir, key+".json")
}
