package service

import (
	"os"
	"path/filepath"
)

// ImageProbe reports whether a stored image path resolves to a real file.
// It is a pure probe; failures mean "substitute the placeholder", never
// an error.
type ImageProbe interface {
	Exists(rel string) bool
}

// DirProbe checks image paths against a root directory on disk.
type DirProbe struct {
	Root string
}

// Exists reports whether rel names a regular file under the root.
func (p DirProbe) Exists(rel string) bool {
	if rel == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(p.Root, filepath.Clean(rel)))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

var _ ImageProbe = DirProbe{}
