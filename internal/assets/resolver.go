// Package assets locates the image file belonging to a record key. A
// missing image never blocks grading; callers surface it as a warning.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grading-service/internal/models"
)

// Resolver probes an image directory for a record's file, trying
// extensions in a fixed preference order.
type Resolver struct {
	dir  string
	exts []string
}

// NewResolver creates a resolver over dir. An empty extension list falls
// back to the .jpeg, .jpg, .png preference order.
func NewResolver(dir string, exts []string) *Resolver {
	if len(exts) == 0 {
		exts = []string{".jpeg", ".jpg", ".png"}
	}
	return &Resolver{dir: dir, exts: exts}
}

// Resolve returns the path of the image for key, or an error wrapping
// models.ErrAssetNotFound when no candidate exists.
func (r *Resolver) Resolve(key string) (string, error) {
	// Keys from some sheets already carry the extension.
	if ext := strings.ToLower(filepath.Ext(key)); ext != "" {
		for _, known := range r.exts {
			if ext == known {
				path := filepath.Join(r.dir, key)
				if fileExists(path) {
					return path, nil
				}
				break
			}
		}
	}

	for _, ext := range r.exts {
		path := filepath.Join(r.dir, key+ext)
		if fileExists(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s in %s", models.ErrAssetNotFound, key, r.dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
