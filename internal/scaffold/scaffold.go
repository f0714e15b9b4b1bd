// Package scaffold writes a starter tree of definition files and an .env template.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed all:template
var files embed.FS

// ErrExists is returned when a starter file is already present and force is off.
var ErrExists = errors.New("file already exists")

// Write copies the starter tree into dir and returns the written paths. Existing files
// are left alone unless force is set.
func Write(dir string, force bool) ([]string, error) {
	root, err := fs.Sub(files, "template")
	if err != nil {
		return nil, err
	}

	if !force {
		var clash []error
		_ = fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				clash = append(clash, fmt.Errorf("%s: %w", filepath.Join(dir, name), ErrExists))
			}
			return nil
		})
		if len(clash) > 0 {
			return nil, errors.Join(clash...)
		}
	}

	var written []string
	err = fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		written = append(written, target)
		return nil
	})
	return written, err
}
