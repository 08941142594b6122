package fs

import (
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bookrec/internal/port"
)

// DefaultArtifactGlob matches every JSON record-set export below the root.
const DefaultArtifactGlob = "**/*.json"

// Walker discovers record-set artifacts. A file is an artifact when its
// slash-separated path relative to the root matches an include glob and no
// exclude glob. Hidden directories are never entered.
type Walker struct {
	include []string
	exclude []string
}

func NewWalker(include, exclude []string) *Walker {
	if len(include) == 0 {
		include = []string{DefaultArtifactGlob}
	}
	return &Walker{include: include, exclude: exclude}
}

// Walk returns the artifacts under root sorted by path. Import assigns item
// ids in this order, so it must not depend on directory listing order.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var artifacts []port.FileInfo
	err = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.isArtifact(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		artifacts = append(artifacts, port.FileInfo{
			Path:    path,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for artifacts: %w", root, err)
	}

	slices.SortFunc(artifacts, func(a, b port.FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return artifacts, nil
}

// skipDir prunes hidden directories (the .bookrec state dir among them) and
// directories an exclude glob covers, e.g. "**/old/**".
func (w *Walker) skipDir(name, rel string) bool {
	return strings.HasPrefix(name, ".") || matchAny(w.exclude, rel+"/")
}

func (w *Walker) isArtifact(rel string) bool {
	return matchAny(w.include, rel) && !matchAny(w.exclude, rel)
}

// matchAny reports whether path matches one of patterns. A malformed pattern
// matches nothing.
func matchAny(patterns []string, path string) bool {
	return slices.ContainsFunc(patterns, func(pattern string) bool {
		ok, err := doublestar.Match(pattern, path)
		return err == nil && ok
	})
}
