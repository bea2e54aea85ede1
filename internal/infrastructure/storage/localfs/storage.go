package localfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Corpus is a directory of source documents on local disk.
type Corpus struct {
	basePath string
}

func New(basePath string) (*Corpus, error) {
	if basePath == "" {
		basePath = "data/raw"
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", basePath)
	}
	return &Corpus{basePath: basePath}, nil
}

// Files lists regular files accepted by keep, walking subdirectories, in
// lexical order so chunk ids are assigned deterministically.
func (c *Corpus) Files(keep func(path string) bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(c.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if keep == nil || keep(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
