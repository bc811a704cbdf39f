package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollisionError reports descriptors that would be written to the same file.
type CollisionError struct {
	Name string
	URLs []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("file name %q used by %d pages: %s", e.Name, len(e.URLs), strings.Join(e.URLs, ", "))
}

// DetectCollisions checks that no two descriptors share a predicted file
// name. Names are compared without the content-type extension, which is
// only known after the fetch.
func DetectCollisions(descs []Descriptor) error {
	seen := make(map[string][]string, len(descs))
	var order []string
	for _, d := range descs {
		name := d.PredictedName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		seen[name] = append(seen[name], d.URL)
	}

	for _, name := range order {
		if urls := seen[name]; len(urls) > 1 {
			return &CollisionError{Name: name, URLs: urls}
		}
	}
	return nil
}

// CheckDistinctPaths reports successful outcomes that ended up in the same
// file, which can happen when fallbacks or inferred extensions change a name.
func CheckDistinctPaths(outcomes []Outcome) error {
	seen := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		if prev, ok := seen[o.Path]; ok {
			return &CollisionError{Name: filepath.Base(o.Path), URLs: []string{prev, o.Descriptor.URL}}
		}
		seen[o.Path] = o.Descriptor.URL
	}
	return nil
}

// VerifyDirectory checks that dir holds exactly want regular files and none
// of them is empty.
func VerifyDirectory(dir string, want int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var files, empty []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, e.Name())

		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		if info.Size() == 0 {
			empty = append(empty, e.Name())
		}
	}

	if len(files) != want {
		return fmt.Errorf("expected %d files in %s, found %d", want, dir, len(files))
	}
	if len(empty) > 0 {
		sort.Strings(empty)
		return fmt.Errorf("empty files in %s: %s", dir, strings.Join(empty, ", "))
	}
	return nil
}
