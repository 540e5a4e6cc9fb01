package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"profiled/internal/common/fsutil"
)

var docExts = map[string]bool{".yaml": true, ".yml": true, ".json": true, ".toml": true}

// LoadDir merges every profile document in dir, in filename order. A
// profile id defined by more than one file is an error. The first file
// naming a known default_profile sets the default.
func LoadDir(dir string) (*Catalog, error) {
	abs, err := fsutil.ResolvePath(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, &LoadError{Path: abs, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if docExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, &LoadError{Path: abs, Err: errors.New("no profile documents in directory")}
	}

	out := New()
	out.hardware = make(map[string]any)
	var errs []error
	for _, name := range names {
		c, err := loadFile(filepath.Join(abs, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range c.List() {
			if !out.Upsert(p) {
				errs = append(errs, fmt.Errorf("%s: profile %q already defined", name, p.ID))
			}
		}
		for k, v := range c.hardware {
			if _, ok := out.hardware[k]; !ok {
				out.hardware[k] = v
			}
		}
		if out.defaultID == "" && c.defaultID != "" {
			out.defaultID = c.defaultID
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, &LoadError{Path: abs, Err: err}
	}
	out.source = abs
	return out, nil
}
