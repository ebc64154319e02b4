package collector

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kurihiro0119/rum-count/internal/classifier"
)

const stateFileExt = ".tfstate"

// StateFile is one local Terraform state file reduced to what the RUM count needs
type StateFile struct {
	Path             string
	TerraformVersion string
	ModTime          time.Time
	Units            []classifier.Unit
}

type stateDocument struct {
	TerraformVersion string `json:"terraform_version"`
	Resources        []struct {
		Mode string `json:"mode"`
		Type string `json:"type"`
	} `json:"resources"`
}

// FindStateFiles returns every *.tfstate file under root in lexical order.
// root may also name a single state file.
func FindStateFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open state path: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// skip provider caches and similar
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == stateFileExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk state path: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadStateFile parses one state file; every resources[] entry is one unit
func ReadStateFile(path string) (*StateFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc stateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sf := &StateFile{
		Path:             path,
		TerraformVersion: doc.TerraformVersion,
		ModTime:          info.ModTime(),
		Units:            make([]classifier.Unit, 0, len(doc.Resources)),
	}
	for _, rs := range doc.Resources {
		sf.Units = append(sf.Units, classifier.Unit{Type: rs.Type, Mode: rs.Mode, Count: 1})
	}
	return sf, nil
}
