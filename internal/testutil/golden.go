// Package testutil provides shared helpers for NEXUS conformance tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Script is one conformance case: a source file plus its expected
// stdout, and optionally the diagnostic code it must fail with.
type Script struct {
	Name     string
	Path     string
	Source   string
	Want     string // expected stdout, from the .golden file
	WantCode string // expected diagnostic code, from the .err file
}

// ListScripts loads every *.nx file under root together with its
// sibling .golden or .err expectation.
func ListScripts(root string) ([]Script, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var scripts []Script
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".nx") {
			continue
		}
		path := filepath.Join(root, e.Name())
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		s := Script{
			Name:   strings.TrimSuffix(e.Name(), ".nx"),
			Path:   path,
			Source: string(source),
		}
		base := strings.TrimSuffix(path, ".nx")
		if want, err := os.ReadFile(base + ".golden"); err == nil {
			s.Want = string(want)
		}
		if code, err := os.ReadFile(base + ".err"); err == nil {
			s.WantCode = strings.TrimSpace(string(code))
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}
