package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 4

// includeLoader overlays the files named under "includes:" onto a Config.
// It lets wizard answers and their secrets live apart from client settings.
// Included files may not resolve outside root.
type includeLoader struct {
	root string
	seen map[string]bool
}

func processIncludes(cfg *Config, root string, seen map[string]bool, depth int) error {
	l := &includeLoader{root: root, seen: seen}
	return l.apply(cfg, root, cfg.Includes, depth)
}

func (l *includeLoader) apply(cfg *Config, dir string, includes []string, depth int) error {
	if depth >= maxIncludeDepth {
		return fmt.Errorf("config includes: nested deeper than %d", maxIncludeDepth)
	}
	for _, pattern := range includes {
		paths, err := l.expand(dir, pattern)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := l.overlay(cfg, p, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// expand resolves pattern against dir. A glob that matches nothing is
// skipped; a literal path is returned as-is so a missing file is reported.
func (l *includeLoader) expand(dir, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	pattern = filepath.Clean(pattern)

	rel, err := filepath.Rel(l.root, pattern)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("config includes: %q is outside %s", pattern, l.root)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config includes: glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (l *includeLoader) overlay(cfg *Config, path string, depth int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config includes: %w", err)
	}
	if l.seen[abs] {
		return fmt.Errorf("config includes: %s included twice", abs)
	}
	l.seen[abs] = true

	if err := validatePermissions(abs); err != nil {
		return fmt.Errorf("config includes: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("config includes: %w", err)
	}

	cfg.Includes = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config includes: parse %s: %w", abs, err)
	}
	nested := cfg.Includes
	cfg.Includes = nil
	if len(nested) == 0 {
		return nil
	}
	return l.apply(cfg, filepath.Dir(abs), nested, depth+1)
}
