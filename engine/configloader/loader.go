// Package configloader loads the engine's YAML configuration files: the
// brand/category vocabulary used by reranking and the cross-market matching
// thresholds. Missing files fall back to the compiled defaults so the engine
// works out of the box.
package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hrygo/shopsense/engine/core/match"
	"github.com/hrygo/shopsense/engine/core/rerank"
)

const (
	// VocabularyFile is the default vocabulary file name under the base dir.
	VocabularyFile = "vocabulary.yaml"

	// MatchConfigFile is the default matching-threshold file name.
	MatchConfigFile = "matching.yaml"
)

// Loader is a unified configuration loader for the engine's YAML files.
type Loader struct {
	baseDir string
	cache   sync.Map
}

// NewLoader creates a new configuration loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		baseDir: baseDir,
	}
}

// Load loads a single YAML file and unmarshals it into target.
func (l *Loader) Load(subPath string, target any) error {
	data, err := l.readFileWithFallback(subPath)
	if err != nil {
		return fmt.Errorf("read file %s: %w", subPath, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal YAML %s: %w", subPath, err)
	}

	return nil
}

// LoadCached loads a configuration with caching. If the file is already
// cached, returns the cached value. Otherwise, calls factory to create the
// target and caches it.
func (l *Loader) LoadCached(subPath string, factory func() any) (any, error) {
	if cached, ok := l.cache.Load(subPath); ok {
		return cached, nil
	}

	target := factory()

	if err := l.Load(subPath, target); err != nil {
		return nil, err
	}

	l.cache.Store(subPath, target)

	return target, nil
}

// LoadVocabulary loads the reranking vocabulary. A missing file yields the
// compiled default vocabulary; a malformed file is an error.
func (l *Loader) LoadVocabulary() (*rerank.Vocabulary, error) {
	v, err := l.LoadCached(VocabularyFile, func() any { return &rerank.Vocabulary{} })
	if errors.Is(err, fs.ErrNotExist) {
		return rerank.DefaultVocabulary(), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*rerank.Vocabulary), nil
}

// LoadMatchConfig loads the cross-market matching thresholds. A missing file
// yields the compiled defaults; a malformed file is an error.
func (l *Loader) LoadMatchConfig() (match.Config, error) {
	c, err := l.LoadCached(MatchConfigFile, func() any {
		cfg := match.DefaultConfig()
		return &cfg
	})
	if errors.Is(err, fs.ErrNotExist) {
		return match.DefaultConfig(), nil
	}
	if err != nil {
		return match.Config{}, err
	}
	return *c.(*match.Config), nil
}

// readFileWithFallback tries to read the file relative to baseDir, then falls
// back to the executable directory for production builds.
func (l *Loader) readFileWithFallback(path string) ([]byte, error) {
	absPath := filepath.Join(l.baseDir, path)
	data, err := os.ReadFile(absPath)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	execPath, execErr := os.Executable()
	if execErr != nil {
		return nil, err
	}

	execDir := filepath.Dir(execPath)
	return os.ReadFile(filepath.Join(execDir, l.baseDir, path))
}

// ClearCache clears the configuration cache.
func (l *Loader) ClearCache() {
	l.cache = sync.Map{}
}
