// Package procedure loads per-model installation guides from YAML
// files. Guides back the step labels a technician can bind to the
// conversation context.
package procedure

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Step is one procedural step of an installation guide.
type Step struct {
	Label   string `yaml:"label"`
	Detail  string `yaml:"detail,omitempty"`
	Caution string `yaml:"caution,omitempty"`
}

// Guide is the manual for one equipment model.
type Guide struct {
	Model        string `yaml:"model"`
	Manufacturer string `yaml:"manufacturer,omitempty"`
	Series       string `yaml:"series,omitempty"`
	Capacity     string `yaml:"capacity,omitempty"`
	Steps        []Step `yaml:"steps"`
}

// Catalog holds the loaded guides, keyed by model.
type Catalog struct {
	mu     sync.RWMutex
	guides map[string]Guide
}

// LoadFromDirectory reads guide definitions from YAML files in dir.
// A missing directory yields an empty catalog; malformed files are
// skipped with a warning.
func LoadFromDirectory(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{guides: make(map[string]Guide)}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("guides directory does not exist, skipping", "dir", dir)
		return c, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read guides dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read guide file", "path", path, "err", err)
			continue
		}

		var guide Guide
		if err := yaml.Unmarshal(data, &guide); err != nil {
			logger.Warn("cannot parse guide file", "path", path, "err", err)
			continue
		}
		if guide.Model == "" {
			guide.Model = strings.TrimSuffix(name, filepath.Ext(name))
		}

		logger.Info("loaded procedure guide", "model", guide.Model, "steps", len(guide.Steps))
		c.guides[guide.Model] = guide
	}

	return c, nil
}

// Get returns the guide for a model, or nil when no guide exists.
func (c *Catalog) Get(model string) *Guide {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g, ok := c.guides[model]; ok {
		return &g
	}
	return nil
}

// Models lists the models with a loaded guide, sorted.
func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	models := make([]string, 0, len(c.guides))
	for m := range c.guides {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// StepLabels returns the ordered step labels for a model, or nil when
// no guide exists (free-form steps are then allowed).
func (c *Catalog) StepLabels(model string) []string {
	g := c.Get(model)
	if g == nil {
		return nil
	}
	labels := make([]string, len(g.Steps))
	for i, s := range g.Steps {
		labels[i] = s.Label
	}
	return labels
}

// HasStep reports whether label is a known step of the model's guide.
// Models without a guide accept any label.
func (c *Catalog) HasStep(model, label string) bool {
	g := c.Get(model)
	if g == nil {
		return true
	}
	for _, s := range g.Steps {
		if s.Label == label {
			return true
		}
	}
	return false
}
