package commands

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orbitarium/missionguide/pkg/logger"
)

// ErrNoCommands is returned when the catalog parses but yields zero usable
// command declarations.
var ErrNoCommands = errors.New("command catalog contains no usable commands")

// LoadError wraps a fatal catalog problem: missing file, unreadable file, or
// a document that is not valid YAML at all. Individually malformed entries
// are skipped, not fatal.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load command catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type catalogDoc struct {
	Commands []yaml.Node       `yaml:"commands"`
	Presets  map[string]Preset `yaml:"presets"`
}

// Load reads and parses the catalog file at path. Malformed individual
// entries are logged and dropped; the load succeeds iff at least one command
// parses cleanly.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse builds a Registry from raw catalog YAML. The path argument is only
// used for error and log messages.
func Parse(data []byte, path string) (*Registry, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	reg := newRegistry()

	for i := range doc.Commands {
		var schema Schema
		if err := doc.Commands[i].Decode(&schema); err != nil {
			logger.WarnCF("commands", "Skipping malformed catalog entry", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		if err := schema.validate(); err != nil {
			logger.WarnCF("commands", "Skipping invalid catalog entry", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		if _, dup := reg.byID[schema.ID]; dup {
			logger.WarnCF("commands", "Skipping duplicate command id", map[string]any{
				"id": schema.ID,
			})
			continue
		}
		reg.add(schema)
	}

	if len(reg.order) == 0 {
		return nil, &LoadError{Path: path, Err: ErrNoCommands}
	}

	for name, preset := range doc.Presets {
		if _, ok := reg.byID[preset.Command]; !ok {
			logger.WarnCF("commands", "Skipping preset for unknown command", map[string]any{
				"preset":  name,
				"command": preset.Command,
			})
			continue
		}
		reg.presets[name] = preset
	}

	logger.InfoCF("commands", "Command catalog loaded", map[string]any{
		"commands": len(reg.order),
		"presets":  len(reg.presets),
	})

	return reg, nil
}
