package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// loadContext reads a request context fixture. The format follows the file
// extension: .json, .yaml/.yml or .toml.
func loadContext(path string) (*types.RequestContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context: %w", err)
	}
	return decodeContext(data, strings.ToLower(filepath.Ext(path)))
}

func decodeContext(data []byte, ext string) (*types.RequestContext, error) {
	var parsed map[string]any
	switch ext {
	case ".json", "":
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported context format %q", ext)
	}

	// YAML and TOML are normalized to JSON so unknown members round-trip.
	if parsed != nil {
		var err error
		if data, err = sonic.Marshal(parsed); err != nil {
			return nil, err
		}
	}

	var rc types.RequestContext
	if err := sonic.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("invalid context: %w", err)
	}
	return &rc, nil
}
