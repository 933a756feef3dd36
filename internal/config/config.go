// Package config loads the HCL run manifest consumed by the kestrel CLI.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the top-level manifest.
//
// Example:
//
//	model {
//	  param_path  = "model.pgf"
//	  bin_path    = "model.bin"
//	  input_node  = "input"
//	  output_node = "output"
//	  input_shape = [1, 3, 32, 32]
//	}
type Config struct {
	Model ModelConfig `hcl:"model,block"`
}

// ModelConfig names the model files and the forward-pass endpoints.
type ModelConfig struct {
	ParamPath  string `hcl:"param_path"`
	BinPath    string `hcl:"bin_path"`
	InputNode  string `hcl:"input_node"`
	OutputNode string `hcl:"output_node"`
	InputShape []int  `hcl:"input_shape"`
	Debug      bool   `hcl:"debug,optional"`
}

// Load parses and validates a manifest file.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	m := &c.Model
	if m.ParamPath == "" || m.BinPath == "" {
		return fmt.Errorf("model.param_path and model.bin_path are required")
	}
	if m.InputNode == "" || m.OutputNode == "" {
		return fmt.Errorf("model.input_node and model.output_node are required")
	}
	if len(m.InputShape) != 2 && len(m.InputShape) != 4 {
		return fmt.Errorf("model.input_shape must have rank 2 or 4, got %d", len(m.InputShape))
	}
	return nil
}
