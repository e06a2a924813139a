// Package convert turns raw edge lists into the binary formats loaded by the
// engine: either a binary edge-list dump or a partitioned CSR tree.
package convert

import (
	"fmt"
	"os"

	"github.com/sanonone/minigraph/pkg/executor"
	"github.com/sanonone/minigraph/pkg/graph"
	"gopkg.in/yaml.v3"
)

// Output types.
const (
	TypeEdgeListBin = "edgelist_bin"
	TypeCSRBin      = "csr_bin"
)

// Options configures a conversion run.
type Options struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	// Cores is the number of parser goroutines and, for csr_bin, the number
	// of fragments produced.
	Cores int    `yaml:"cores"`
	Type  string `yaml:"type"`

	// Separator is the single-byte column separator of text input.
	Separator string `yaml:"separator"`

	// ToBin enables the conversion. Without it Run does nothing.
	ToBin bool `yaml:"tobin"`

	// FromBin reads Input as a binary edge-list dump directory instead of text.
	FromBin bool `yaml:"frombin"`

	ReplicationFactor int `yaml:"replication_factor"`
}

// DefaultOptions returns the settings used when neither flags nor a config
// file override them.
func DefaultOptions() Options {
	return Options{
		Cores:             executor.DefaultParallelism(),
		Type:              TypeCSRBin,
		Separator:         ",",
		ReplicationFactor: 1,
	}
}

// LoadConfig reads a YAML file over DefaultOptions. Unknown keys are rejected.
func LoadConfig(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	// 1. Open file
	file, err := os.Open(path)
	if err != nil {
		return opts, fmt.Errorf("failed to open convert config: %w", err)
	}
	defer file.Close()

	// 2. Strict decoder
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	// 3. Decode
	if err := decoder.Decode(&opts); err != nil {
		return opts, graph.Configf("YAML error in %s: %v", path, err)
	}
	return opts, nil
}

// Validate reports unusable settings as configuration errors.
func (o Options) Validate() error {
	if o.Input == "" {
		return graph.Configf("input path is required")
	}
	if o.Output == "" {
		return graph.Configf("output path is required")
	}
	if o.Cores < 1 {
		return graph.Configf("cores must be >= 1, got %d", o.Cores)
	}
	if o.Type != TypeEdgeListBin && o.Type != TypeCSRBin {
		return graph.Configf("unknown output type %q (want %s or %s)", o.Type, TypeEdgeListBin, TypeCSRBin)
	}
	if len(o.Separator) != 1 {
		return graph.Configf("separator must be a single byte, got %q", o.Separator)
	}
	if o.ReplicationFactor != 1 && o.ReplicationFactor != 2 {
		return graph.Configf("replication factor must be 1 or 2, got %d", o.ReplicationFactor)
	}
	return nil
}
