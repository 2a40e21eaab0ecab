package nn

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

// netFile is the on-disk YAML layout for a saved network.
type netFile struct {
	Version    int           `yaml:"version"`
	Sizes      []int         `yaml:"sizes"`
	Activation string        `yaml:"activation"`
	Weights    [][][]float64 `yaml:"weights"`
	Biases     [][]float64   `yaml:"biases"`
}

const netFileVersion = 1

func ioErr(format string, args ...any) error {
	return &ModelError{Code: diagnostics.EIO, Message: fmt.Sprintf(format, args...)}
}

// Save writes the named model to path as YAML.
func (r *Registry) Save(name, path string) error {
	r.mu.Lock()
	net, err := r.get(name)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	file := netFile{
		Version:    netFileVersion,
		Sizes:      net.Sizes(),
		Activation: net.activation,
		Weights:    net.weights,
		Biases:     net.biases,
	}
	r.mu.Unlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return ioErr("cannot encode model '%s': %v", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ioErr("cannot write '%s': %v", path, err)
	}
	return nil
}

// Load reads a model from path and registers it under name, replacing
// any model of that name.
func (r *Registry) Load(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ioErr("cannot read '%s': %v", path, err)
	}
	var file netFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ioErr("cannot decode '%s': %v", path, err)
	}
	if file.Version != netFileVersion {
		return ioErr("'%s' has unsupported model version %d", path, file.Version)
	}
	if len(file.Sizes) < 2 {
		return modelErr("'%s' declares %d layers, need at least 2", path, len(file.Sizes))
	}
	if len(file.Weights) != len(file.Sizes)-1 || len(file.Biases) != len(file.Sizes)-1 {
		return modelErr("'%s' weight layout does not match its layer sizes", path)
	}
	for l := 0; l < len(file.Sizes)-1; l++ {
		if len(file.Weights[l]) != file.Sizes[l+1] || len(file.Biases[l]) != file.Sizes[l+1] {
			return modelErr("'%s' layer %d does not match its declared size", path, l)
		}
		for _, row := range file.Weights[l] {
			if len(row) != file.Sizes[l] {
				return modelErr("'%s' layer %d does not match its declared size", path, l)
			}
		}
	}
	switch file.Activation {
	case "sigmoid", "relu", "tanh":
	default:
		return modelErr("'%s' uses unknown activation '%s'", path, file.Activation)
	}

	net := &Network{
		sizes:      file.Sizes,
		weights:    file.Weights,
		biases:     file.Biases,
		activation: file.Activation,
	}
	r.mu.Lock()
	r.nets[name] = net
	r.mu.Unlock()
	return nil
}
