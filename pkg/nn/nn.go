// Package nn provides the dense feed-forward networks behind the model
// statement and the train/predict builtins. Networks are addressed by
// name through a Registry; nothing here depends on the interpreter.
package nn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

// ModelError is a typed failure from the ML subsystem.
type ModelError struct {
	Code    string
	Message string
}

func (e *ModelError) Error() string { return e.Message }

func modelErr(format string, args ...any) error {
	return &ModelError{Code: diagnostics.EModel, Message: fmt.Sprintf(format, args...)}
}

// Config controls a training run.
type Config struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	Activation   string // "sigmoid", "relu" or "tanh"
	Shuffle      bool
}

// DefaultConfig returns the training defaults applied when a script
// passes no options.
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.1,
		Epochs:       1000,
		BatchSize:    1,
		Activation:   "sigmoid",
		Shuffle:      true,
	}
}

func (c Config) validate() error {
	if c.LearningRate <= 0 {
		return modelErr("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.Epochs <= 0 {
		return modelErr("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return modelErr("batch size must be positive, got %d", c.BatchSize)
	}
	switch c.Activation {
	case "sigmoid", "relu", "tanh":
	default:
		return modelErr("unknown activation '%s'", c.Activation)
	}
	return nil
}

// History records how a training run went.
type History struct {
	Epochs    int
	Losses    []float64 // mean loss per epoch
	FinalLoss float64
	Duration  time.Duration
}

// Network is a fully connected feed-forward network trained with
// stochastic gradient descent on mean squared error.
type Network struct {
	sizes      []int
	weights    [][][]float64 // weights[l][out][in]
	biases     [][]float64   // biases[l][out]
	activation string
}

// NewNetwork creates a network with the given layer sizes and random
// initial weights.
func NewNetwork(sizes []int, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, modelErr("a network needs at least 2 layers, got %d", len(sizes))
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, modelErr("layer sizes must be positive, got %d", s)
		}
	}
	n := &Network{
		sizes:      append([]int(nil), sizes...),
		activation: "sigmoid",
	}
	n.weights = make([][][]float64, len(sizes)-1)
	n.biases = make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		// Xavier-style scaling keeps early sigmoid outputs away from
		// the saturated tails.
		scale := math.Sqrt(2.0 / float64(in+out))
		n.weights[l] = make([][]float64, out)
		n.biases[l] = make([]float64, out)
		for o := 0; o < out; o++ {
			row := make([]float64, in)
			for i := range row {
				row[i] = rng.NormFloat64() * scale
			}
			n.weights[l][o] = row
		}
	}
	return n, nil
}

// Sizes returns the layer sizes.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// InputSize returns the width of the input layer.
func (n *Network) InputSize() int { return n.sizes[0] }

// OutputSize returns the width of the output layer.
func (n *Network) OutputSize() int { return n.sizes[len(n.sizes)-1] }

func activate(name string, x float64) float64 {
	switch name {
	case "relu":
		if x < 0 {
			return 0
		}
		return x
	case "tanh":
		return math.Tanh(x)
	default:
		return 1 / (1 + math.Exp(-x))
	}
}

// activateDeriv returns the derivative expressed in terms of the
// activated output, which is what backprop has in hand.
func activateDeriv(name string, y float64) float64 {
	switch name {
	case "relu":
		if y > 0 {
			return 1
		}
		return 0
	case "tanh":
		return 1 - y*y
	default:
		return y * (1 - y)
	}
}

// forward runs one input through the network and returns the activated
// output of every layer, input included.
func (n *Network) forward(input []float64) [][]float64 {
	acts := make([][]float64, len(n.sizes))
	acts[0] = input
	for l := 0; l < len(n.weights); l++ {
		out := make([]float64, n.sizes[l+1])
		for o := range out {
			sum := n.biases[l][o]
			row := n.weights[l][o]
			for i, x := range acts[l] {
				sum += row[i] * x
			}
			out[o] = activate(n.activation, sum)
		}
		acts[l+1] = out
	}
	return acts
}

// Predict runs a single input vector through the network.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, &ModelError{
			Code:    diagnostics.EShape,
			Message: fmt.Sprintf("input has %d values, network expects %d", len(input), n.InputSize()),
		}
	}
	acts := n.forward(input)
	out := acts[len(acts)-1]
	return append([]float64(nil), out...), nil
}

// Train fits the network to the given samples and returns the loss
// history. Inputs and targets are row-per-sample.
func (n *Network) Train(inputs, targets [][]float64, cfg Config, rng *rand.Rand) (History, error) {
	if err := cfg.validate(); err != nil {
		return History{}, err
	}
	if len(inputs) == 0 {
		return History{}, modelErr("training set is empty")
	}
	if len(inputs) != len(targets) {
		return History{}, modelErr("got %d inputs but %d targets", len(inputs), len(targets))
	}
	for i := range inputs {
		if len(inputs[i]) != n.InputSize() {
			return History{}, &ModelError{
				Code:    diagnostics.EShape,
				Message: fmt.Sprintf("sample %d has %d values, network expects %d", i, len(inputs[i]), n.InputSize()),
			}
		}
		if len(targets[i]) != n.OutputSize() {
			return History{}, &ModelError{
				Code:    diagnostics.EShape,
				Message: fmt.Sprintf("target %d has %d values, network expects %d", i, len(targets[i]), n.OutputSize()),
			}
		}
	}
	n.activation = cfg.Activation

	start := time.Now()
	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}

	hist := History{Epochs: cfg.Epochs}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if cfg.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		total := 0.0
		for batchStart := 0; batchStart < len(order); batchStart += cfg.BatchSize {
			batchEnd := batchStart + cfg.BatchSize
			if batchEnd > len(order) {
				batchEnd = len(order)
			}
			total += n.sgdStep(inputs, targets, order[batchStart:batchEnd], cfg.LearningRate)
		}
		hist.Losses = append(hist.Losses, total/float64(len(inputs)))
	}
	hist.FinalLoss = hist.Losses[len(hist.Losses)-1]
	hist.Duration = time.Since(start)
	return hist, nil
}

// sgdStep accumulates gradients over one mini-batch, applies them, and
// returns the summed sample loss.
func (n *Network) sgdStep(inputs, targets [][]float64, batch []int, lr float64) float64 {
	gradW := make([][][]float64, len(n.weights))
	gradB := make([][]float64, len(n.biases))
	for l := range n.weights {
		gradW[l] = make([][]float64, len(n.weights[l]))
		for o := range n.weights[l] {
			gradW[l][o] = make([]float64, len(n.weights[l][o]))
		}
		gradB[l] = make([]float64, len(n.biases[l]))
	}

	loss := 0.0
	for _, idx := range batch {
		acts := n.forward(inputs[idx])
		out := acts[len(acts)-1]
		target := targets[idx]

		// delta for the output layer under mean squared error
		delta := make([]float64, len(out))
		for o := range out {
			diff := out[o] - target[o]
			loss += diff * diff
			delta[o] = diff * activateDeriv(n.activation, out[o])
		}

		for l := len(n.weights) - 1; l >= 0; l-- {
			prev := acts[l]
			for o := range delta {
				gradB[l][o] += delta[o]
				for i, x := range prev {
					gradW[l][o][i] += delta[o] * x
				}
			}
			if l > 0 {
				next := make([]float64, len(prev))
				for i := range prev {
					sum := 0.0
					for o := range delta {
						sum += n.weights[l][o][i] * delta[o]
					}
					next[i] = sum * activateDeriv(n.activation, prev[i])
				}
				delta = next
			}
		}
	}

	step := lr / float64(len(batch))
	for l := range n.weights {
		for o := range n.weights[l] {
			n.biases[l][o] -= step * gradB[l][o]
			for i := range n.weights[l][o] {
				n.weights[l][o][i] -= step * gradW[l][o][i]
			}
		}
	}
	return loss / 2
}

// ParamCount returns the number of trainable parameters.
func (n *Network) ParamCount() int {
	total := 0
	for l := range n.weights {
		total += len(n.weights[l]) * len(n.weights[l][0])
		total += len(n.biases[l])
	}
	return total
}

// Summary returns a one-line human readable description.
func (n *Network) Summary() string {
	dims := make([]string, len(n.sizes))
	for i, s := range n.sizes {
		dims[i] = fmt.Sprintf("%d", s)
	}
	return fmt.Sprintf("layers [%s], %d parameters, activation %s",
		strings.Join(dims, " "), n.ParamCount(), n.activation)
}

// Registry holds named networks. All methods are safe for concurrent
// use.
type Registry struct {
	mu   sync.Mutex
	rng  *rand.Rand
	nets map[string]*Network
}

// NewRegistry creates an empty registry with a time-seeded RNG.
func NewRegistry() *Registry {
	return NewRegistrySeeded(time.Now().UnixNano())
}

// NewRegistrySeeded creates an empty registry with a fixed seed, for
// reproducible runs.
func NewRegistrySeeded(seed int64) *Registry {
	return &Registry{
		rng:  rand.New(rand.NewSource(seed)),
		nets: make(map[string]*Network),
	}
}

// Create registers a new network under the given name.
func (r *Registry) Create(name string, sizes []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nets[name]; exists {
		return modelErr("model '%s' already exists", name)
	}
	net, err := NewNetwork(sizes, r.rng)
	if err != nil {
		return err
	}
	r.nets[name] = net
	return nil
}

func (r *Registry) get(name string) (*Network, error) {
	net, ok := r.nets[name]
	if !ok {
		return nil, modelErr("no model named '%s'", name)
	}
	return net, nil
}

// Get returns the named network.
func (r *Registry) Get(name string) (*Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name)
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.nets))
	for name := range r.nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nets = make(map[string]*Network)
}

// Train fits the named model.
func (r *Registry) Train(name string, inputs, targets [][]float64, cfg Config) (History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net, err := r.get(name)
	if err != nil {
		return History{}, err
	}
	return net.Train(inputs, targets, cfg, r.rng)
}

// Predict runs one input through the named model.
func (r *Registry) Predict(name string, input []float64) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net, err := r.get(name)
	if err != nil {
		return nil, err
	}
	return net.Predict(input)
}

// Summary describes the named model.
func (r *Registry) Summary(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net, err := r.get(name)
	if err != nil {
		return "", err
	}
	return net.Summary(), nil
}
