package nn

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

var xorInputs = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
var xorTargets = [][]float64{{0}, {1}, {1}, {0}}

func wantModelCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	modelErr, ok := err.(*ModelError)
	if !ok {
		t.Fatalf("got %T, want *ModelError", err)
	}
	if modelErr.Code != code {
		t.Fatalf("got %s (%s), want %s", modelErr.Code, modelErr.Message, code)
	}
}

func TestNewNetworkValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := NewNetwork([]int{2}, rng); err == nil {
		t.Error("one layer should fail")
	}
	if _, err := NewNetwork([]int{2, 0, 1}, rng); err == nil {
		t.Error("zero-width layer should fail")
	}
	net, err := NewNetwork([]int{2, 3, 1}, rng)
	if err != nil {
		t.Fatalf("NewNetwork failed: %v", err)
	}
	if net.InputSize() != 2 || net.OutputSize() != 1 {
		t.Errorf("sizes = %d in, %d out", net.InputSize(), net.OutputSize())
	}
	// 2*3 + 3 + 3*1 + 1
	if net.ParamCount() != 13 {
		t.Errorf("ParamCount = %d, want 13", net.ParamCount())
	}
}

func TestPredictShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net, err := NewNetwork([]int{3, 5, 2}, rng)
	if err != nil {
		t.Fatal(err)
	}
	out, err := net.Predict([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("got %d outputs, want 2", len(out))
	}
	_, err = net.Predict([]float64{1})
	wantModelCode(t, err, diagnostics.EShape)
}

func TestTrainLearnsXOR(t *testing.T) {
	reg := NewRegistrySeeded(7)
	if err := reg.Create("xor", []int{2, 8, 1}); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Epochs = 6000
	cfg.LearningRate = 1.0
	cfg.Shuffle = false

	hist, err := reg.Train("xor", xorInputs, xorTargets, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(hist.Losses) != cfg.Epochs {
		t.Fatalf("got %d loss entries, want %d", len(hist.Losses), cfg.Epochs)
	}
	if hist.FinalLoss >= hist.Losses[0] {
		t.Errorf("loss did not decrease: %g -> %g", hist.Losses[0], hist.FinalLoss)
	}
	if hist.FinalLoss > 0.05 {
		t.Errorf("final loss %g, want below 0.05", hist.FinalLoss)
	}

	for i, in := range xorInputs {
		out, err := reg.Predict("xor", in)
		if err != nil {
			t.Fatal(err)
		}
		rounded := 0.0
		if out[0] >= 0.5 {
			rounded = 1
		}
		if rounded != xorTargets[i][0] {
			t.Errorf("xor(%v) = %g, want %g", in, out[0], xorTargets[i][0])
		}
	}
}

func TestTrainValidation(t *testing.T) {
	reg := NewRegistrySeeded(1)
	if err := reg.Create("m", []int{2, 1}); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()

	_, err := reg.Train("m", nil, nil, cfg)
	wantModelCode(t, err, diagnostics.EModel)

	_, err = reg.Train("m", [][]float64{{1, 2}}, [][]float64{{1}, {2}}, cfg)
	wantModelCode(t, err, diagnostics.EModel)

	_, err = reg.Train("m", [][]float64{{1}}, [][]float64{{1}}, cfg)
	wantModelCode(t, err, diagnostics.EShape)

	_, err = reg.Train("m", [][]float64{{1, 2}}, [][]float64{{1, 2}}, cfg)
	wantModelCode(t, err, diagnostics.EShape)

	bad := cfg
	bad.LearningRate = 0
	_, err = reg.Train("m", [][]float64{{1, 2}}, [][]float64{{1}}, bad)
	wantModelCode(t, err, diagnostics.EModel)

	bad = cfg
	bad.Activation = "softmax"
	_, err = reg.Train("m", [][]float64{{1, 2}}, [][]float64{{1}}, bad)
	wantModelCode(t, err, diagnostics.EModel)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistrySeeded(1)
	if err := reg.Create("b", []int{2, 1}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Create("a", []int{2, 1}); err != nil {
		t.Fatal(err)
	}
	err := reg.Create("a", []int{2, 1})
	wantModelCode(t, err, diagnostics.EModel)

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v, want sorted [a b]", names)
	}

	_, err = reg.Get("ghost")
	wantModelCode(t, err, diagnostics.EModel)

	summary, err := reg.Summary("a")
	if err != nil {
		t.Fatal(err)
	}
	if summary == "" {
		t.Error("empty summary")
	}

	reg.Clear()
	if len(reg.Names()) != 0 {
		t.Error("Clear left models behind")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := NewRegistrySeeded(3)
	if err := reg.Create("m", []int{2, 3, 1}); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Epochs = 200
	cfg.Shuffle = false
	if _, err := reg.Train("m", xorInputs, xorTargets, cfg); err != nil {
		t.Fatal(err)
	}
	want, err := reg.Predict("m", []float64{1, 0})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := reg.Save("m", path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := NewRegistrySeeded(99)
	if err := other.Load("copy", path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := other.Predict("copy", []float64{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("loaded model predicts %v, original %v", got, want)
	}
}

func TestSaveLoadErrors(t *testing.T) {
	reg := NewRegistrySeeded(1)
	err := reg.Save("ghost", filepath.Join(t.TempDir(), "x.yaml"))
	wantModelCode(t, err, diagnostics.EModel)

	err = reg.Load("m", filepath.Join(t.TempDir(), "missing.yaml"))
	wantModelCode(t, err, diagnostics.EIO)
}

func TestActivations(t *testing.T) {
	tests := []struct {
		name   string
		x      float64
		want   float64
		approx bool
	}{
		{"sigmoid", 0, 0.5, false},
		{"relu", -1, 0, false},
		{"relu", 3, 3, false},
		{"tanh", 0, 0, false},
	}
	for _, tt := range tests {
		if got := activate(tt.name, tt.x); got != tt.want {
			t.Errorf("activate(%s, %g) = %g, want %g", tt.name, tt.x, got, tt.want)
		}
	}
	// derivatives expressed in terms of the activated output
	if got := activateDeriv("sigmoid", 0.5); got != 0.25 {
		t.Errorf("sigmoid' at y=0.5 = %g, want 0.25", got)
	}
	if got := activateDeriv("relu", 2); got != 1 {
		t.Errorf("relu' at y=2 = %g, want 1", got)
	}
	if got := activateDeriv("tanh", 0); got != 1 {
		t.Errorf("tanh' at y=0 = %g, want 1", got)
	}
}
