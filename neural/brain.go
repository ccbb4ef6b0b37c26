// Package neural implements the fixed-topology feed-forward controller
// driving each agent. The network is two dense layers with sigmoid
// activations; gonum's mat package does the layer math.
//
// A Brain has exactly one logical owner at a time. Clone creates an
// independent instance owned by the caller; Close releases a brain, and
// any call on a closed brain panics - that is a broken ownership contract
// at the call site, not a runtime condition to recover from.
package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Brain is a two-layer feed-forward network: input -> hidden -> output,
// sigmoid activation on both layers.
type Brain struct {
	inputs  int
	hidden  int
	outputs int

	w1 *mat.Dense    // hidden x inputs
	b1 *mat.VecDense // hidden
	w2 *mat.Dense    // outputs x hidden
	b2 *mat.VecDense // outputs

	closed bool
}

// NewRandomBrain creates a network with Xavier-initialized weights and
// zero biases.
func NewRandomBrain(rng *rand.Rand, inputs, hidden, outputs int) *Brain {
	b := &Brain{
		inputs:  inputs,
		hidden:  hidden,
		outputs: outputs,
		w1:      mat.NewDense(hidden, inputs, nil),
		b1:      mat.NewVecDense(hidden, nil),
		w2:      mat.NewDense(outputs, hidden, nil),
		b2:      mat.NewVecDense(outputs, nil),
	}

	scale1 := math.Sqrt(2.0 / float64(inputs))
	data := b.w1.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * scale1
	}
	scale2 := math.Sqrt(2.0 / float64(hidden))
	data = b.w2.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * scale2
	}

	return b
}

// BrainFromWeights rebuilds a network from serialized weights.
func BrainFromWeights(w Weights) (*Brain, error) {
	if w.Inputs <= 0 || w.Hidden <= 0 || w.Outputs <= 0 {
		return nil, fmt.Errorf("neural: invalid dimensions %dx%dx%d", w.Inputs, w.Hidden, w.Outputs)
	}
	if len(w.W1) != w.Hidden*w.Inputs || len(w.B1) != w.Hidden ||
		len(w.W2) != w.Outputs*w.Hidden || len(w.B2) != w.Outputs {
		return nil, fmt.Errorf("neural: weight lengths do not match %dx%dx%d", w.Inputs, w.Hidden, w.Outputs)
	}

	b := &Brain{
		inputs:  w.Inputs,
		hidden:  w.Hidden,
		outputs: w.Outputs,
		w1:      mat.NewDense(w.Hidden, w.Inputs, append([]float64(nil), w.W1...)),
		b1:      mat.NewVecDense(w.Hidden, append([]float64(nil), w.B1...)),
		w2:      mat.NewDense(w.Outputs, w.Hidden, append([]float64(nil), w.W2...)),
		b2:      mat.NewVecDense(w.Outputs, append([]float64(nil), w.B2...)),
	}
	return b, nil
}

// Inputs returns the network's input width.
func (b *Brain) Inputs() int { return b.inputs }

// Outputs returns the network's output width.
func (b *Brain) Outputs() int { return b.outputs }

// Predict runs the network. The result slice is freshly allocated and every
// element lies in [0,1]. Pure with respect to the weights.
func (b *Brain) Predict(inputs []float64) []float64 {
	b.mustLive("Predict")
	if len(inputs) != b.inputs {
		panic(fmt.Sprintf("neural: Predict with %d inputs, network has %d", len(inputs), b.inputs))
	}

	in := mat.NewVecDense(b.inputs, inputs)

	var h mat.VecDense
	h.MulVec(b.w1, in)
	h.AddVec(&h, b.b1)
	sigmoidInPlace(h.RawVector().Data)

	var out mat.VecDense
	out.MulVec(b.w2, &h)
	out.AddVec(&out, b.b2)
	result := append([]float64(nil), out.RawVector().Data...)
	sigmoidInPlace(result)

	return result
}

// Clone deep-copies the network. The clone is fully independent and owned
// by the caller.
func (b *Brain) Clone() *Brain {
	b.mustLive("Clone")
	return &Brain{
		inputs:  b.inputs,
		hidden:  b.hidden,
		outputs: b.outputs,
		w1:      mat.DenseCopyOf(b.w1),
		b1:      mat.VecDenseCopyOf(b.b1),
		w2:      mat.DenseCopyOf(b.w2),
		b2:      mat.VecDenseCopyOf(b.b2),
	}
}

// Mutate perturbs each weight and bias independently with probability rate,
// adding one standard Gaussian sample. No clamping.
func (b *Brain) Mutate(rng *rand.Rand, rate float64) {
	b.mustLive("Mutate")
	for _, data := range [][]float64{
		b.w1.RawMatrix().Data,
		b.b1.RawVector().Data,
		b.w2.RawMatrix().Data,
		b.b2.RawVector().Data,
	} {
		for i := range data {
			if rng.Float64() < rate {
				data[i] += rng.NormFloat64()
			}
		}
	}
}

// Close releases the brain. Further calls on this instance panic.
func (b *Brain) Close() {
	b.closed = true
	b.w1, b.b1, b.w2, b.b2 = nil, nil, nil, nil
}

func (b *Brain) mustLive(op string) {
	if b.closed {
		panic("neural: " + op + " on a closed brain")
	}
}

// Weights is the flat, serializable form of a Brain.
type Weights struct {
	Inputs  int       `json:"inputs"`
	Hidden  int       `json:"hidden"`
	Outputs int       `json:"outputs"`
	W1      []float64 `json:"w1"` // hidden*inputs, row-major
	B1      []float64 `json:"b1"`
	W2      []float64 `json:"w2"` // outputs*hidden, row-major
	B2      []float64 `json:"b2"`
}

// MarshalWeights flattens the network for persistence.
func (b *Brain) MarshalWeights() Weights {
	b.mustLive("MarshalWeights")
	return Weights{
		Inputs:  b.inputs,
		Hidden:  b.hidden,
		Outputs: b.outputs,
		W1:      append([]float64(nil), b.w1.RawMatrix().Data...),
		B1:      append([]float64(nil), b.b1.RawVector().Data...),
		W2:      append([]float64(nil), b.w2.RawMatrix().Data...),
		B2:      append([]float64(nil), b.b2.RawVector().Data...),
	}
}

func sigmoidInPlace(data []float64) {
	for i, v := range data {
		data[i] = 1 / (1 + math.Exp(-v))
	}
}
