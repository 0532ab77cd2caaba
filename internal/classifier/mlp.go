package classifier

import "fmt"

// mlp holds the exported weights of the trained two-layer network:
// linear(in_dim→hidden) → ReLU → linear(hidden→1). The sigmoid over the
// output logit lives in the caller.
type mlp struct {
	InDim  int         `json:"in_dim"`
	Hidden int         `json:"hidden"`
	W1     [][]float64 `json:"w1"` // hidden rows of in_dim weights
	B1     []float64   `json:"b1"`
	W2     []float64   `json:"w2"`
	B2     float64     `json:"b2"`
}

func loadMLP(path string) (*mlp, error) {
	var m mlp
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	if m.InDim <= 0 || m.Hidden <= 0 {
		return nil, fmt.Errorf("model dimensions invalid (in_dim=%d, hidden=%d)", m.InDim, m.Hidden)
	}
	if len(m.W1) != m.Hidden || len(m.B1) != m.Hidden || len(m.W2) != m.Hidden {
		return nil, fmt.Errorf("model weight shapes do not match hidden=%d", m.Hidden)
	}
	for i, row := range m.W1 {
		if len(row) != m.InDim {
			return nil, fmt.Errorf("model w1 row %d has %d weights, want %d", i, len(row), m.InDim)
		}
	}
	return &m, nil
}

// forward computes the output logit for one feature row.
func (m *mlp) forward(x []float64) float64 {
	out := m.B2
	for j := 0; j < m.Hidden; j++ {
		z := m.B1[j]
		row := m.W1[j]
		for i, xi := range x {
			if xi != 0 {
				z += row[i] * xi
			}
		}
		if z > 0 { // ReLU
			out += m.W2[j] * z
		}
	}
	return out
}
