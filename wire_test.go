package seqdiff

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToWire(t *testing.T) {
	d := Diff[string]{
		Grow:        1,
		Degree:      4,
		Shrink:      2,
		Permutation: Permutation{{0, 3}, {1, 2}},
		Change:      map[int]string{3: "c", 0: "a"},
		Freeze:      IndexSet{2: {}, 0: {}},
	}

	w := ToWire(d)
	assert.Equal(t, Wire[string]{
		Grow:        1,
		Degree:      4,
		Shrink:      2,
		Permutation: [][]int{{0, 3}, {1, 2}},
		Change:      []Entry[string]{{Index: 0, Value: "a"}, {Index: 3, Value: "c"}},
		Freeze:      []int{0, 2},
	}, w)

	back, err := FromWire(w)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestFromWire_CanonicalizesCycles(t *testing.T) {
	d, err := FromWire(Wire[int]{Degree: 5, Permutation: [][]int{{4, 3}, {2, 0, 1}}})
	require.NoError(t, err)
	assert.Equal(t, Permutation{{0, 1, 2}, {3, 4}}, d.Permutation)
}

func TestFromWire_Errors(t *testing.T) {
	tests := []struct {
		name    string
		wire    Wire[int]
		wantErr string
	}{
		{name: "cycle out of range", wire: Wire[int]{Degree: 2, Permutation: [][]int{{0, 2}}}, wantErr: "decoding permutation"},
		{name: "short cycle", wire: Wire[int]{Degree: 2, Permutation: [][]int{{1}}}, wantErr: "decoding permutation"},
		{name: "repeated change", wire: Wire[int]{Degree: 2, Change: []Entry[int]{{0, 1}, {0, 2}}}, wantErr: "index 0 repeated"},
		{name: "change out of range", wire: Wire[int]{Degree: 2, Change: []Entry[int]{{5, 1}}}, wantErr: "decoding diff"},
		{name: "shrink too large", wire: Wire[int]{Degree: 1, Shrink: 2}, wantErr: "decoding diff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromWire(tt.wire)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := FromWire(Wire[int]{Degree: 2, Freeze: []int{2}})
	assert.IsType(t, &IndexOutOfRangeError{}, errors.Cause(err))
}

func TestWire_Encodings(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	for trial := 0; trial < 50; trial++ {
		d := randDiff(rng, rng.Intn(8))

		js, err := json.Marshal(ToWire(d))
		require.NoError(t, err)
		var fromJSON Wire[int]
		require.NoError(t, json.Unmarshal(js, &fromJSON))
		got, err := FromWire(fromJSON)
		require.NoError(t, err)
		assert.Equal(t, d, got, "json: %s", js)

		ys, err := yaml.Marshal(ToWire(d))
		require.NoError(t, err)
		var fromYAML Wire[int]
		require.NoError(t, yaml.Unmarshal(ys, &fromYAML))
		got, err = FromWire(fromYAML)
		require.NoError(t, err)
		assert.Equal(t, d, got, "yaml:\n%s", ys)
	}
}
