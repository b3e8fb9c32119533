package optim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
)

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TotalTime = 10
	cfg.Dt = 0.01
	return cfg
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))

	v := Linspace(0.1, 0.7, 7)
	assert.Len(t, v, 7)
	assert.Equal(t, 0.7, v[6])
}

func TestGridSearch_Candidates(t *testing.T) {
	g := NewGridSearch(
		Axis{Name: "kp", Values: []float64{1, 2}},
		Axis{Name: "ki", Values: []float64{0, 0.5, 1}},
	)

	c := g.Candidates()
	require.Len(t, c, 6)
	assert.Equal(t, map[string]float64{"kp": 1, "ki": 0}, c[0])
	assert.Equal(t, map[string]float64{"kp": 1, "ki": 0.5}, c[1])
	assert.Equal(t, map[string]float64{"kp": 2, "ki": 1}, c[5])

	c[0]["kp"] = 99
	assert.Equal(t, 1.0, c[1]["kp"], "candidates must not share maps")

	assert.Empty(t, NewGridSearch().Candidates())
}

func TestGridSearch_Search(t *testing.T) {
	g := NewGridSearch(Axis{Name: "kp", Values: []float64{0.5, 2, 8}})

	out, err := g.Search(context.Background(), experiment.NewRegistry(), baseConfig(), "iae", 2)
	require.NoError(t, err)

	assert.Equal(t, "iae", out.Metric)
	assert.Equal(t, 8.0, out.Best.Params["kp"])
	require.Len(t, out.Candidates, 3)
	for i := 1; i < len(out.Candidates); i++ {
		assert.LessOrEqual(t, out.Candidates[i-1].Score, out.Candidates[i].Score)
	}
	assert.Equal(t, 0.5, out.Candidates[2].Params["kp"])
}

func TestGridSearch_Errors(t *testing.T) {
	r := experiment.NewRegistry()
	ctx := context.Background()

	_, err := NewGridSearch().Search(ctx, r, baseConfig(), "iae", 1)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	open := baseConfig()
	open.Controller = "none"
	_, err = NewGridSearch(Axis{Name: "kp", Values: []float64{1}}).Search(ctx, r, open, "iae", 1)
	assert.ErrorIs(t, err, ErrNotTunable)

	_, err = NewGridSearch(Axis{Name: "gain", Values: []float64{1}}).Search(ctx, r, baseConfig(), "iae", 1)
	assert.ErrorIs(t, err, dynamo.ErrUnknownParam)

	_, err = NewGridSearch(Axis{Name: "kp", Values: []float64{1}}).Search(ctx, r, baseConfig(), "energy", 1)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}
