package comtrade_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridstream/sv92/comtrade"
)

func TestResampleSameRatePassesThrough(t *testing.T) {
	in := [][]float64{{1, 2, 3, 4}}
	out := comtrade.Resample(in, 1000, 1000.05)
	assert.Equal(t, in, out)
}

func TestResampleLengthFormula(t *testing.T) {
	in := [][]float64{make([]float64, 200)}
	out := comtrade.Resample(in, 200, 4800)
	want := int(math.Ceil(200 * 4800.0 / 200))
	assert.Equal(t, want, len(out[0]))
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	in := [][]float64{{0, 10}}
	out := comtrade.Resample(in, 1, 2)
	assert.Equal(t, 4, len(out[0]))
	assert.InDelta(t, 0.0, out[0][0], 1e-9)
	assert.InDelta(t, 5.0, out[0][1], 1e-9)
}

func TestResampleClampsAtBoundaries(t *testing.T) {
	in := [][]float64{{1, 2, 3}}
	out := comtrade.Resample(in, 3, 30)
	assert.InDelta(t, 1.0, out[0][0], 1e-9)
	assert.InDelta(t, 3.0, out[0][len(out[0])-1], 1e-9)
}
