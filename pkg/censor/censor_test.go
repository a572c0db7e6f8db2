package censor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/mkerrors"
)

func TestNormalizeParsesCensoredTokens(t *testing.T) {
	values := []interface{}{"<5", ">100", "12.5", nil, "missing"}
	times := []float64{5, 4, 3, 2, 1}

	s, err := Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	// result is sorted ascending by time, so the "12.5" record (time 3)
	// comes first.
	assert.Equal(t, 12.5, s.Obs[0].Record.Value)
	assert.Equal(t, NoCensor, s.Obs[0].Record.Flag)
	assert.Equal(t, RightCensor, s.Obs[1].Record.Flag)
	assert.Equal(t, LeftCensor, s.Obs[2].Record.Flag)
}

func TestNormalizeExplicitFlagColumnOverridesToken(t *testing.T) {
	values := []interface{}{"5"}
	times := []float64{1}
	flags := []string{"<"}

	s, err := Normalize(values, times, flags, nil)
	assert.NoError(t, err)
	assert.Equal(t, LeftCensor, s.Obs[0].Record.Flag)
}

func TestNormalizeLengthMismatchIsInputShapeError(t *testing.T) {
	_, err := Normalize([]interface{}{1.0, 2.0}, []float64{1}, nil, nil)
	assert.Error(t, err)
	var shapeErr *mkerrors.InputShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestNormalizeDropsNaNTime(t *testing.T) {
	values := []interface{}{1.0, 2.0}
	times := []float64{math.NaN(), 2}

	s, err := Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2.0, s.Obs[0].Record.Value)
}

func TestHicensorRecensoresBelowHighestDetectionLimit(t *testing.T) {
	values := []interface{}{"<5", "3", "8"}
	times := []float64{1, 2, 3}
	s, err := Normalize(values, times, nil, nil)
	assert.NoError(t, err)

	out := Hicensor(s, math.NaN())
	// the "3" observation falls at or below the highest detection limit
	// (5) and must be re-censored as <5; "8" is untouched.
	var reclassified, untouched bool
	for _, o := range out.Obs {
		if o.Record.Value == 5 && o.Record.Flag == LeftCensor {
			reclassified = true
		}
		if o.Record.Value == 8 && !o.Record.IsCensored() {
			untouched = true
		}
	}
	assert.True(t, reclassified)
	assert.True(t, untouched)
}

func TestNUniqueUncensoredValues(t *testing.T) {
	values := []interface{}{1.0, 1.0, 2.0, "<5"}
	times := []float64{1, 2, 3, 4}
	s, err := Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.NUniqueUncensoredValues())
	assert.Equal(t, 3, s.NUncensored())
}
