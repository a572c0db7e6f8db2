package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionalConfidence(t *testing.T) {
	assert.Equal(t, 0.975, DirectionalConfidence(0.05, -1))
	assert.Equal(t, 0.025, DirectionalConfidence(0.05, 1))
	assert.Equal(t, 0.5, DirectionalConfidence(1, -1))
}

func TestOrdinalHighConfidenceDecreasing(t *testing.T) {
	assert.Equal(t, "Highly Likely Decreasing", Ordinal(0.97, nil))
	assert.Equal(t, "Very Likely Decreasing", Ordinal(0.91, nil))
	assert.Equal(t, "Likely Decreasing", Ordinal(0.70, nil))
}

func TestOrdinalMirroredIncreasing(t *testing.T) {
	// Cd near 0 mirrors the high-confidence-decreasing side to increasing.
	assert.Equal(t, "Highly Likely Increasing", Ordinal(0.03, nil))
	assert.Equal(t, "Very Likely Increasing", Ordinal(0.09, nil))
	assert.Equal(t, "Likely Increasing", Ordinal(0.30, nil))
}

func TestOrdinalStableAroundHalf(t *testing.T) {
	assert.Equal(t, "As Likely as Not", Ordinal(0.5, nil))
	assert.Equal(t, "As Likely as Not", Ordinal(0.4, nil))
}

func TestOrdinalCustomMapBypassesMirroring(t *testing.T) {
	custom := map[float64]string{
		0.9: "strong",
		0:   "weak",
	}
	assert.Equal(t, "strong", Ordinal(0.95, custom))
	assert.Equal(t, "weak", Ordinal(0.1, custom))
}

func TestBinary(t *testing.T) {
	assert.Equal(t, "No Trend", Binary(0.2, 1, 0.05))
	assert.Equal(t, "Increasing", Binary(0.01, 1, 0.05))
	assert.Equal(t, "Decreasing", Binary(0.01, -1, 0.05))
}
