package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPassesItsOwnValidation(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
}

func TestValidateAccumulatesMultipleIssues(t *testing.T) {
	cfg := Default()
	cfg.Alpha = 2
	cfg.MinSize = 0
	cfg.NSurrogates = -1

	issues := cfg.Validate()
	assert.Len(t, issues, 3)

	fields := make(map[string]bool)
	for _, iss := range issues {
		fields[iss.Field] = true
	}
	assert.True(t, fields["alpha"])
	assert.True(t, fields["min_size"])
	assert.True(t, fields["n_surrogates"])
}

func TestValidateRejectsUnrecognizedEnums(t *testing.T) {
	cfg := Default()
	cfg.SensSlopeMethod = "bogus"
	issues := cfg.Validate()
	assert.Len(t, issues, 1)
	assert.Equal(t, "sens_slope_method", issues[0].Field)
}

func TestCloneDeepCopiesCategoryMap(t *testing.T) {
	cfg := Default()
	cfg.CategoryMap = map[float64]string{0.9: "high"}

	clone := cfg.Clone()
	clone.CategoryMap[0.9] = "mutated"

	assert.Equal(t, "high", cfg.CategoryMap[0.9])
	assert.Equal(t, "mutated", clone.CategoryMap[0.9])
}

func TestCloneIsIndependentValueCopy(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Alpha = 0.5
	assert.Equal(t, 0.05, cfg.Alpha)
}

func TestScaleFactorSecondsKnownUnits(t *testing.T) {
	assert.Equal(t, 3600.0, ScaleFactorSeconds(ScaleHour))
	assert.Equal(t, 1.0, ScaleFactorSeconds(ScaleSecond))
	assert.InDelta(t, 365.25*24*3600, ScaleFactorSeconds(ScaleYear), 1e-9)
}
