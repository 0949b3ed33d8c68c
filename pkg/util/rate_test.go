package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateModifier(t *testing.T) {
	tests := []struct {
		speed float64
		want  string
	}{
		{1.0, ""},
		{1.5, "+50%"},
		{0.8, "-20%"},
		{2.0, "+100%"},
		{0.5, "-50%"},
		{1.004, "+0%"},
		{1.25, "+25%"},
		{1.1, "+10%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RateModifier(tt.speed), "speed=%v", tt.speed)
	}
}

func TestRateMultiplier(t *testing.T) {
	got, err := RateMultiplier("")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = RateMultiplier("+50%")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-9)

	got, err = RateMultiplier("-20%")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got, 1e-9)

	_, err = RateMultiplier("50")
	assert.Error(t, err)
	_, err = RateMultiplier("fast%")
	assert.Error(t, err)
}

func TestRatePercent(t *testing.T) {
	got, err := RatePercent(RateModifier(0.8))
	require.NoError(t, err)
	assert.Equal(t, -20, got)

	got, err = RatePercent("")
	require.NoError(t, err)
	assert.Zero(t, got)
}
