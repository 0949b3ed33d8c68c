package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RateModifier derives the signed speaking-rate percentage for a speed
// multiplier: 1.5 -> "+50%", 0.8 -> "-20%". A multiplier of exactly 1.0 yields ""
// so the rate parameter can be left out entirely.
func RateModifier(speedRate float64) string {
	if speedRate == 1.0 {
		return ""
	}
	percentage := int(math.Round((speedRate - 1.0) * 100))
	if percentage >= 0 {
		return fmt.Sprintf("+%d%%", percentage)
	}
	return fmt.Sprintf("%d%%", percentage)
}

// RateMultiplier converts a rate modifier back into a multiplier; "" is 1.0.
func RateMultiplier(rate string) (float64, error) {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return 1.0, nil
	}
	if !strings.HasSuffix(trimmed, "%") {
		return 0, fmt.Errorf("invalid rate %q: missing %%", rate)
	}
	percentage, err := strconv.Atoi(strings.TrimSuffix(trimmed, "%"))
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return 1.0 + float64(percentage)/100, nil
}

// RatePercent is RateMultiplier expressed as an integer offset, "" is 0.
func RatePercent(rate string) (int, error) {
	multiplier, err := RateMultiplier(rate)
	if err != nil {
		return 0, err
	}
	return int(math.Round((multiplier - 1.0) * 100)), nil
}
