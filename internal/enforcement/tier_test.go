package enforcement_test

import (
	"testing"

	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/enforcement"
	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  enum.Tier
	}{
		{0, enum.TierNone},
		{0.2999, enum.TierNone},
		{0.3, enum.TierSoft},
		{0.5999, enum.TierSoft},
		{0.6, enum.TierHard},
		{0.7999, enum.TierHard},
		{0.8, enum.TierSuspensionRisk},
		{1, enum.TierSuspensionRisk},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, enforcement.TierFor(tt.score), "score %v", tt.score)
	}
}
