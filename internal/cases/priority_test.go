package cases_test

import (
	"testing"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func TestPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		codes      []enum.ReasonCode
		confidence float64
		want       enum.Priority
	}{
		{name: "minor safety is critical", codes: []enum.ReasonCode{enum.ReasonMinorSafety}, confidence: 0.1, want: enum.PriorityCritical},
		{name: "criminal activity beats confidence", codes: []enum.ReasonCode{enum.ReasonSpam, enum.ReasonCriminalActivity}, confidence: 0, want: enum.PriorityCritical},
		{name: "high confidence alone", codes: nil, confidence: 0.95, want: enum.PriorityHigh},
		{name: "kyc mismatch is high", codes: []enum.ReasonCode{enum.ReasonKycMismatch}, confidence: 0, want: enum.PriorityHigh},
		{name: "confidence at 0.8 is not high", codes: []enum.ReasonCode{enum.ReasonSpam}, confidence: 0.8, want: enum.PriorityMedium},
		{name: "spam with medium confidence", codes: []enum.ReasonCode{enum.ReasonSpam}, confidence: 0.65, want: enum.PriorityMedium},
		{name: "persistent violations is medium", codes: []enum.ReasonCode{enum.ReasonPersistentViolations}, confidence: 0.1, want: enum.PriorityMedium},
		{name: "confidence at 0.6 is low", codes: []enum.ReasonCode{enum.ReasonSpam}, confidence: 0.6, want: enum.PriorityLow},
		{name: "harassment low confidence", codes: []enum.ReasonCode{enum.ReasonHarassment}, confidence: 0.2, want: enum.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cases.Priority(tt.codes, tt.confidence))
		})
	}
}

func TestRequiresReview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		codes      []enum.ReasonCode
		confidence float64
		want       bool
	}{
		{name: "spam low confidence", codes: []enum.ReasonCode{enum.ReasonSpam}, confidence: 0.5, want: false},
		{name: "spam high confidence", codes: []enum.ReasonCode{enum.ReasonSpam}, confidence: 0.81, want: true},
		{name: "coordinated abuse is not always reviewed", codes: []enum.ReasonCode{enum.ReasonCoordinatedAbuse}, confidence: 0.3, want: false},
		{name: "governance bypass", codes: []enum.ReasonCode{enum.ReasonGovernanceBypass}, confidence: 0, want: true},
		{name: "monetization bypass", codes: []enum.ReasonCode{enum.ReasonMonetizationBypass}, confidence: 0, want: true},
		{name: "persistent violations", codes: []enum.ReasonCode{enum.ReasonPersistentViolations}, confidence: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cases.RequiresReview(tt.codes, tt.confidence))
		})
	}
}
