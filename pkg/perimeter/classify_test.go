package perimeter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fingate-ai/fingate/pkg/domain"
)

func TestClassifyQueryIntent(t *testing.T) {
	tests := []struct {
		query string
		want  domain.QueryIntent
	}{
		{"Should I invest in index funds?", domain.IntentAdviceRequest},
		{"What do you recommend for retirement?", domain.IntentAdviceRequest},
		{"Help me choose between stocks and bonds", domain.IntentAdviceRequest},
		{"What is a mutual fund?", domain.IntentInformational},
		{"Explain compound interest", domain.IntentInformational},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQueryIntent(tt.query))
		})
	}
}

func TestClassifyResponseAdvice(t *testing.T) {
	assert.True(t, ClassifyResponseAdvice("I recommend a diversified portfolio."))
	assert.True(t, ClassifyResponseAdvice("You should consider your time horizon."))
	assert.False(t, ClassifyResponseAdvice("A mutual fund pools money from many investors."))
}

func TestClassifyResponseRisk(t *testing.T) {
	assert.Equal(t, domain.RiskLow, ClassifyResponseRisk("Buy low, sell high is a proverb.", false),
		"non-advice text is always low risk")
	assert.Equal(t, domain.RiskHigh, ClassifyResponseRisk("You should sell your bonds and buy tech.", true))
	assert.Equal(t, domain.RiskMedium, ClassifyResponseRisk("Consider a diversified approach.", true))
}
