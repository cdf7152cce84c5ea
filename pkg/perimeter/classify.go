package perimeter

import (
	"strings"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// adviceSeekingKeywords flag a query as requesting financial advice rather
// than plain information. Keyword matching stands in for a real classifier;
// the gate contract does not change when the classifier improves.
var adviceSeekingKeywords = []string{
	"should i",
	"recommend",
	"advice",
	"suggest",
	"help me",
	"what's best",
	"what is best",
	"better option",
}

// adviceIndicators flag a drafted response as containing financial advice.
var adviceIndicators = []string{
	"recommend",
	"should",
	"consider",
	"advise",
	"suggest",
	"better to",
	"optimal",
	"best option",
	"strategy",
	"allocation",
}

// highRiskIndicators mark advice that steers the user toward concrete
// transactions rather than general principles.
var highRiskIndicators = []string{
	"buy",
	"sell",
	"short",
	"leverage",
	"margin",
	"all in",
	"concentrate",
}

// ClassifyQueryIntent derives the intent of a raw query.
func ClassifyQueryIntent(text string) domain.QueryIntent {
	lower := strings.ToLower(text)
	for _, keyword := range adviceSeekingKeywords {
		if strings.Contains(lower, keyword) {
			return domain.IntentAdviceRequest
		}
	}
	return domain.IntentInformational
}

// ClassifyResponseAdvice reports whether the response text reads as advice.
func ClassifyResponseAdvice(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range adviceIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ClassifyResponseRisk derives a risk level for an advice-bearing response.
// Non-advice responses are always low risk.
func ClassifyResponseRisk(text string, containsAdvice bool) domain.RiskLevel {
	if !containsAdvice {
		return domain.RiskLow
	}
	lower := strings.ToLower(text)
	for _, indicator := range highRiskIndicators {
		if strings.Contains(lower, indicator) {
			return domain.RiskHigh
		}
	}
	return domain.RiskMedium
}
