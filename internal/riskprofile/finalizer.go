package riskprofile

import (
	"formflow/internal/form/models"
	domainerrors "formflow/pkg/domain-errors"
)

// Finalizer turns the completed answer set into the profile's one combined
// write: all ten raw weights, the two dimension sums, the overall mean, and
// the three band labels. It also produces the review screen's summary, so
// what the respondent confirms is exactly what gets written.
type Finalizer struct{}

func (Finalizer) Finalize(def *models.FormDefinition, answers models.AnswerSet, visible []models.Question) (map[string]any, map[string]any, error) {
	result := Score(def, answers)
	if !result.Complete() {
		// Whole-record validation runs before the finalizer, so an
		// incomplete profile here means the definition and the scorer
		// disagree about the question set.
		return nil, nil, domainerrors.New(domainerrors.CodeConfiguration, "risk profile is incomplete, scores are undefined")
	}

	fields := make(map[string]any, len(visible)+6)
	for _, q := range visible {
		fields[q.Field] = WeightFor(&q, answers.Get(q.Field).CanonicalString())
	}
	fields["risk_taking_score"] = *result.RiskTaking
	fields["risk_appetite_score"] = *result.RiskAppetite
	fields["overall_score"] = *result.Overall
	fields["risk_taking_band"] = result.RiskTakingBand
	fields["risk_appetite_band"] = result.RiskAppetiteBand
	fields["overall_band"] = result.OverallBand

	summary := map[string]any{
		"risk_taking":   map[string]any{"score": *result.RiskTaking, "band": result.RiskTakingBand},
		"risk_appetite": map[string]any{"score": *result.RiskAppetite, "band": result.RiskAppetiteBand},
		"overall":       map[string]any{"score": *result.Overall, "band": result.OverallBand},
	}
	return fields, summary, nil
}

var _ models.Finalizer = Finalizer{}
