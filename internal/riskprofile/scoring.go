// Package riskprofile is the scoring extension worked through the generic
// engine: a fixed ten-question profile over two dimensions, deterministic
// weight mapping, and closed scoring bands. Scores are derived values,
// recomputed on every view and only persisted as part of the profile's own
// record on confirmation.
package riskprofile

import (
	"formflow/internal/form/models"
)

// The two scored dimensions, five questions each.
var (
	takingFields   = []string{"rt1", "rt2", "rt3", "rt4", "rt5"}
	appetiteFields = []string{"ra1", "ra2", "ra3", "ra4", "ra5"}
)

// optionWeights maps answer position to its weight. Every question offers
// five answers; the scale is fixed across the whole profile.
var optionWeights = []float64{0, 2.5, 5, 7.5, 10}

// Band labels, closed numeric ranges over the 0-50 dimension scale.
const (
	BandVeryConservative = "Very Conservative"
	BandConservative     = "Conservative"
	BandBalanced         = "Balanced"
	BandAggressive       = "Aggressive"
	BandVeryAggressive   = "Very Aggressive"
)

// ScoreResult carries both dimension sums, the overall mean, and their band
// labels. Pointers are nil while the underlying questions are incomplete;
// an undefined score never maps to a band.
type ScoreResult struct {
	RiskTaking   *float64
	RiskAppetite *float64
	Overall      *float64

	RiskTakingBand   string
	RiskAppetiteBand string
	OverallBand      string
}

// Complete reports whether every scored question is answered.
func (r ScoreResult) Complete() bool {
	return r.Overall != nil
}

// WeightFor resolves one answer's weight by its position in the question's
// option list. Unknown values return -1; validation rejects them before
// scoring ever sees one.
func WeightFor(q *models.Question, value string) float64 {
	for i, opt := range q.Options {
		if opt.Value == value && i < len(optionWeights) {
			return optionWeights[i]
		}
	}
	return -1
}

// Band maps a score to its label. Bands are closed on the left: a score of
// exactly 10 is Conservative, exactly 40 Very Aggressive.
func Band(score float64) string {
	switch {
	case score < 10:
		return BandVeryConservative
	case score < 20:
		return BandConservative
	case score < 30:
		return BandBalanced
	case score < 40:
		return BandAggressive
	default:
		return BandVeryAggressive
	}
}

// Score computes both dimension sums and the overall mean from the current
// answers. A dimension with any unanswered question is undefined, and an
// undefined dimension makes the overall undefined too.
func Score(def *models.FormDefinition, answers models.AnswerSet) ScoreResult {
	var result ScoreResult
	result.RiskTaking = dimensionSum(def, answers, takingFields)
	result.RiskAppetite = dimensionSum(def, answers, appetiteFields)

	if result.RiskTaking != nil {
		result.RiskTakingBand = Band(*result.RiskTaking)
	}
	if result.RiskAppetite != nil {
		result.RiskAppetiteBand = Band(*result.RiskAppetite)
	}
	if result.RiskTaking != nil && result.RiskAppetite != nil {
		overall := (*result.RiskTaking + *result.RiskAppetite) / 2
		result.Overall = &overall
		result.OverallBand = Band(overall)
	}
	return result
}

func dimensionSum(def *models.FormDefinition, answers models.AnswerSet, fields []string) *float64 {
	var sum float64
	for _, field := range fields {
		v := answers.Get(field)
		if !v.IsAnswered() {
			return nil
		}
		q := def.QuestionByField(field)
		if q == nil {
			return nil
		}
		w := WeightFor(q, v.CanonicalString())
		if w < 0 {
			return nil
		}
		sum += w
	}
	return &sum
}
