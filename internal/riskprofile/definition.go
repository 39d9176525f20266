package riskprofile

import (
	"formflow/internal/form/models"
	id "formflow/pkg/domain"
)

// FormType is the profile's registered name.
const FormType = id.FormType("risk_profile")

// scaleQuestion builds one five-option segment question. Option order
// matters: position in the list is the answer's weight.
func scaleQuestion(questionID, field, label string, options [5]string) models.Question {
	opts := make([]models.Option, 0, len(options))
	for _, o := range options {
		opts = append(opts, models.Option{Value: o, Label: o})
	}
	values := make([]string, 0, len(options))
	for _, o := range options {
		values = append(values, o)
	}
	return models.Question{
		ID:         questionID,
		Field:      field,
		Kind:       models.KindSegment,
		Label:      label,
		Options:    opts,
		Constraint: &models.EnumConstraint{Required: true, Allowed: values},
	}
}

// Definition returns the risk profiler's form definition: ten questions over
// two dimensions, insert-once persistence, and a mandatory review of the
// computed scores before the single terminal write.
func Definition() models.FormDefinition {
	return models.FormDefinition{
		Type:        FormType,
		Title:       "Risk Profile",
		Description: "Ten questions assessing how much investment risk you can and want to take.",
		Strategy:    models.StrategyInsertOnce,
		Storage: models.StorageSpec{
			Table: "risk_profiles",
		},
		RequireReview: true,
		Finalizer:     Finalizer{},
		Questions: []models.Question{
			scaleQuestion("rt1", "rt1", "How stable is your current income?",
				[5]string{"Very unstable", "Unstable", "Moderately stable", "Stable", "Very stable"}),
			scaleQuestion("rt2", "rt2", "How many years until you expect to need this money?",
				[5]string{"Under 1 year", "1-3 years", "3-5 years", "5-10 years", "Over 10 years"}),
			scaleQuestion("rt3", "rt3", "What share of your savings would this investment represent?",
				[5]string{"Nearly all", "Most", "About half", "A minority", "A small part"}),
			scaleQuestion("rt4", "rt4", "Could you cover an unexpected large expense without selling investments?",
				[5]string{"Not at all", "With difficulty", "Partially", "Mostly", "Comfortably"}),
			scaleQuestion("rt5", "rt5", "How dependent are others on your income?",
				[5]string{"Entirely", "Heavily", "Somewhat", "Slightly", "Not at all"}),
			scaleQuestion("ra1", "ra1", "Your portfolio drops 20% in a month. What do you do?",
				[5]string{"Sell everything", "Sell some", "Wait and see", "Hold firmly", "Buy more"}),
			scaleQuestion("ra2", "ra2", "Which statement describes you best?",
				[5]string{"I avoid risk at all costs", "I prefer safety over returns", "I balance safety and returns", "I accept losses for higher returns", "I seek maximum returns"}),
			scaleQuestion("ra3", "ra3", "How often would you check this investment's value?",
				[5]string{"Daily with worry", "Weekly with concern", "Monthly", "Quarterly", "Rarely"}),
			scaleQuestion("ra4", "ra4", "What yearly loss would make you abandon an investment plan?",
				[5]string{"Any loss", "Over 5%", "Over 10%", "Over 25%", "No fixed limit"}),
			scaleQuestion("ra5", "ra5", "How experienced are you with volatile investments?",
				[5]string{"No experience", "A little", "Some", "Substantial", "Extensive"}),
		},
	}
}
