package composition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// DefaultMatchThreshold is the minimum ingredient match percentage for a
// submitted composition to be accepted. Tunable via configuration.
const DefaultMatchThreshold = 90.0

// ValidationResult carries the outcome of comparing a submitted composition
// against a reference standard.
type ValidationResult struct {
	IsValid            bool     `json:"isValid"`
	Message            string   `json:"message"`
	MatchPercentage    float64  `json:"matchPercentage"`
	MissingIngredients []string `json:"missingIngredients"`
	ExtraIngredients   []string `json:"extraIngredients"`
	TotalSubmitted     int      `json:"totalProvidedIngredients"`
	TotalExpected      int      `json:"totalExpectedIngredients"`
}

// Validator scores submitted compositions against reference standards.
type Validator struct {
	threshold       float64
	requireComplete bool
}

// NewValidator creates a validator with the given match threshold. The
// threshold boundary is inclusive: a 90.0% match passes a 90 threshold.
// With requireComplete set, any missing reference ingredient fails the
// submission regardless of the percentage. A zero or negative threshold
// falls back to the default.
func NewValidator(threshold float64, requireComplete bool) *Validator {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Validator{threshold: threshold, requireComplete: requireComplete}
}

// Validate compares the submitted composition for drugName against the
// reference standard. A composition passes when the ingredient match
// percentage reaches the threshold. Extra ingredients alone never
// invalidate a submission.
func (v *Validator) Validate(drugName string, submitted, reference models.Composition) ValidationResult {
	submittedNames := ingredientNameSet(submitted)
	referenceNames := ingredientNameSet(reference)

	missing := difference(referenceNames, submittedNames)
	extra := difference(submittedNames, referenceNames)

	common := 0
	for name := range submittedNames {
		if _, ok := referenceNames[name]; ok {
			common++
		}
	}

	var matchPercentage float64
	if len(referenceNames) > 0 {
		matchPercentage = float64(common) / float64(len(referenceNames)) * 100
	}

	isValid := matchPercentage >= v.threshold
	if v.requireComplete && len(missing) > 0 {
		isValid = false
	}

	var message string
	if isValid {
		message = fmt.Sprintf("Composition validated successfully (%.1f%% match)", matchPercentage)
	} else {
		message = fmt.Sprintf("Composition validation failed (%.1f%% match)", matchPercentage)
	}

	return ValidationResult{
		IsValid:            isValid,
		Message:            message,
		MatchPercentage:    matchPercentage,
		MissingIngredients: missing,
		ExtraIngredients:   extra,
		TotalSubmitted:     len(submittedNames),
		TotalExpected:      len(referenceNames),
	}
}

// Threshold reports the configured match threshold.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

func ingredientNameSet(c models.Composition) map[string]struct{} {
	names := make(map[string]struct{}, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		names[strings.ToLower(strings.TrimSpace(ing.Name))] = struct{}{}
	}
	return names
}

// difference returns the members of a that are not in b, sorted for stable
// output.
func difference(a, b map[string]struct{}) []string {
	out := []string{}
	for name := range a {
		if _, ok := b[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
