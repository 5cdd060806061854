package models

// Category is the test category an acceptance criterion is compiled into.
type Category string

const (
	CategoryNavigation     Category = "navigation"
	CategoryFormValidation Category = "form-validation"
	CategoryAccessibility  Category = "accessibility"
	CategoryUIInteraction  Category = "ui-interaction"
)

// AcceptanceCriterion is one WHEN/IF ... THEN ... SHALL statement extracted
// from a specification document. Values are not mutated after extraction.
type AcceptanceCriterion struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Condition     string     `json:"condition"`
	Subject       string     `json:"subject"`
	Behavior      string     `json:"behavior"`
	Testable      bool       `json:"testable"`
	Category      Category   `json:"category"`
	RequirementID string     `json:"requirementId"`
	UserStory     string     `json:"userStory,omitempty"`
	Steps         []TestStep `json:"steps"`
}

// Requirement groups the criteria found under one "Requirement N" heading.
type Requirement struct {
	Number    int                   `json:"number"`
	Title     string                `json:"title,omitempty"`
	UserStory string                `json:"userStory,omitempty"`
	Criteria  []AcceptanceCriterion `json:"criteria"`
}

// TestableCount returns how many of the requirement's criteria are testable.
func (r Requirement) TestableCount() int {
	n := 0
	for _, c := range r.Criteria {
		if c.Testable {
			n++
		}
	}
	return n
}
