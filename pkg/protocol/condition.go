package protocol

// Operator is an operator slug with its human-readable label.
type Operator struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// Condition is a typed comparison used by rules. Evaluate must never panic and
// returns false for operators it does not know.
type Condition interface {
	Slug() string
	Label() string
	Operators() []Operator
	Evaluate(actual any, operator string, expected string) bool
}
