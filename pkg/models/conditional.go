package models

// Operator is the comparison applied by a Condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
)

// Logic controls how a condition short-circuits evaluation. Empty behaves as AND.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single comparison against the triggering event's data.
type Condition struct {
	Field    string   `json:"field"           validate:"required"`
	Operator Operator `json:"operator"        validate:"required,oneof=equals not_equals contains greater_than less_than in not_in"`
	Value    any      `json:"value"`
	Logic    Logic    `json:"logic,omitempty" validate:"omitempty,oneof=AND OR"`
}
