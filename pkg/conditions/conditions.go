// Package conditions decides whether a workflow's trigger conditions hold for an event.
package conditions

import (
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/template"
)

// Evaluate folds the conditions left to right.
//
// An OR condition that passes ends evaluation with true. An AND condition,
// or one without logic, that fails ends evaluation with false. Any other
// outcome moves on to the next condition, and reaching the end yields true.
func Evaluate(conditions []models.Condition, data map[string]any) bool {
	for _, condition := range conditions {
		fieldValue := template.Value(data, condition.Field)
		result := Apply(condition.Operator, fieldValue, condition.Value)

		switch condition.Logic {
		case models.LogicOr:
			if result {
				return true
			}
		default:
			if !result {
				return false
			}
		}
	}

	return true
}

// Apply compares fieldValue against expected with the given operator.
// Unknown operators never match.
func Apply(operator models.Operator, fieldValue, expected any) bool {
	switch operator {
	case models.OperatorEquals:
		return looseEqual(fieldValue, expected)
	case models.OperatorNotEquals:
		return !looseEqual(fieldValue, expected)
	case models.OperatorContains:
		return contains(fieldValue, expected)
	case models.OperatorGreaterThan:
		return compare(fieldValue, expected, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compare(fieldValue, expected, func(a, b float64) bool { return a < b })
	case models.OperatorIn:
		items, ok := sequence(expected)

		return ok && member(fieldValue, items)
	case models.OperatorNotIn:
		items, ok := sequence(expected)

		return ok && !member(fieldValue, items)
	default:
		return false
	}
}
