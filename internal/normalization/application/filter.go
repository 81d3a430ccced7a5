package application

import (
	"regexp"
	"strings"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

// matchesFilters reports whether a record passes the rule's filter
// conjunction. Filtering happens before any mapping cost is paid and a
// filtered record is never an error.
func matchesFilters(record map[string]any, filters []normalization.FilterCondition) bool {
	for _, cond := range filters {
		if !matchesCondition(record, cond) {
			return false
		}
	}
	return true
}

func matchesCondition(record map[string]any, cond normalization.FilterCondition) bool {
	actual, found := resolvePath(record, cond.Field)
	if !found {
		return false
	}

	switch cond.Operator {
	case normalization.OpEq:
		return looseEqual(actual, cond.Value)
	case normalization.OpNe:
		return !looseEqual(actual, cond.Value)
	case normalization.OpGt, normalization.OpLt, normalization.OpGte, normalization.OpLte:
		left, lok := transform.Numeric(actual)
		right, rok := transform.Numeric(cond.Value)
		if !lok || !rok {
			return false
		}
		switch cond.Operator {
		case normalization.OpGt:
			return left > right
		case normalization.OpLt:
			return left < right
		case normalization.OpGte:
			return left >= right
		default:
			return left <= right
		}
	case normalization.OpIn:
		members, ok := cond.Value.([]any)
		if !ok {
			return false
		}
		for _, member := range members {
			if looseEqual(actual, member) {
				return true
			}
		}
		return false
	case normalization.OpContains:
		return strings.Contains(transform.Stringify(actual), transform.Stringify(cond.Value))
	case normalization.OpRegex:
		pattern, ok := cond.Value.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(transform.Stringify(actual))
	}
	return false
}
