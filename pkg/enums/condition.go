package enums

import "fmt"

// Condition records the physical state of an item at hand-over or return.
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

var validConditions = []Condition{
	ConditionExcellent,
	ConditionGood,
	ConditionFair,
	ConditionPoor,
}

func (c Condition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Condition.
func (c Condition) IsValid() bool {
	for _, candidate := range validConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ReturnStatus is the item status a return in this condition lands on.
func (c Condition) ReturnStatus() ItemStatus {
	switch c {
	case ConditionFair, ConditionPoor:
		return ItemStatusUnderRepair
	default:
		return ItemStatusAvailable
	}
}

// ParseCondition converts raw input into a Condition.
func ParseCondition(value string) (Condition, error) {
	folded := foldToken(value)
	for _, candidate := range validConditions {
		if foldToken(string(candidate)) == folded {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition %q", value)
}
