package enums

import "fmt"

// ReturnAction distinguishes a plain return from an exchange.
type ReturnAction string

const (
	ReturnActionReturn   ReturnAction = "return"
	ReturnActionExchange ReturnAction = "exchange"
)

var validReturnActions = []ReturnAction{
	ReturnActionReturn,
	ReturnActionExchange,
}

// String implements fmt.Stringer.
func (a ReturnAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ReturnAction.
func (a ReturnAction) IsValid() bool {
	for _, candidate := range validReturnActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseReturnAction converts raw input into a ReturnAction.
func ParseReturnAction(value string) (ReturnAction, error) {
	for _, candidate := range validReturnActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return action %q", value)
}
