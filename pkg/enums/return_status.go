package enums

import "fmt"

// ReturnStatus tracks a return/exchange record. Transitions are monotonic:
// pending -> in_exchange -> completed for exchanges, pending -> returned for
// plain returns. A record never moves backwards.
type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "pending"
	ReturnStatusInExchange ReturnStatus = "in_exchange"
	ReturnStatusCompleted  ReturnStatus = "completed"
	ReturnStatusReturned   ReturnStatus = "returned"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusInExchange,
	ReturnStatusCompleted,
	ReturnStatusReturned,
}

var returnStatusRank = map[ReturnStatus]int{
	ReturnStatusPending:    0,
	ReturnStatusInExchange: 1,
	ReturnStatusCompleted:  2,
	ReturnStatusReturned:   2,
}

// String implements fmt.Stringer.
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReturnStatus.
func (s ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanAdvanceTo reports whether moving from s to target is a forward transition.
func (s ReturnStatus) CanAdvanceTo(target ReturnStatus) bool {
	from, ok := returnStatusRank[s]
	if !ok {
		return false
	}
	to, ok := returnStatusRank[target]
	if !ok {
		return false
	}
	if s == ReturnStatusCompleted || s == ReturnStatusReturned {
		return false
	}
	// Plain returns skip in_exchange; exchanges must not jump to returned.
	if target == ReturnStatusReturned && s == ReturnStatusInExchange {
		return false
	}
	return to > from
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
