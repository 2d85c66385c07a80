package enums

import "fmt"

// StockAction categorizes a stock movement ledger entry. The quantity on a
// movement is always positive; the action implies the direction.
type StockAction string

const (
	StockActionImport   StockAction = "import"
	StockActionExport   StockAction = "export"
	StockActionReturn   StockAction = "return"
	StockActionExchange StockAction = "exchange"
)

var validStockActions = []StockAction{
	StockActionImport,
	StockActionExport,
	StockActionReturn,
	StockActionExchange,
}

// String implements fmt.Stringer.
func (a StockAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known StockAction.
func (a StockAction) IsValid() bool {
	for _, candidate := range validStockActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseStockAction converts raw input into a StockAction.
func ParseStockAction(value string) (StockAction, error) {
	for _, candidate := range validStockActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock action %q", value)
}
