package enums

import "fmt"

// StockHistoryAction labels every ledger-affecting event on a stock lot.
type StockHistoryAction string

const (
	StockActionCreated    StockHistoryAction = "Stock Created"
	StockActionUpdated    StockHistoryAction = "Stock Updated"
	StockActionDeleted    StockHistoryAction = "Stock Deleted"
	StockActionAssigned   StockHistoryAction = "Stock Assigned"
	StockActionUnassigned StockHistoryAction = "Stock Unassigned"
	StockActionReduced    StockHistoryAction = "Stock Reduced"
	StockActionRestored   StockHistoryAction = "Stock Restored"
)

var validStockHistoryActions = []StockHistoryAction{
	StockActionCreated,
	StockActionUpdated,
	StockActionDeleted,
	StockActionAssigned,
	StockActionUnassigned,
	StockActionReduced,
	StockActionRestored,
}

// String implements fmt.Stringer.
func (a StockHistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known StockHistoryAction.
func (a StockHistoryAction) IsValid() bool {
	for _, candidate := range validStockHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseStockHistoryAction converts raw input into a StockHistoryAction.
func ParseStockHistoryAction(value string) (StockHistoryAction, error) {
	for _, candidate := range validStockHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock history action %q", value)
}
