package enums

import "fmt"

// ShipmentHistoryAction labels a shipment lifecycle transition.
type ShipmentHistoryAction string

const (
	ShipmentActionCreated       ShipmentHistoryAction = "CREATED"
	ShipmentActionUpdated       ShipmentHistoryAction = "UPDATED"
	ShipmentActionStatusUpdated ShipmentHistoryAction = "STATUS_UPDATED"
	ShipmentActionDeleted       ShipmentHistoryAction = "DELETED"
)

var validShipmentHistoryActions = []ShipmentHistoryAction{
	ShipmentActionCreated,
	ShipmentActionUpdated,
	ShipmentActionStatusUpdated,
	ShipmentActionDeleted,
}

// String implements fmt.Stringer.
func (a ShipmentHistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ShipmentHistoryAction.
func (a ShipmentHistoryAction) IsValid() bool {
	for _, candidate := range validShipmentHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseShipmentHistoryAction converts raw input into a ShipmentHistoryAction.
func ParseShipmentHistoryAction(value string) (ShipmentHistoryAction, error) {
	for _, candidate := range validShipmentHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment history action %q", value)
}
