package enums

import "fmt"

// ShipmentStatus tracks the lifecycle of an export shipment.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "Pending"
	ShipmentStatusApproved  ShipmentStatus = "Approved"
	ShipmentStatusShipped   ShipmentStatus = "Shipped"
	ShipmentStatusDelivered ShipmentStatus = "Delivered"
	ShipmentStatusCancelled ShipmentStatus = "Cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusApproved,
	ShipmentStatusShipped,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled
}

// CanTransitionTo reports whether the status may move to target. The
// forward chain is Pending, Approved, Shipped, Delivered; Cancelled is
// reachable from any non-terminal state.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	if !target.IsValid() || s.IsTerminal() {
		return false
	}
	if target == ShipmentStatusCancelled {
		return true
	}
	switch s {
	case ShipmentStatusPending:
		return target == ShipmentStatusApproved
	case ShipmentStatusApproved:
		return target == ShipmentStatusShipped
	case ShipmentStatusShipped:
		return target == ShipmentStatusDelivered
	}
	return false
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
