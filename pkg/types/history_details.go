package types

import "github.com/shopspring/decimal"

// LotSnapshot captures the identity fields of a stock lot at the moment a
// ledger event was recorded. History rows must stay readable even after the
// lot itself changes or is deleted.
type LotSnapshot struct {
	LotNo    string `json:"lot_no"`
	Mark     string `json:"mark,omitempty"`
	Grade    string `json:"grade,omitempty"`
	Broker   string `json:"broker,omitempty"`
	SaleCode string `json:"sale_code,omitempty"`
}

// AdjustmentDetails is the payload for Stock Reduced / Stock Restored events.
type AdjustmentDetails struct {
	WeightDelta decimal.Decimal `json:"weight_delta"`
	BagsDelta   int             `json:"bags_delta"`
	Weight      decimal.Decimal `json:"weight"`
	Bags        int             `json:"bags"`
	Reason      string          `json:"reason"`
}

// AssignmentDetails is the payload for Stock Assigned / Stock Unassigned events.
type AssignmentDetails struct {
	UserCognitoID  string          `json:"user_cognito_id"`
	AssignedWeight decimal.Decimal `json:"assigned_weight"`
}

// StatusChangeDetails is the payload for STATUS_UPDATED shipment events.
type StatusChangeDetails struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ShipmentItemSnapshot records one line item as it existed when the event fired.
type ShipmentItemSnapshot struct {
	StockID        string          `json:"stock_id"`
	LotNo          string          `json:"lot_no,omitempty"`
	AssignedWeight decimal.Decimal `json:"assigned_weight"`
}

// ShipmentDetails is the payload for CREATED / UPDATED / DELETED shipment events.
type ShipmentDetails struct {
	Consignee              string                 `json:"consignee,omitempty"`
	Vessel                 string                 `json:"vessel,omitempty"`
	Shipmark               string                 `json:"shipmark,omitempty"`
	PackagingInstructions  string                 `json:"packaging_instructions,omitempty"`
	AdditionalInstructions string                 `json:"additional_instructions,omitempty"`
	Items                  []ShipmentItemSnapshot `json:"items,omitempty"`
}

// StockHistoryDetails is the structured details column on stock history rows.
// Exactly one action-specific payload is set per row; the lot snapshot is
// always present.
type StockHistoryDetails struct {
	Lot        LotSnapshot        `json:"lot"`
	Adjustment *AdjustmentDetails `json:"adjustment,omitempty"`
	Assignment *AssignmentDetails `json:"assignment,omitempty"`
	Note       string             `json:"note,omitempty"`
}

// ShipmentHistoryDetails is the structured details column on shipment history rows.
type ShipmentHistoryDetails struct {
	Shipment     *ShipmentDetails     `json:"shipment,omitempty"`
	StatusChange *StatusChangeDetails `json:"status_change,omitempty"`
	Note         string               `json:"note,omitempty"`
}
