package models

import "github.com/shopspring/decimal"

// LineItem is one part line of a customer excess list or supplier offer.
// Stored embedded as JSON; numeric fields are optional.
type LineItem struct {
	PartNumber   string           `json:"part_number"`
	Manufacturer string           `json:"manufacturer,omitempty"`
	Description  string           `json:"description,omitempty"`
	DateCode     string           `json:"date_code,omitempty"`
	QtyOnHand    *decimal.Decimal `json:"qty_on_hand,omitempty"`
	QtyOrdered   *decimal.Decimal `json:"qty_ordered,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
}
