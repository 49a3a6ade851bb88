package importer

import "fmt"

// Kind selects which list collection a batch is imported into.
type Kind string

const (
	KindCustomerExcess Kind = "customer-excess"
	KindSupplierOffer  Kind = "supplier-offers"
)

const (
	ColumnFileName     = "File Name"
	ColumnNotes        = "Notes"
	ColumnLineItems    = "Line Items"
	ColumnPartNumber   = "Part Number"
	ColumnManufacturer = "Manufacturer"
	ColumnDescription  = "Description"
	ColumnDateCode     = "Date Code"
	ColumnQtyOnHand    = "Qty On Hand"
	ColumnQtyOrdered   = "Qty Ordered"
	ColumnUnitPrice    = "Unit Price"
)

// DateLayout is MM-dd-yyyy.
const DateLayout = "01-02-2006"

var numericLineItemColumns = []string{ColumnQtyOnHand, ColumnQtyOrdered, ColumnUnitPrice}

var lineItemColumns = []string{
	ColumnPartNumber,
	ColumnManufacturer,
	ColumnDescription,
	ColumnDateCode,
	ColumnQtyOnHand,
	ColumnQtyOrdered,
	ColumnUnitPrice,
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCustomerExcess, KindSupplierOffer:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown import kind %q", s)
	}
}

// PartyColumn is the column holding the counterparty card code.
func (k Kind) PartyColumn() string {
	if k == KindSupplierOffer {
		return "Supplier"
	}
	return "Customer"
}

func (k Kind) DateColumn() string {
	if k == KindSupplierOffer {
		return "Offer Date"
	}
	return "List Date"
}

func (k Kind) Label() string {
	if k == KindSupplierOffer {
		return "Supplier offers"
	}
	return "Customer excess lists"
}

// headerColumns are the list-level columns, in report order.
func (k Kind) headerColumns() []string {
	return []string{ColumnFileName, k.PartyColumn(), k.DateColumn(), ColumnNotes}
}
