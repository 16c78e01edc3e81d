package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrder is an imported ERP sales order. SalesPerson is the
// authoritative rep key for commission work; SalesRep is a reporting
// field and must never feed money calculations.
type SalesOrder struct {
	ID              string    `json:"id"`
	SalesOrderID    string    `json:"salesOrderId"`
	SONumber        string    `json:"soNumber"`
	Num             string    `json:"num,omitempty"`
	CustomerID      string    `json:"customerId"`
	CustomerNum     string    `json:"customerNum,omitempty"`
	AccountNumber   string    `json:"accountNumber,omitempty"`
	CustomerName    string    `json:"customerName,omitempty"`
	SalesPerson     string    `json:"salesPerson"`
	SalesRep        string    `json:"salesRep,omitempty"`
	OrderDate       time.Time `json:"orderDate,omitempty"`
	CommissionMonth string    `json:"commissionMonth"`
	ManuallyLinked  bool      `json:"manuallyLinked,omitempty"`
}

// Ref returns the human-facing order reference: SO number, legacy num,
// or the document id as a last resort.
func (o *SalesOrder) Ref() string {
	if o.SONumber != "" {
		return o.SONumber
	}
	if o.Num != "" {
		return o.Num
	}
	return o.ID
}

// LineItem is one imported order line. SOItemID (falling back to
// LineItemID, then the legacy ID field) de-duplicates re-imported rows;
// a line carrying none of them is never treated as a duplicate.
type LineItem struct {
	SalesOrderID string          `json:"salesOrderId"`
	SOItemID     string          `json:"soItemId,omitempty"`
	LineItemID   string          `json:"lineItemId,omitempty"`
	ID           string          `json:"id,omitempty"`
	ProductNum   string          `json:"productNum,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// DedupKey returns the identity used to skip duplicate imports, or ""
// when the line carries no usable id.
func (li *LineItem) DedupKey() string {
	if li.SOItemID != "" {
		return li.SOItemID
	}
	if li.LineItemID != "" {
		return li.LineItemID
	}
	return li.ID
}
