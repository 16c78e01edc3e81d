// Package model defines the domain records shared by the reconciliation
// and validation pipelines: the commissioned-rep directory, CRM company
// records, ERP customer records, sales orders, and line items.
package model

import "time"

// CrmCompany is a company record pulled from the CRM. It is read-only
// input to reconciliation: the pipeline classifies it but never writes
// back. AccountOrderID is the business-order key joining the company to
// its ERP customer record; companies without one are not ERP customers.
type CrmCompany struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AccountOrderID string    `json:"accountOrderId"`
	AccountType    RawOption `json:"accountType"`
	AccountID      string    `json:"accountId"`
	Region         string    `json:"region"`
	Street         string    `json:"street"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	PostalCode     string    `json:"postalCode"`
	Country        string    `json:"country"`
	AssigneeID     int64     `json:"assigneeId"`
	ActiveFlag     RawFlag   `json:"activeFlag"`
	EmailDomain    string    `json:"emailDomain,omitempty"`
	DateModified   time.Time `json:"dateModified,omitempty"`
}

// Rep is an entry in the commissioned-user directory. SalesPersonKey
// matches SalesOrder.SalesPerson exactly; Name is the fallback match.
type Rep struct {
	ID             string `json:"id"`
	SalesPersonKey string `json:"salesPerson"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Region         string `json:"region"`
	Title          string `json:"title"`
	CopperUserID   int64  `json:"copperUserId"`
	IsActive       bool   `json:"isActive"`
}

// CommissionRate is one row of the rate table, keyed by rep title and
// customer segment.
type CommissionRate struct {
	Title      string  `json:"title"`
	SegmentID  string  `json:"segmentId"`
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
	Active     bool    `json:"active"`
}
