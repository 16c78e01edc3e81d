// Package store persists the reconciliation and validation collections:
// the commissioned-user directory, CRM companies, ERP customers, sales
// orders, line items, and the commission-rate table.
package store

import (
	"context"

	"github.com/summit-goods/commission-cli/internal/model"
)

// CustomerWrite is one pending write produced by reconciliation.
// Creates carry a full record keyed by the business-order key; updates
// carry a merge patch of changed fields only (wire field name → value).
type CustomerWrite struct {
	DocKey   string
	Create   bool
	Customer *model.Customer
	Fields   map[string]string
}

// WriteError records one failed write from a batch. Batches are not
// transactional: siblings of a failed write still land.
type WriteError struct {
	DocKey string
	Err    error
}

// Store defines the persistence interface shared by the reconciliation
// and validation pipelines.
type Store interface {
	// Directory collections
	ListReps(ctx context.Context) ([]model.Rep, error)
	ListCrmCompanies(ctx context.Context) ([]model.CrmCompany, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	ListCommissionRates(ctx context.Context) ([]model.CommissionRate, error)

	// Order collections
	ListOrdersByMonth(ctx context.Context, commissionMonth string) ([]model.SalesOrder, error)
	ListLineItems(ctx context.Context, salesOrderID string) ([]model.LineItem, error)

	// Reconciliation writes
	ApplyCustomerWrites(ctx context.Context, writes []CustomerWrite) []WriteError

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// customerColumns maps reconciled wire field names to their storage
// columns. Writes carrying a name outside this map are rejected rather
// than silently dropped.
var customerColumns = map[string]string{
	"name":             "name",
	"accountNumber":    "account_number",
	"accountId":        "account_id",
	"region":           "region",
	"accountType":      "account_type",
	"billingAddress":   "billing_address",
	"billingCity":      "billing_city",
	"billingState":     "billing_state",
	"billingZip":       "billing_zip",
	"shippingAddress":  "shipping_address",
	"shippingCity":     "shipping_city",
	"shippingState":    "shipping_state",
	"shipToZip":        "ship_to_zip",
	"shippingCountry":  "shipping_country",
	"salesPerson":      "sales_person",
	"salesRepName":     "sales_rep_name",
	"salesRepEmail":    "sales_rep_email",
	"salesRepRegion":   "sales_rep_region",
	"copperId":         "copper_id",
	"transferStatus":   "transfer_status",
	"originalOwner":    "original_owner",
	"fishbowlUsername": "fishbowl_username",
}
