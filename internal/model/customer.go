package model

import "time"

// Protected field names: set on a Customer by the commission workflow,
// never overwritten by CRM reconciliation.
const (
	FieldTransferStatus   = "transferStatus"
	FieldOriginalOwner    = "originalOwner"
	FieldFishbowlUsername = "fishbowlUsername"
)

// Customer is an ERP customer record. DocKey is the document id and
// equals the CRM business-order key for records created by
// reconciliation. AccountType is always one of Distributor, Wholesale,
// or Retail.
type Customer struct {
	DocKey        string `json:"docKey"`
	Name          string `json:"name"`
	AccountNumber string `json:"accountNumber"`
	AccountID     string `json:"accountId"`
	Region        string `json:"region"`
	AccountType   string `json:"accountType"`

	BillingAddress string `json:"billingAddress"`
	BillingCity    string `json:"billingCity"`
	BillingState   string `json:"billingState"`
	BillingZip     string `json:"billingZip"`

	ShippingAddress string `json:"shippingAddress"`
	ShippingCity    string `json:"shippingCity"`
	ShippingState   string `json:"shippingState"`
	ShipToZip       string `json:"shipToZip"`
	ShippingCountry string `json:"shippingCountry"`

	SalesPerson    string `json:"salesPerson"`
	SalesRepName   string `json:"salesRepName"`
	SalesRepEmail  string `json:"salesRepEmail"`
	SalesRepRegion string `json:"salesRepRegion"`

	// Set by the commission workflow, preserved across reconciliation.
	TransferStatus   string `json:"transferStatus,omitempty"`
	OriginalOwner    string `json:"originalOwner,omitempty"`
	FishbowlUsername string `json:"fishbowlUsername,omitempty"`

	CopperID  string    `json:"copperId,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Field returns the current value of a reconciled field by its wire
// name. Unknown names return the empty string.
func (c *Customer) Field(name string) string {
	switch name {
	case "name":
		return c.Name
	case "accountNumber":
		return c.AccountNumber
	case "accountId":
		return c.AccountID
	case "region":
		return c.Region
	case "accountType":
		return c.AccountType
	case "billingAddress":
		return c.BillingAddress
	case "billingCity":
		return c.BillingCity
	case "billingState":
		return c.BillingState
	case "billingZip":
		return c.BillingZip
	case "shippingAddress":
		return c.ShippingAddress
	case "shippingCity":
		return c.ShippingCity
	case "shippingState":
		return c.ShippingState
	case "shipToZip":
		return c.ShipToZip
	case "shippingCountry":
		return c.ShippingCountry
	case "salesPerson":
		return c.SalesPerson
	case "salesRepName":
		return c.SalesRepName
	case "salesRepEmail":
		return c.SalesRepEmail
	case "salesRepRegion":
		return c.SalesRepRegion
	case FieldTransferStatus:
		return c.TransferStatus
	case FieldOriginalOwner:
		return c.OriginalOwner
	case FieldFishbowlUsername:
		return c.FishbowlUsername
	case "copperId":
		return c.CopperID
	default:
		return ""
	}
}

// SetField assigns a reconciled field by its wire name. Unknown names
// are ignored.
func (c *Customer) SetField(name, value string) {
	switch name {
	case "name":
		c.Name = value
	case "accountNumber":
		c.AccountNumber = value
	case "accountId":
		c.AccountID = value
	case "region":
		c.Region = value
	case "accountType":
		c.AccountType = value
	case "billingAddress":
		c.BillingAddress = value
	case "billingCity":
		c.BillingCity = value
	case "billingState":
		c.BillingState = value
	case "billingZip":
		c.BillingZip = value
	case "shippingAddress":
		c.ShippingAddress = value
	case "shippingCity":
		c.ShippingCity = value
	case "shippingState":
		c.ShippingState = value
	case "shipToZip":
		c.ShipToZip = value
	case "shippingCountry":
		c.ShippingCountry = value
	case "salesPerson":
		c.SalesPerson = value
	case "salesRepName":
		c.SalesRepName = value
	case "salesRepEmail":
		c.SalesRepEmail = value
	case "salesRepRegion":
		c.SalesRepRegion = value
	case FieldTransferStatus:
		c.TransferStatus = value
	case FieldOriginalOwner:
		c.OriginalOwner = value
	case FieldFishbowlUsername:
		c.FishbowlUsername = value
	case "copperId":
		c.CopperID = value
	}
}
