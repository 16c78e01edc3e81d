package copper

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/summit-goods/commission-cli/internal/model"
)

// ToCrmCompany flattens a Copper company into the local CRM record.
// Multi-shape custom fields keep their wire value so downstream
// normalization sees exactly what Copper sent.
func ToCrmCompany(c Company) model.CrmCompany {
	out := model.CrmCompany{
		ID:             strconv.FormatInt(c.ID, 10),
		Name:           c.Name,
		AssigneeID:     c.AssigneeID,
		EmailDomain:    c.EmailDomain,
		AccountOrderID: fieldString(c.CustomField(FieldAccountOrderID)),
		AccountID:      fieldString(c.CustomField(FieldAccountID)),
		Region:         fieldString(c.CustomField(FieldRegion)),
	}
	if c.Address != nil {
		out.Street = c.Address.Street
		out.City = c.Address.City
		out.State = c.Address.State
		out.PostalCode = c.Address.PostalCode
		out.Country = c.Address.Country
	}
	if raw := c.CustomField(FieldAccountType); raw != nil {
		// Decode errors leave the option empty, which normalizes to the
		// Retail default.
		_ = json.Unmarshal(raw, &out.AccountType)
	}
	if raw := c.CustomField(FieldActiveCustomer); raw != nil {
		_ = json.Unmarshal(raw, &out.ActiveFlag)
	}
	if c.DateModified > 0 {
		out.DateModified = time.Unix(c.DateModified, 0).UTC()
	}
	return out
}
