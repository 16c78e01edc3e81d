package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/db"
	"github.com/summit-goods/commission-cli/internal/model"
)

var crmCompanyColumns = []string{
	"id", "name", "account_order_id", "account_type", "account_id",
	"region", "street", "city", "state", "postal_code", "country",
	"assignee_id", "active_flag", "email_domain", "date_modified",
	"synced_at",
}

// ImportCompanies bulk-upserts CRM companies fetched from the Copper
// API into the local crm_companies collection. Multi-shape fields are
// stored as JSON so a later reconciliation run sees the original wire
// value.
func ImportCompanies(ctx context.Context, pool db.Pool, companies []model.CrmCompany) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(companies))
	for _, c := range companies {
		accountType, err := json.Marshal(c.AccountType)
		if err != nil {
			return 0, eris.Wrapf(err, "reconcile: encode account_type for company %s", c.ID)
		}
		activeFlag, err := json.Marshal(c.ActiveFlag)
		if err != nil {
			return 0, eris.Wrapf(err, "reconcile: encode active_flag for company %s", c.ID)
		}
		var dateModified any
		if !c.DateModified.IsZero() {
			dateModified = c.DateModified
		}
		rows = append(rows, []any{
			c.ID, c.Name, c.AccountOrderID, accountType, c.AccountID,
			c.Region, c.Street, c.City, c.State, c.PostalCode, c.Country,
			c.AssigneeID, activeFlag, c.EmailDomain, dateModified,
			now,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "crm_companies",
		Columns:      crmCompanyColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "reconcile: import companies")
	}
	zap.L().Info("crm companies imported",
		zap.String("component", "reconcile"), zap.Int64("rows", n))
	return n, nil
}
