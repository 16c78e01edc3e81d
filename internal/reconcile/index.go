// Package reconcile aligns CRM company records with the ERP customer
// collection: it indexes and deduplicates the CRM side, diffs each
// company against its ERP counterpart, and emits create/update writes.
package reconcile

import (
	"strings"

	"github.com/summit-goods/commission-cli/internal/model"
)

// BuildIndexes indexes records two ways: by a unique primary key (last
// write wins) and by a business secondary key where duplicates are
// resolved by score. Records with an empty secondary key appear in the
// primary index only. On a secondary collision the higher-scoring
// record wins; on a tie the first-seen record is kept.
func BuildIndexes[T any](records []T, primaryKey, secondaryKey func(T) string, score func(T) int) (byPrimary, bySecondary map[string]T) {
	byPrimary = make(map[string]T, len(records))
	bySecondary = make(map[string]T)

	for _, rec := range records {
		byPrimary[primaryKey(rec)] = rec

		key := strings.TrimSpace(secondaryKey(rec))
		if key == "" {
			continue
		}
		existing, ok := bySecondary[key]
		if !ok || score(rec) > score(existing) {
			bySecondary[key] = rec
		}
	}
	return byPrimary, bySecondary
}

// CompletenessScore rates how much usable data a CRM company record
// carries. Duplicate business keys keep the richer record.
func CompletenessScore(c model.CrmCompany) int {
	score := 0
	if c.Region != "" {
		score += 10
	}
	if c.Street != "" {
		score += 5
	}
	if c.City != "" {
		score += 5
	}
	if c.State != "" {
		score += 5
	}
	if c.PostalCode != "" {
		score += 3
	}
	if c.AssigneeID != 0 {
		score += 2
	}
	return score
}
