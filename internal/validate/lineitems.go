// Package validate gates commission calculation: it aggregates order
// revenue from line items, cross-checks orders against reps, customers,
// and rate tables, and reports everything that would corrupt a
// commission run.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/summit-goods/commission-cli/internal/model"
)

// anomalySampleLimit caps how many schema-drift samples a report
// carries; the count itself is never capped.
const anomalySampleLimit = 10

// LineItemTotals is the aggregation result for one order's line items.
type LineItemTotals struct {
	Revenue        decimal.Decimal
	Anomalies      int
	AnomalySamples []string
	Duplicates     int
}

// AggregateLineItems sums revenue over an order's line items,
// skipping duplicate item ids and repairing schema-drift rows. A row
// whose total price is zero while unit price times quantity is
// positive is counted as an anomaly and its calculated value is used
// instead, since a zero total there means the import column mapping
// dropped the real figure.
func AggregateLineItems(orderRef string, items []model.LineItem) LineItemTotals {
	totals := LineItemTotals{Revenue: decimal.Zero}
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		key := item.DedupKey()
		if key != "" {
			if seen[key] {
				totals.Duplicates++
				continue
			}
			seen[key] = true
		}

		calculated := item.UnitPrice.Mul(item.Quantity)
		effective := item.TotalPrice

		if item.TotalPrice.IsZero() && calculated.IsPositive() {
			totals.Anomalies++
			if len(totals.AnomalySamples) < anomalySampleLimit {
				totals.AnomalySamples = append(totals.AnomalySamples, fmt.Sprintf(
					"Order %s | Item %s | %s | qty=%s unit=$%s totalPrice=$%s",
					orderRef, item.SOItemID, item.ProductNum,
					item.Quantity, item.UnitPrice, item.TotalPrice))
			}
			effective = calculated
		}

		totals.Revenue = totals.Revenue.Add(effective)
	}
	return totals
}
