package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/summit-goods/commission-cli/internal/model"
	"github.com/summit-goods/commission-cli/internal/store"
)

// ErrMonthRequired is returned before any I/O when no commission month
// was given.
var ErrMonthRequired = eris.New("validate: commissionMonth is required")

const (
	customerNotFoundDetailLimit = 20
	adminDetailLimit            = 10
)

// Validator cross-checks one commission month's orders against reps,
// customers, and rate tables.
type Validator struct {
	store store.Store
	log   *zap.Logger
}

func NewValidator(st store.Store) *Validator {
	return &Validator{
		store: st,
		log:   zap.L().With(zap.String("component", "validate")),
	}
}

// orphanBucket accrues non-commissionable orders per sales person.
type orphanBucket struct {
	orders  int
	revenue decimal.Decimal
}

// Validate builds the validation report for a commission month. The
// rep filter is accepted for API compatibility and does not affect
// scoring. A store failure while loading a collection fails the run; a
// failure on a single order is recorded and the remaining orders are
// still processed.
func (v *Validator) Validate(ctx context.Context, commissionMonth, repFilter string) (*Report, error) {
	if commissionMonth == "" {
		return nil, ErrMonthRequired
	}
	_ = repFilter

	var (
		orders    []model.SalesOrder
		reps      []model.Rep
		customers []model.Customer
		rates     []model.CommissionRate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = v.store.ListOrdersByMonth(gctx, commissionMonth)
		return err
	})
	g.Go(func() (err error) {
		reps, err = v.store.ListReps(gctx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = v.store.ListCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		rates, err = v.store.ListCommissionRates(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "validate: load collections for %s", commissionMonth)
	}

	v.log.Info("validating commission data",
		zap.String("month", commissionMonth),
		zap.Int("orders", len(orders)),
		zap.Int("reps", len(reps)),
		zap.Int("customers", len(customers)))

	repsByKey := make(map[string]model.Rep, len(reps))
	repsByName := make(map[string]model.Rep)
	for _, rep := range reps {
		repsByKey[rep.SalesPersonKey] = rep
		if rep.Name == "" {
			continue
		}
		repsByName[rep.Name] = rep
		// First-name alias for orders that carry a bare first name.
		// First registrant wins.
		firstName := strings.SplitN(rep.Name, " ", 2)[0]
		if _, ok := repsByName[firstName]; !ok {
			repsByName[firstName] = rep
		}
	}

	customersByKey := make(map[string]model.Customer)
	for _, c := range customers {
		customersByKey[c.DocKey] = c
		if c.AccountNumber != "" {
			customersByKey[c.AccountNumber] = c
		}
		if c.AccountID != "" {
			customersByKey[c.AccountID] = c
		}
	}

	activeRateTitles := make(map[string]bool)
	for _, rate := range rates {
		if rate.Active {
			activeRateTitles[rate.Title] = true
		}
	}

	report := &Report{
		CommissionMonth: commissionMonth,
		ExcludedOrders:  []ExcludedOrder{},
		OrphanedOrders: OrphanedOrders{
			Retail:           []ExcludedOrder{},
			CustomerNotFound: []ExcludedOrder{},
			All:              []ExcludedOrder{},
		},
		Warnings: []Warning{},
	}

	breakdown := make(map[string]*RepBreakdown)
	var breakdownOrder []string
	bucket := func(key, name, status string, warnings []string) *RepBreakdown {
		b, ok := breakdown[key]
		if !ok {
			b = &RepBreakdown{RepName: name, RepID: key, Status: status, Warnings: warnings}
			if b.Warnings == nil {
				b.Warnings = []string{}
			}
			breakdown[key] = b
			breakdownOrder = append(breakdownOrder, key)
		}
		return b
	}

	var (
		totalRevenue     = decimal.Zero
		totalAnomalies   int
		anomalySamples   []string
		adminOrders      []string
		unmatchedRepSeen = make(map[string]bool)
		unmatchedRepList []string
		orphans          = make(map[string]*orphanBucket)
		missingRateSeen  = make(map[string]bool)
		missingRateReps  []string
		fieldVariations  = map[string][]string{
			"salesPerson": {},
			"orderNumber": {},
			"customerId":  {},
		}
	)
	detectField := func(group, name string, present bool) {
		if !present {
			return
		}
		for _, existing := range fieldVariations[group] {
			if existing == name {
				return
			}
		}
		fieldVariations[group] = append(fieldVariations[group], name)
	}
	orphanAccrue := func(salesPerson string, revenue decimal.Decimal) {
		key := salesPerson
		if key == "" {
			key = "Unknown"
		}
		o, ok := orphans[key]
		if !ok {
			o = &orphanBucket{revenue: decimal.Zero}
			orphans[key] = o
		}
		o.orders++
		o.revenue = o.revenue.Add(revenue)
	}

	stats := Statistics{}
	for _, order := range orders {
		stats.TotalOrders++

		// The calculator only reads salesPerson; salesRep is reporting
		// data and never a conflict.
		detectField("salesPerson", "salesPerson", order.SalesPerson != "")
		detectField("orderNumber", "soNumber", order.SONumber != "")
		detectField("orderNumber", "num", order.Num != "")
		detectField("customerId", "customerId", order.CustomerID != "")
		detectField("customerId", "customerNum", order.CustomerNum != "")

		items, err := v.store.ListLineItems(ctx, order.SalesOrderID)
		if err != nil {
			report.ProcessingErrors = append(report.ProcessingErrors,
				fmt.Sprintf("order %s: %v", order.Ref(), err))
			v.log.Warn("order processing failed",
				zap.String("order", order.Ref()), zap.Error(err))
			continue
		}
		totals := AggregateLineItems(order.Ref(), items)

		// Month revenue reflects every imported order, matched or not.
		totalRevenue = totalRevenue.Add(totals.Revenue)
		totalAnomalies += totals.Anomalies
		for _, sample := range totals.AnomalySamples {
			if len(anomalySamples) < anomalySampleLimit {
				anomalySamples = append(anomalySamples, sample)
			}
		}
		orderRevenue, _ := totals.Revenue.Float64()

		if order.SalesPerson == "admin" || order.SalesPerson == "Admin" {
			adminOrders = append(adminOrders, order.Ref())
			stats.MatchedOrders++
			b := bucket("admin", "Admin/House", "active", nil)
			b.OrderCount++
			b.EstimatedRevenue += orderRevenue
			continue
		}

		if order.ManuallyLinked {
			// Manually corrected in a previous upload; the stored data
			// is already right.
			stats.MatchedOrders++
			continue
		}

		rep, found := repsByKey[order.SalesPerson]
		if !found {
			rep, found = repsByName[order.SalesPerson]
		}
		unmatched := !found || !rep.IsActive
		if unmatched {
			if !unmatchedRepSeen[order.SalesPerson] {
				unmatchedRepSeen[order.SalesPerson] = true
				unmatchedRepList = append(unmatchedRepList, order.SalesPerson)
			}
			orphanAccrue(order.SalesPerson, totals.Revenue)
		}

		_, customerFound := lookupCustomer(customersByKey, order)
		if !customerFound {
			excluded := ExcludedOrder{
				OrderNum:     order.Ref(),
				CustomerName: valueOr(order.CustomerName, "Unknown"),
				CustomerID:   valueOr(order.CustomerID, "N/A"),
				Revenue:      orderRevenue,
				SalesPerson:  order.SalesPerson,
			}
			report.OrphanedOrders.CustomerNotFound = append(report.OrphanedOrders.CustomerNotFound, excluded)
			if !unmatched {
				orphanAccrue(order.SalesPerson, totals.Revenue)
			}
		}

		stats.MatchedOrders++

		repKey := order.SalesPerson
		repName := order.SalesPerson
		status := "inactive"
		if found {
			if rep.SalesPersonKey != "" {
				repKey = rep.SalesPersonKey
			}
			repName = rep.Name
			if rep.IsActive {
				status = "active"
			}
		}
		if repKey == "" {
			repKey = "Unknown"
		}
		if repName == "" {
			repName = "Unknown"
		}
		var bucketWarnings []string
		if unmatched {
			bucketWarnings = []string{"Rep not found or inactive in system"}
		}
		b := bucket(repKey, repName, status, bucketWarnings)
		b.OrderCount++
		b.EstimatedRevenue += orderRevenue

		if found && rep.IsActive && !activeRateTitles[rep.Title] && !missingRateSeen[rep.Name] {
			missingRateSeen[rep.Name] = true
			missingRateReps = append(missingRateReps, rep.Name)
		}
	}

	v.buildWarnings(report, totalAnomalies, anomalySamples, adminOrders, unmatchedRepList, missingRateReps, orphans)

	stats.UnmatchedOrders = stats.TotalOrders - stats.MatchedOrders
	stats.ActiveReps = len(breakdown)
	stats.TotalRevenue, _ = totalRevenue.Float64()
	report.Statistics = stats
	report.TotalEstimatedRevenue = stats.TotalRevenue

	report.OrphanedOrders.All = append(report.OrphanedOrders.All, report.OrphanedOrders.CustomerNotFound...)
	report.OrphanedOrders.All = append(report.OrphanedOrders.All, report.OrphanedOrders.Retail...)

	report.FieldMapping = FieldMapping{
		Detected: fieldVariations,
		Suggested: map[string]string{
			"salesPerson": "salesPerson",
			"orderNumber": "soNumber",
			"customerId":  "customerId",
		},
		Conflicts: []string{},
	}
	if len(fieldVariations["salesPerson"]) > 1 {
		report.FieldMapping.Conflicts = append(report.FieldMapping.Conflicts,
			"Multiple sales person fields detected: "+strings.Join(fieldVariations["salesPerson"], ", "))
	}

	for _, key := range breakdownOrder {
		report.RepBreakdown = append(report.RepBreakdown, *breakdown[key])
	}
	sort.SliceStable(report.RepBreakdown, func(i, j int) bool {
		return report.RepBreakdown[i].EstimatedRevenue > report.RepBreakdown[j].EstimatedRevenue
	})

	report.Valid = true
	for _, w := range report.Warnings {
		if w.Severity == SeverityError {
			report.Valid = false
			break
		}
	}

	v.log.Info("validation complete",
		zap.String("month", commissionMonth),
		zap.Bool("valid", report.Valid),
		zap.Int("matched", stats.MatchedOrders),
		zap.Int("total", stats.TotalOrders))
	return report, nil
}

func (v *Validator) buildWarnings(report *Report, anomalies int, anomalySamples, adminOrders, unmatchedReps, missingRateReps []string, orphans map[string]*orphanBucket) {
	if anomalies > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Type:     WarnDataQuality,
			Severity: SeverityError,
			Count:    anomalies,
			Message: "Data quality failure: detected line items where Total Price is $0 but " +
				"Unit Price × Qty fulfilled > $0. This indicates the import column " +
				"mapping/header normalization is broken. Re-import with correct headers before proceeding.",
			Details: anomalySamples,
		})
	}

	if len(adminOrders) > 0 {
		details := adminOrders
		if len(details) > adminDetailLimit {
			details = details[:adminDetailLimit]
		}
		report.Warnings = append(report.Warnings, Warning{
			Type:     WarnUnmatchedRep,
			Severity: SeverityInfo,
			Count:    len(adminOrders),
			Message:  fmt.Sprintf("%d admin/house orders (expected - these are house accounts)", len(adminOrders)),
			Details:  details,
		})
	}

	if len(unmatchedReps) > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Type:     WarnUnmatchedRep,
			Severity: SeverityWarning,
			Count:    len(unmatchedReps),
			Message:  fmt.Sprintf("%d orders with unmatched or inactive reps", len(unmatchedReps)),
			Details:  unmatchedReps,
		})
	}

	if notFound := report.OrphanedOrders.CustomerNotFound; len(notFound) > 0 {
		orphanRevenue := 0.0
		var affectedReps []string
		seenReps := make(map[string]bool)
		var details []string
		var orderNumbers []string
		for _, o := range notFound {
			orphanRevenue += o.Revenue
			if !seenReps[o.SalesPerson] {
				seenReps[o.SalesPerson] = true
				affectedReps = append(affectedReps, o.SalesPerson)
			}
			if len(details) < customerNotFoundDetailLimit {
				details = append(details, fmt.Sprintf("Order %s | %s (ID: %s) | $%.2f | Rep: %s",
					o.OrderNum, o.CustomerName, o.CustomerID, o.Revenue, o.SalesPerson))
			}
			orderNumbers = append(orderNumbers, o.OrderNum)
		}
		report.Warnings = append(report.Warnings, Warning{
			Type:         WarnCustomerNotFound,
			Severity:     SeverityError,
			Count:        len(notFound),
			TotalRevenue: orphanRevenue,
			AffectedReps: affectedReps,
			Message: fmt.Sprintf("%d orders with MISSING CUSTOMER records (defaulting to Retail = EXCLUDED from commissions)",
				len(notFound)),
			Details:      details,
			OrderNumbers: orderNumbers,
		})
	}

	if len(missingRateReps) > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Type:         WarnMissingRate,
			Severity:     SeverityWarning,
			Count:        len(missingRateReps),
			AffectedReps: missingRateReps,
			Message: fmt.Sprintf("%d active reps have orders this month but no active commission rate configured",
				len(missingRateReps)),
			Details: missingRateReps,
		})
	}

	if len(orphans) > 0 {
		type orphanEntry struct {
			rep    string
			bucket *orphanBucket
		}
		entries := make([]orphanEntry, 0, len(orphans))
		totalOrphanRevenue := decimal.Zero
		totalOrphanOrders := 0
		for rep, b := range orphans {
			entries = append(entries, orphanEntry{rep, b})
			totalOrphanRevenue = totalOrphanRevenue.Add(b.revenue)
			totalOrphanOrders += b.orders
		}
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].bucket.revenue.Equal(entries[j].bucket.revenue) {
				return entries[i].bucket.revenue.GreaterThan(entries[j].bucket.revenue)
			}
			return entries[i].rep < entries[j].rep
		})
		details := make([]string, 0, len(entries))
		affected := make([]string, 0, len(entries))
		for _, e := range entries {
			rev, _ := e.bucket.revenue.Float64()
			details = append(details, fmt.Sprintf("%s: %d orders | $%.2f", e.rep, e.bucket.orders, rev))
			affected = append(affected, e.rep)
		}
		rev, _ := totalOrphanRevenue.Float64()
		report.Warnings = append(report.Warnings, Warning{
			Type:         WarnOrphanedOrders,
			Severity:     SeverityError,
			Count:        totalOrphanOrders,
			TotalRevenue: rev,
			Message: fmt.Sprintf("ORPHANED COMMISSIONS: %d orders ($%.2f) NOT being calculated",
				totalOrphanOrders, rev),
			Details:      details,
			AffectedReps: affected,
		})
	}
}

// lookupCustomer resolves an order's customer by id, then number, then
// account number.
func lookupCustomer(customersByKey map[string]model.Customer, order model.SalesOrder) (model.Customer, bool) {
	for _, key := range []string{order.CustomerID, order.CustomerNum, order.AccountNumber} {
		if key == "" {
			continue
		}
		if c, ok := customersByKey[key]; ok {
			return c, true
		}
	}
	return model.Customer{}, false
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
