package validate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/model"
	"github.com/summit-goods/commission-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeStore struct {
	store.Store

	orders    []model.SalesOrder
	reps      []model.Rep
	customers []model.Customer
	rates     []model.CommissionRate
	items     map[string][]model.LineItem
	itemErrs  map[string]error
}

func (f *fakeStore) ListOrdersByMonth(ctx context.Context, month string) ([]model.SalesOrder, error) {
	var out []model.SalesOrder
	for _, o := range f.orders {
		if o.CommissionMonth == month {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) ListReps(ctx context.Context) ([]model.Rep, error) {
	return f.reps, nil
}

func (f *fakeStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return f.customers, nil
}

func (f *fakeStore) ListCommissionRates(ctx context.Context) ([]model.CommissionRate, error) {
	return f.rates, nil
}

func (f *fakeStore) ListLineItems(ctx context.Context, salesOrderID string) ([]model.LineItem, error) {
	if err := f.itemErrs[salesOrderID]; err != nil {
		return nil, err
	}
	return f.items[salesOrderID], nil
}

func lineItem(id string, qty, unit, total float64) model.LineItem {
	return model.LineItem{
		SOItemID:   id,
		Quantity:   decimal.NewFromFloat(qty),
		UnitPrice:  decimal.NewFromFloat(unit),
		TotalPrice: decimal.NewFromFloat(total),
	}
}

func findWarning(t *testing.T, report *Report, warnType, severity string) Warning {
	t.Helper()
	for _, w := range report.Warnings {
		if w.Type == warnType && w.Severity == severity {
			return w
		}
	}
	t.Fatalf("no %s/%s warning in %+v", warnType, severity, report.Warnings)
	return Warning{}
}

func TestValidator_MonthRequired(t *testing.T) {
	_, err := NewValidator(&fakeStore{}).Validate(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMonthRequired)
}

func TestValidator_AdminAndMissingCustomer(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{
			{ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "admin", CommissionMonth: "2026-01"},
			{ID: "so-2", SalesOrderID: "so-2", SONumber: "1002", SalesPerson: "Jane Roe",
				CustomerID: "cust-missing", CustomerName: "Ghost Market", CommissionMonth: "2026-01"},
		},
		reps: []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items: map[string][]model.LineItem{
			"so-1": {lineItem("a", 5, 100, 500)},
			"so-2": {lineItem("b", 2, 60, 120)},
		},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.False(t, report.Valid, "missing customer is an error-severity warning")
	assert.Equal(t, "2026-01", report.CommissionMonth)
	assert.Equal(t, 2, report.Statistics.TotalOrders)
	assert.Equal(t, 2, report.Statistics.MatchedOrders)
	assert.InDelta(t, 620.0, report.Statistics.TotalRevenue, 0.001, "revenue accrues for every order")
	assert.InDelta(t, 620.0, report.TotalEstimatedRevenue, 0.001)

	adminWarn := findWarning(t, report, WarnUnmatchedRep, SeverityInfo)
	assert.Equal(t, 1, adminWarn.Count)
	assert.Equal(t, []string{"1001"}, adminWarn.Details)

	notFound := findWarning(t, report, WarnCustomerNotFound, SeverityError)
	assert.Equal(t, 1, notFound.Count)
	assert.InDelta(t, 120.0, notFound.TotalRevenue, 0.001)
	assert.Equal(t, []string{"Jane Roe"}, notFound.AffectedReps)
	assert.Equal(t, []string{"1002"}, notFound.OrderNumbers)
	require.Len(t, notFound.Details, 1)
	assert.Contains(t, notFound.Details[0], "Order 1002 | Ghost Market (ID: cust-missing) | $120.00 | Rep: Jane Roe")

	orphaned := findWarning(t, report, WarnOrphanedOrders, SeverityError)
	assert.Equal(t, 1, orphaned.Count)
	assert.InDelta(t, 120.0, orphaned.TotalRevenue, 0.001)

	require.Len(t, report.OrphanedOrders.CustomerNotFound, 1)
	assert.Len(t, report.OrphanedOrders.All, 1)
	assert.Empty(t, report.OrphanedOrders.Retail)
	assert.Empty(t, report.ExcludedOrders)

	// Admin bucket first, revenue sorted descending.
	require.Len(t, report.RepBreakdown, 2)
	assert.Equal(t, "Admin/House", report.RepBreakdown[0].RepName)
	assert.InDelta(t, 500.0, report.RepBreakdown[0].EstimatedRevenue, 0.001)
	assert.Equal(t, "jroe", report.RepBreakdown[1].RepID)
}

func TestValidator_CleanMonthIsValid(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "jroe",
			CustomerID: "cust-1", CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "cust-1", Name: "Acme Foods"}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items: map[string][]model.LineItem{"so-1": {lineItem("a", 10, 3, 30)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 0, report.Statistics.UnmatchedOrders)
}

func TestValidator_SchemaDriftFailsValidation(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "jroe",
			CustomerID: "cust-1", CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", IsActive: true}},
		customers: []model.Customer{{DocKey: "cust-1"}},
		items:     map[string][]model.LineItem{"so-1": {lineItem("a", 10, 3, 0)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.False(t, report.Valid)
	w := findWarning(t, report, WarnDataQuality, SeverityError)
	assert.Equal(t, 1, w.Count)
	assert.Contains(t, w.Message, "Re-import with correct headers")
	assert.InDelta(t, 30.0, report.Statistics.TotalRevenue, 0.001, "drift rows still count their calculated revenue")
}

func TestValidator_ManuallyLinkedSkipsChecks(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "nobody",
			CustomerID: "missing", CommissionMonth: "2026-01", ManuallyLinked: true,
		}},
		items: map[string][]model.LineItem{"so-1": {lineItem("a", 1, 50, 50)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Warnings, "manually linked orders skip rep and customer checks")
	assert.Equal(t, 1, report.Statistics.MatchedOrders)
	assert.InDelta(t, 50.0, report.Statistics.TotalRevenue, 0.001)
}

func TestValidator_RepResolvedByNameAndFirstNameAlias(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{
			{ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "Jane Roe",
				CustomerID: "cust-1", CommissionMonth: "2026-01"},
			{ID: "so-2", SalesOrderID: "so-2", SONumber: "1002", SalesPerson: "Jane",
				CustomerID: "cust-1", CommissionMonth: "2026-01"},
		},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "cust-1"}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items: map[string][]model.LineItem{
			"so-1": {lineItem("a", 1, 10, 10)},
			"so-2": {lineItem("b", 1, 20, 20)},
		},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.True(t, report.Valid)
	require.Len(t, report.RepBreakdown, 1, "both spellings land in the same rep bucket")
	assert.Equal(t, "jroe", report.RepBreakdown[0].RepID)
	assert.Equal(t, 2, report.RepBreakdown[0].OrderCount)
	assert.InDelta(t, 30.0, report.RepBreakdown[0].EstimatedRevenue, 0.001)
}

func TestValidator_InactiveRepWarned(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "gone",
			CustomerID: "cust-1", CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "gone", Name: "Gone Rep", IsActive: false}},
		customers: []model.Customer{{DocKey: "cust-1"}},
		items:     map[string][]model.LineItem{"so-1": {lineItem("a", 1, 40, 40)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.False(t, report.Valid, "orphaned orders from inactive reps are an error")
	w := findWarning(t, report, WarnUnmatchedRep, SeverityWarning)
	assert.Equal(t, []string{"gone"}, w.Details)

	require.Len(t, report.RepBreakdown, 1)
	assert.Equal(t, "inactive", report.RepBreakdown[0].Status)
	assert.Equal(t, []string{"Rep not found or inactive in system"}, report.RepBreakdown[0].Warnings)

	orphaned := findWarning(t, report, WarnOrphanedOrders, SeverityError)
	assert.Equal(t, []string{"gone: 1 orders | $40.00"}, orphaned.Details)
}

func TestValidator_MissingRateWarned(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "jroe",
			CustomerID: "cust-1", CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Senior Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "cust-1"}},
		rates: []model.CommissionRate{
			{Title: "Senior Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: false},
		},
		items: map[string][]model.LineItem{"so-1": {lineItem("a", 1, 10, 10)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.True(t, report.Valid, "missing rate is a warning, not an error")
	w := findWarning(t, report, WarnMissingRate, SeverityWarning)
	assert.Equal(t, []string{"Jane Roe"}, w.AffectedReps)
}

func TestValidator_OrderProcessingErrorRecordedAndRunContinues(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{
			{ID: "so-bad", SalesOrderID: "so-bad", SONumber: "1001", SalesPerson: "jroe",
				CustomerID: "cust-1", CommissionMonth: "2026-01"},
			{ID: "so-ok", SalesOrderID: "so-ok", SONumber: "1002", SalesPerson: "jroe",
				CustomerID: "cust-1", CommissionMonth: "2026-01"},
		},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "cust-1"}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items:    map[string][]model.LineItem{"so-ok": {lineItem("a", 1, 10, 10)}},
		itemErrs: map[string]error{"so-bad": assert.AnError},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	require.Len(t, report.ProcessingErrors, 1)
	assert.Contains(t, report.ProcessingErrors[0], "order 1001")
	assert.Equal(t, 2, report.Statistics.TotalOrders)
	assert.Equal(t, 1, report.Statistics.MatchedOrders)
	assert.Equal(t, 1, report.Statistics.UnmatchedOrders)
	assert.InDelta(t, 10.0, report.Statistics.TotalRevenue, 0.001)
}

func TestValidator_FieldMappingDetection(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", Num: "legacy-1",
			SalesPerson: "jroe", CustomerNum: "cn-1", CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "x", AccountNumber: "cn-1"}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items: map[string][]model.LineItem{"so-1": {lineItem("a", 1, 10, 10)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"salesPerson"}, report.FieldMapping.Detected["salesPerson"])
	assert.Equal(t, []string{"soNumber", "num"}, report.FieldMapping.Detected["orderNumber"])
	assert.Equal(t, []string{"customerNum"}, report.FieldMapping.Detected["customerId"])
	assert.Equal(t, "soNumber", report.FieldMapping.Suggested["orderNumber"])
	assert.Empty(t, report.FieldMapping.Conflicts)
	assert.True(t, report.Valid, "customer resolved through customerNum")
}

func TestValidator_CustomerResolutionFallbackChain(t *testing.T) {
	fs := &fakeStore{
		orders: []model.SalesOrder{{
			ID: "so-1", SalesOrderID: "so-1", SONumber: "1001", SalesPerson: "jroe",
			CustomerID: "nope", CustomerNum: "nope2", AccountNumber: "acct-9",
			CommissionMonth: "2026-01",
		}},
		reps:      []model.Rep{{ID: "rep-1", SalesPersonKey: "jroe", Name: "Jane Roe", Title: "Sales Rep", IsActive: true}},
		customers: []model.Customer{{DocKey: "doc-1", AccountNumber: "acct-9"}},
		rates: []model.CommissionRate{
			{Title: "Sales Rep", SegmentID: "wholesale", Status: "new_business", Percentage: 0.05, Active: true},
		},
		items: map[string][]model.LineItem{"so-1": {lineItem("a", 1, 10, 10)}},
	}

	report, err := NewValidator(fs).Validate(context.Background(), "2026-01", "")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.OrphanedOrders.CustomerNotFound)
}
