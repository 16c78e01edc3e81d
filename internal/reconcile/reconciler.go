package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/summit-goods/commission-cli/internal/model"
	"github.com/summit-goods/commission-cli/internal/store"
)

// DefaultBatchSize caps how many customer writes are flushed per batch.
const DefaultBatchSize = 450

// ChangeDetail describes one decided action for a CRM company.
type ChangeDetail struct {
	CustomerID    string            `json:"fishbowlCustomerId,omitempty"`
	CompanyID     string            `json:"copperCompanyId"`
	CompanyName   string            `json:"companyName"`
	Action        string            `json:"action"`
	FieldsChanged []string          `json:"fieldsChanged"`
	Before        map[string]string `json:"before,omitempty"`
	After         map[string]string `json:"after,omitempty"`
	Concerns      []string          `json:"concerns"`
}

// ErrorDetail records a company whose write failed.
type ErrorDetail struct {
	CompanyID   string `json:"copperCompanyId"`
	CompanyName string `json:"companyName"`
	Error       string `json:"error"`
}

// Stats is the full result of a reconciliation run. Field names on the
// wire match the report format consumers already parse.
type Stats struct {
	RunID           string         `json:"runId"`
	DryRun          bool           `json:"dryRun"`
	CompaniesLoaded int            `json:"copperCompaniesLoaded"`
	ActiveCompanies int            `json:"activeCompanies"`
	CustomersLoaded int            `json:"fishbowlCustomersLoaded"`
	RepsLoaded      int            `json:"usersLoaded"`
	WouldCreate     int            `json:"wouldCreate"`
	WouldUpdate     int            `json:"wouldUpdate"`
	NoChanges       int            `json:"noChanges"`
	Errors          int            `json:"errors"`
	Changes         []ChangeDetail `json:"changes"`
	ErrorDetails    []ErrorDetail  `json:"errors_details"`
}

// Reconciler diffs active CRM companies against the ERP customer
// collection and lands create/update writes through the store.
type Reconciler struct {
	store     store.Store
	tracker   *Tracker
	batchSize int
	log       *zap.Logger
}

func NewReconciler(st store.Store, tracker *Tracker, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Reconciler{
		store:     st,
		tracker:   tracker,
		batchSize: batchSize,
		log:       zap.L().With(zap.String("component", "reconcile")),
	}
}

// Run executes one reconciliation pass. In dry-run mode (live=false)
// it computes the identical change list but performs zero writes.
func (r *Reconciler) Run(ctx context.Context, live bool) (*Stats, error) {
	runID := uuid.NewString()
	stats := &Stats{
		RunID:        runID,
		DryRun:       !live,
		Changes:      []ChangeDetail{},
		ErrorDetails: []ErrorDetail{},
	}
	progress := Progress{
		RunID:       runID,
		InProgress:  true,
		CurrentStep: "Loading collections",
		Status:      StatusLoading,
		Message:     "Starting customer sync...",
	}
	r.tracker.Update(progress)

	r.log.Info("reconciliation run starting",
		zap.String("run_id", runID), zap.Bool("live", live))

	var (
		reps      []model.Rep
		companies []model.CrmCompany
		customers []model.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reps, err = r.store.ListReps(gctx)
		return err
	})
	g.Go(func() (err error) {
		companies, err = r.store.ListCrmCompanies(gctx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = r.store.ListCustomers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		progress.InProgress = false
		progress.Status = StatusError
		progress.Message = "Error: " + err.Error()
		r.tracker.Update(progress)
		return nil, err
	}

	repsByCopperID := make(map[int64]model.Rep, len(reps))
	for _, rep := range reps {
		if rep.CopperUserID != 0 {
			repsByCopperID[rep.CopperUserID] = rep
		}
	}
	stats.RepsLoaded = len(repsByCopperID)
	stats.CompaniesLoaded = len(companies)
	stats.CustomersLoaded = len(customers)

	active := make([]model.CrmCompany, 0, len(companies))
	for _, c := range companies {
		if c.ActiveFlag.IsSet() {
			active = append(active, c)
		}
	}
	stats.ActiveCompanies = len(active)

	_, byOrderID := BuildIndexes(active,
		func(c model.CrmCompany) string { return c.ID },
		func(c model.CrmCompany) string { return c.AccountOrderID },
		CompletenessScore)

	customersByKey := make(map[string]model.Customer, len(customers))
	for _, c := range customers {
		customersByKey[strings.TrimSpace(c.DocKey)] = c
	}

	// Deterministic processing order for stable reports.
	orderKeys := make([]string, 0, len(byOrderID))
	for k := range byOrderID {
		orderKeys = append(orderKeys, k)
	}
	sort.Strings(orderKeys)

	worklist := make([]model.CrmCompany, 0, len(active))
	for _, k := range orderKeys {
		worklist = append(worklist, byOrderID[k])
	}
	// Companies with no order key never enter the index but still get a
	// decision, so the report shows why they were skipped.
	for _, c := range active {
		if strings.TrimSpace(c.AccountOrderID) == "" {
			worklist = append(worklist, c)
		}
	}

	progress.CurrentStep = "Analyzing companies"
	progress.TotalCompanies = len(worklist)
	progress.Status = StatusAnalyzing
	progress.Message = fmt.Sprintf("Analyzing %d active companies...", len(worklist))
	r.tracker.Update(progress)

	var pending []store.CustomerWrite
	pendingNames := make(map[string]companyRef)

	flush := func() {
		if !live || len(pending) == 0 {
			pending = nil
			return
		}
		progress.Status = StatusSyncing
		progress.Message = fmt.Sprintf("Committing %d changes...", len(pending))
		r.tracker.Update(progress)

		for _, werr := range r.store.ApplyCustomerWrites(ctx, pending) {
			ref := pendingNames[werr.DocKey]
			stats.Errors++
			progress.Errors++
			stats.ErrorDetails = append(stats.ErrorDetails, ErrorDetail{
				CompanyID:   ref.companyID,
				CompanyName: ref.companyName,
				Error:       werr.Err.Error(),
			})
			r.log.Warn("customer write failed",
				zap.String("doc_key", werr.DocKey), zap.Error(werr.Err))
		}
		pending = nil
		progress.Status = StatusAnalyzing
		r.tracker.Update(progress)
	}

	for _, company := range worklist {
		decision := r.decide(company, customersByKey, repsByCopperID)

		switch decision.change.Action {
		case "create":
			stats.WouldCreate++
			progress.Created++
			stats.Changes = append(stats.Changes, decision.change)
		case "update":
			stats.WouldUpdate++
			progress.Updated++
			stats.Changes = append(stats.Changes, decision.change)
		default:
			stats.NoChanges++
			progress.NoChanges++
			if len(decision.change.Concerns) > 0 {
				stats.Changes = append(stats.Changes, decision.change)
			}
		}

		if decision.write != nil {
			pending = append(pending, *decision.write)
			pendingNames[decision.write.DocKey] = companyRef{
				companyID:   company.ID,
				companyName: company.Name,
			}
			if len(pending) >= r.batchSize {
				flush()
			}
		}

		progress.ProcessedCompanies++
		progress.Message = fmt.Sprintf("Analyzing: %d / %d",
			progress.ProcessedCompanies, progress.TotalCompanies)
		r.tracker.Update(progress)
	}
	flush()

	progress.InProgress = false
	progress.Status = StatusComplete
	progress.Message = fmt.Sprintf("Sync complete: %d created, %d updated",
		stats.WouldCreate, stats.WouldUpdate)
	r.tracker.Update(progress)

	r.log.Info("reconciliation run finished",
		zap.String("run_id", runID),
		zap.Bool("dry_run", stats.DryRun),
		zap.Int("would_create", stats.WouldCreate),
		zap.Int("would_update", stats.WouldUpdate),
		zap.Int("no_changes", stats.NoChanges),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

type companyRef struct {
	companyID   string
	companyName string
}

type decision struct {
	change ChangeDetail
	write  *store.CustomerWrite
}

// decide computes the action for one CRM company without touching the
// store.
func (r *Reconciler) decide(company model.CrmCompany, customersByKey map[string]model.Customer, repsByCopperID map[int64]model.Rep) decision {
	orderID := strings.TrimSpace(company.AccountOrderID)

	existing, matched := model.Customer{}, false
	if orderID != "" {
		existing, matched = customersByKey[orderID]
	}

	// Merge strategy: only fields the CRM actually has values for, so a
	// sparse CRM record cannot blank out ERP data.
	desired := map[string]string{"copperId": company.ID}
	if company.Name != "" {
		desired["name"] = company.Name
	}
	if orderID != "" {
		desired["accountNumber"] = company.AccountOrderID
	}
	if company.AccountID != "" {
		desired["accountId"] = stripCommas(company.AccountID)
	}
	if company.Region != "" {
		desired["region"] = company.Region
	}
	// Account type is recomputed when the CRM carries one, and always
	// on create so new customers get the Retail default.
	if !company.AccountType.IsZero() || !matched {
		desired["accountType"] = NormalizeAccountType(company.AccountType)
	}
	if company.Street != "" {
		desired["billingAddress"] = company.Street
		desired["shippingAddress"] = company.Street
	}
	if company.City != "" {
		desired["billingCity"] = company.City
		desired["shippingCity"] = company.City
	}
	if company.State != "" {
		desired["billingState"] = company.State
		desired["shippingState"] = company.State
	}
	if company.PostalCode != "" {
		desired["billingZip"] = company.PostalCode
		desired["shipToZip"] = company.PostalCode
	}
	if company.Country != "" {
		desired["shippingCountry"] = company.Country
	}
	if rep, ok := repsByCopperID[company.AssigneeID]; ok {
		desired["salesPerson"] = rep.SalesPersonKey
		desired["salesRepName"] = rep.Name
		desired["salesRepEmail"] = rep.Email
		desired["salesRepRegion"] = rep.Region
	}

	if !matched {
		if orderID == "" {
			return decision{change: ChangeDetail{
				CompanyID:     company.ID,
				CompanyName:   company.Name,
				Action:        "no_change",
				FieldsChanged: []string{},
				Concerns: []string{
					"no account order id - not an ERP customer yet",
					"skipped - cannot create without order id",
				},
			}}
		}
		return r.create(company, orderID, desired)
	}
	return r.update(company, existing, desired)
}

func (r *Reconciler) create(company model.CrmCompany, orderID string, desired map[string]string) decision {
	cust := &model.Customer{
		Name:            desired["name"],
		AccountNumber:   desired["accountNumber"],
		AccountID:       desired["accountId"],
		Region:          desired["region"],
		AccountType:     desired["accountType"],
		BillingAddress:  desired["billingAddress"],
		BillingCity:     desired["billingCity"],
		BillingState:    desired["billingState"],
		BillingZip:      desired["billingZip"],
		ShippingAddress: desired["shippingAddress"],
		ShippingCity:    desired["shippingCity"],
		ShippingState:   desired["shippingState"],
		ShipToZip:       desired["shipToZip"],
		ShippingCountry: desired["shippingCountry"],
		SalesPerson:     desired["salesPerson"],
		SalesRepName:    desired["salesRepName"],
		SalesRepEmail:   desired["salesRepEmail"],
		SalesRepRegion:  desired["salesRepRegion"],
		CopperID:        desired["copperId"],
		Source:          "copper_sync",
	}

	fields := sortedKeys(desired)
	return decision{
		change: ChangeDetail{
			CompanyID:     company.ID,
			CompanyName:   company.Name,
			Action:        "create",
			FieldsChanged: fields,
			After:         desired,
			Concerns: []string{
				"creating new customer from CRM data",
				"account order id: " + orderID,
				"account type: " + desired["accountType"],
			},
		},
		write: &store.CustomerWrite{
			DocKey:   orderID,
			Create:   true,
			Customer: cust,
		},
	}
}

func (r *Reconciler) update(company model.CrmCompany, existing model.Customer, desired map[string]string) decision {
	before := make(map[string]string)
	after := make(map[string]string)
	patch := make(map[string]string)
	var concerns []string

	for _, field := range sortedKeys(desired) {
		if protectedFields[field] {
			continue
		}
		oldVal := existing.Field(field)
		newVal := desired[field]
		if !changed(oldVal, newVal) {
			continue
		}
		before[field] = oldVal
		after[field] = newVal
		patch[field] = newVal
		if field == "accountType" {
			concerns = append(concerns,
				fmt.Sprintf("account type changing: %q to %q", oldVal, newVal))
		}
	}

	var preserved []string
	for _, field := range []string{model.FieldTransferStatus, model.FieldOriginalOwner, model.FieldFishbowlUsername} {
		if existing.Field(field) != "" {
			preserved = append(preserved, field)
		}
	}
	if len(preserved) > 0 {
		concerns = append(concerns, "preserving: "+strings.Join(preserved, ", "))
	}
	if company.AccountType.IsZero() && existing.AccountType != "" {
		concerns = append(concerns,
			"account type not synced (CRM field is empty, keeping existing: "+strconv.Quote(existing.AccountType)+")")
	}
	if company.Street == "" && existing.BillingAddress != "" {
		concerns = append(concerns, "address not synced (CRM has no address data)")
	}

	if len(patch) == 0 {
		return decision{change: ChangeDetail{
			CustomerID:    existing.DocKey,
			CompanyID:     company.ID,
			CompanyName:   company.Name,
			Action:        "no_change",
			FieldsChanged: []string{},
		}}
	}

	return decision{
		change: ChangeDetail{
			CustomerID:    existing.DocKey,
			CompanyID:     company.ID,
			CompanyName:   company.Name,
			Action:        "update",
			FieldsChanged: sortedKeys(patch),
			Before:        before,
			After:         after,
			Concerns:      concerns,
		},
		write: &store.CustomerWrite{
			DocKey: existing.DocKey,
			Fields: patch,
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
