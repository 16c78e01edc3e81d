package validate

// Warning severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Warning types.
const (
	WarnUnmatchedRep     = "unmatchedRep"
	WarnMissingRate      = "missingRate"
	WarnDataQuality      = "dataQuality"
	WarnOrphanedOrders   = "orphanedOrders"
	WarnCustomerNotFound = "customerNotFound"
)

// Warning flags one class of problem found during validation.
type Warning struct {
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	Count        int      `json:"count"`
	Message      string   `json:"message"`
	Details      []string `json:"details,omitempty"`
	OrderNumbers []string `json:"orderNumbers,omitempty"`
	TotalRevenue float64  `json:"totalRevenue,omitempty"`
	AffectedReps []string `json:"affectedReps,omitempty"`
}

// RepBreakdown accumulates per-rep order counts and revenue.
type RepBreakdown struct {
	RepName          string   `json:"repName"`
	RepID            string   `json:"repId"`
	OrderCount       int      `json:"orderCount"`
	EstimatedRevenue float64  `json:"estimatedRevenue"`
	Status           string   `json:"status"`
	Warnings         []string `json:"warnings"`
}

// FieldMapping reports which field names the imported orders actually
// carry versus the canonical names the calculator expects.
type FieldMapping struct {
	Detected  map[string][]string `json:"detected"`
	Suggested map[string]string   `json:"suggested"`
	Conflicts []string            `json:"conflicts"`
}

// ExcludedOrder identifies one order left out of commission scoring.
type ExcludedOrder struct {
	OrderNum     string  `json:"orderNum"`
	CustomerName string  `json:"customerName"`
	CustomerID   string  `json:"customerId,omitempty"`
	AccountType  string  `json:"accountType,omitempty"`
	Revenue      float64 `json:"revenue"`
	SalesPerson  string  `json:"salesPerson"`
}

// OrphanedOrders buckets the orders that will not earn commission.
type OrphanedOrders struct {
	Retail           []ExcludedOrder `json:"retail"`
	CustomerNotFound []ExcludedOrder `json:"customerNotFound"`
	All              []ExcludedOrder `json:"all"`
}

// Statistics summarizes the month's order population.
type Statistics struct {
	TotalOrders     int     `json:"totalOrders"`
	MatchedOrders   int     `json:"matchedOrders"`
	UnmatchedOrders int     `json:"unmatchedOrders"`
	ActiveReps      int     `json:"activeReps"`
	TotalRevenue    float64 `json:"totalRevenue"`
}

// Report is the full validation result for one commission month.
// Commission calculation must not run unless Valid is true.
type Report struct {
	Valid                 bool            `json:"valid"`
	CommissionMonth       string          `json:"commissionMonth"`
	TotalEstimatedRevenue float64         `json:"totalEstimatedRevenue"`
	ExcludedOrders        []ExcludedOrder `json:"excludedOrders"`
	OrphanedOrders        OrphanedOrders  `json:"orphanedOrders"`
	Statistics            Statistics      `json:"statistics"`
	FieldMapping          FieldMapping    `json:"fieldMapping"`
	Warnings              []Warning       `json:"warnings"`
	RepBreakdown          []RepBreakdown  `json:"repBreakdown"`
	ProcessingErrors      []string        `json:"processingErrors,omitempty"`
}
