package reconcile

import "sync"

// Run statuses reported by the progress tracker.
const (
	StatusIdle      = "idle"
	StatusLoading   = "loading"
	StatusAnalyzing = "analyzing"
	StatusSyncing   = "syncing"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// Progress is a point-in-time snapshot of a reconciliation run.
type Progress struct {
	RunID              string `json:"runId"`
	InProgress         bool   `json:"inProgress"`
	CurrentStep        string `json:"currentStep"`
	TotalCompanies     int    `json:"totalCompanies"`
	ProcessedCompanies int    `json:"processedCompanies"`
	Created            int    `json:"created"`
	Updated            int    `json:"updated"`
	NoChanges          int    `json:"noChanges"`
	Errors             int    `json:"errors"`
	Status             string `json:"status"`
	Message            string `json:"message"`
}

// Tracker records progress snapshots per run id and remembers the most
// recent run for the progress endpoint. Safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	runs   map[string]Progress
	latest string
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]Progress)}
}

// Update stores a snapshot and marks its run as the latest.
func (t *Tracker) Update(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[p.RunID] = p
	t.latest = p.RunID
}

// Get returns the snapshot for a run id.
func (t *Tracker) Get(runID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.runs[runID]
	return p, ok
}

// Latest returns the snapshot of the most recently updated run. Before
// any run has started it reports an idle placeholder.
func (t *Tracker) Latest() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.latest == "" {
		return Progress{Status: StatusIdle}
	}
	return t.runs[t.latest]
}
