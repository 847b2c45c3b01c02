package mcp

import "sync"

// ResultStore keeps extract_insights results for drill-down.
type ResultStore interface {
	// Store saves tiered findings for a run.
	Store(runID string, response TieredResponse)
	// Get retrieves a single finding by cluster id.
	Get(runID, clusterID string) (ClusterFinding, bool)
	// GetAll retrieves the full tiered response for a run.
	GetAll(runID string) (TieredResponse, bool)
}

// InMemoryStore is a thread-safe in-memory implementation of ResultStore.
// Results live as long as the MCP server process.
type InMemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]TieredResponse            // run_id -> full response
	findings map[string]map[string]ClusterFinding // run_id -> cluster id -> finding
}

// NewInMemoryStore creates a new in-memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:     make(map[string]TieredResponse),
		findings: make(map[string]map[string]ClusterFinding),
	}
}

// Store saves tiered findings, indexed by cluster id for drill-down.
func (s *InMemoryStore) Store(runID string, response TieredResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[runID] = response

	byID := make(map[string]ClusterFinding)
	for _, tier := range [][]ClusterFinding{response.Tier1Volume, response.Tier2Friction, response.Tier3Rejected} {
		for _, f := range tier {
			if _, dup := byID[f.ID]; !dup {
				byID[f.ID] = f
			}
		}
	}
	s.findings[runID] = byID
}

// Get retrieves a finding by cluster id.
func (s *InMemoryStore) Get(runID, clusterID string) (ClusterFinding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if byID, ok := s.findings[runID]; ok {
		f, found := byID[clusterID]
		return f, found
	}
	return ClusterFinding{}, false
}

// GetAll retrieves the full tiered response.
func (s *InMemoryStore) GetAll(runID string) (TieredResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	return r, ok
}
