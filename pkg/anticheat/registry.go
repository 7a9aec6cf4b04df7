package anticheat

import (
	"context"
	"sort"
	"sync"
)

// DetectorFunc is one pure detection check: profile and log snapshots in,
// verdict out. Detectors share no mutable state and may run in parallel.
type DetectorFunc func(ctx context.Context, dc *Context) Indicator

// Detector pairs a check with its identity and aggregation weight.
type Detector struct {
	Type   IndicatorType
	Weight float64
	Check  DetectorFunc
}

// Registry holds the detector battery. The default set is assembled once;
// callers may override weights or add detectors before running.
type Registry struct {
	mu        sync.RWMutex
	detectors map[IndicatorType]*Detector
}

// NewRegistry returns a registry with the full default battery.
func NewRegistry() *Registry {
	r := &Registry{detectors: make(map[IndicatorType]*Detector)}

	r.Register(&Detector{Type: IndicatorFastResponse, Weight: 0.6, Check: detectFastResponse})
	r.Register(&Detector{Type: IndicatorSuspiciousReaction, Weight: 0.6, Check: detectSuspiciousReaction})
	r.Register(&Detector{Type: IndicatorVoteCoordination, Weight: 0.7, Check: detectVoteCoordination})
	r.Register(&Detector{Type: IndicatorKnowledgeLeakage, Weight: 0.9, Check: detectKnowledgeLeakage})
	r.Register(&Detector{Type: IndicatorCoordinatedActions, Weight: 0.8, Check: detectCoordinatedActions})
	r.Register(&Detector{Type: IndicatorStatisticalAnomaly, Weight: 0.5, Check: detectStatisticalAnomaly})
	r.Register(&Detector{Type: IndicatorPlayStyle, Weight: 0.4, Check: detectPlayStyleInconsistency})

	r.Register(&Detector{Type: IndicatorBandwagon, Weight: 0.3, Check: detectBandwagon})
	r.Register(&Detector{Type: IndicatorVoteTimingSync, Weight: 0.3, Check: detectVoteTimingSync})
	r.Register(&Detector{Type: IndicatorRoleMismatch, Weight: 0.3, Check: detectRoleMismatch})
	return r
}

// Register adds or replaces a detector.
func (r *Registry) Register(d *Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Type] = d
}

// SetWeight overrides one detector's aggregation weight. Unknown types
// are ignored.
func (r *Registry) SetWeight(t IndicatorType, w float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.detectors[t]; ok {
		d.Weight = w
	}
}

// Weight reports the aggregation weight for an indicator type.
func (r *Registry) Weight(t IndicatorType) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.detectors[t]; ok {
		return d.Weight
	}
	return 0
}

// list returns detectors in stable type order.
func (r *Registry) list() []*Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Detector, 0, len(r.detectors))
	for _, d := range r.detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
