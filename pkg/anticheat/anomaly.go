package anticheat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/philippgille/chromem-go"
)

const (
	// anomalySimilarityFloor: a profile whose nearest historical neighbor
	// sits below this cosine similarity is an outlier.
	anomalySimilarityFloor = 0.90

	// anomalyMinCorpus guards against flagging everyone while the
	// historical corpus is still tiny.
	anomalyMinCorpus = 20
)

// AnomalyIndex is a vector index of historical behavior profiles. Each
// profile becomes an 8-dimensional feature vector; a fresh profile far
// from every stored neighbor is behaviorally anomalous, which stands in
// for an isolation forest without a model dependency.
type AnomalyIndex struct {
	mu        sync.RWMutex
	db        *chromem.DB
	col       *chromem.Collection
	floor     float32
	minCorpus int
	count     int
}

// NewAnomalyIndex creates an empty in-memory index.
func NewAnomalyIndex() (*AnomalyIndex, error) {
	db := chromem.NewDB()
	// Embeddings are precomputed feature vectors; the embedding function
	// must never be reached.
	col, err := db.CreateCollection("behavior_profiles", nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create profile collection: %w", err)
	}
	return &AnomalyIndex{
		db:        db,
		col:       col,
		floor:     anomalySimilarityFloor,
		minCorpus: anomalyMinCorpus,
	}, nil
}

func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("profile vectors are precomputed")
}

// SetFloor overrides the similarity floor. Values outside (0, 1] are
// ignored.
func (ai *AnomalyIndex) SetFloor(f float64) {
	if f <= 0 || f > 1 {
		return
	}
	ai.mu.Lock()
	ai.floor = float32(f)
	ai.mu.Unlock()
}

// Add stores a profile observation in the historical corpus.
func (ai *AnomalyIndex) Add(ctx context.Context, id string, p *Profile) error {
	ai.mu.Lock()
	defer ai.mu.Unlock()

	doc := chromem.Document{
		ID:        id,
		Content:   p.PlayerID,
		Embedding: featureVector(p),
		Metadata:  map[string]string{"player_id": p.PlayerID},
	}
	if err := ai.col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("add profile vector: %w", err)
	}
	ai.count++
	return nil
}

// Count reports stored observations.
func (ai *AnomalyIndex) Count() int {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return ai.count
}

// Nearest returns the best similarity between the profile and the stored
// corpus. ok is false while the corpus is below the minimum size.
func (ai *AnomalyIndex) Nearest(ctx context.Context, p *Profile) (float32, bool, error) {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	if ai.count < ai.minCorpus {
		return 0, false, nil
	}
	res, err := ai.col.QueryEmbedding(ctx, featureVector(p), 1, nil, nil)
	if err != nil {
		return 0, false, fmt.Errorf("query profile vector: %w", err)
	}
	if len(res) == 0 {
		return 0, false, nil
	}
	return res[0].Similarity, true, nil
}

// featureVector flattens a profile into a normalized 8-dimensional
// embedding. Timing dimensions are squashed so outliers do not drown the
// bounded ones.
func featureVector(p *Profile) []float32 {
	v := []float32{
		squash(p.MeanResponse, 30),
		squash(math.Sqrt(p.ResponseVariance), 30),
		float32(clamp01(p.VotingConsistency)),
		squash(p.CommFrequency, 60),
		float32(clamp01(p.DecisionConfidence)),
		float32(clamp01(p.RoleAdherence)),
		float32(clamp01(p.StrategicComplexity)),
		squash(p.ActionRate, 10),
	}
	return l2Normalize(v)
}

// squash maps [0, inf) into [0, 1) with the given half-way scale.
func squash(x, scale float64) float32 {
	if x < 0 {
		x = 0
	}
	return float32(x / (x + scale))
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		// Avoid a zero vector; make it a unit vector on the last axis so
		// two empty profiles still compare as identical.
		v[len(v)-1] = 1
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// detectStatisticalAnomaly compares the subject's feature vector against
// the historical corpus and flags profiles with no close neighbor.
func detectStatisticalAnomaly(ctx context.Context, dc *Context) Indicator {
	ind := Indicator{Type: IndicatorStatisticalAnomaly}
	if dc.Anomaly == nil || dc.Profile == nil || dc.Profile.Samples < minProfileSamples {
		return ind
	}

	sim, ok, err := dc.Anomaly.Nearest(ctx, dc.Profile)
	if err != nil || !ok {
		return ind
	}
	floor := dc.Anomaly.floor
	if sim >= floor {
		return ind
	}

	ind.Detected = true
	ind.Confidence = clamp01(float64(floor-sim) / float64(floor))
	ind.Evidence = map[string]any{
		"nearest_similarity": float64(sim),
		"similarity_floor":   float64(floor),
		"corpus_size":        dc.Anomaly.Count(),
	}
	return ind
}
