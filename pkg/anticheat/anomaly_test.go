package anticheat

import (
	"context"
	"fmt"
	"testing"
)

func seedCorpus(t *testing.T, idx *AnomalyIndex, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		p := steadyProfile(fmt.Sprintf("regular-%d", i))
		// Small natural variation between players.
		p.MeanResponse += float64(i%5) * 0.3
		p.CommFrequency += float64(i % 4)
		if err := idx.Add(ctx, fmt.Sprintf("obs-%d", i), p); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestAnomalyIndexSmallCorpusStaysSilent(t *testing.T) {
	idx, err := NewAnomalyIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	seedCorpus(t, idx, anomalyMinCorpus-1)

	_, ok, err := idx.Nearest(context.Background(), steadyProfile("p1"))
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if ok {
		t.Fatal("undersized corpus should refuse to score")
	}

	ind := detectStatisticalAnomaly(context.Background(), &Context{
		PlayerID: "p1", Profile: steadyProfile("p1"), Anomaly: idx,
	})
	if ind.Detected {
		t.Fatalf("undersized corpus triggered detection: %+v", ind)
	}
}

func TestAnomalyIndexFlagsOutlier(t *testing.T) {
	idx, err := NewAnomalyIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	seedCorpus(t, idx, anomalyMinCorpus+5)

	// A typical profile sits close to the corpus.
	typical := steadyProfile("typical")
	ind := detectStatisticalAnomaly(context.Background(), &Context{
		PlayerID: "typical", Profile: typical, Anomaly: idx,
	})
	if ind.Detected {
		t.Fatalf("typical profile flagged: %+v", ind)
	}

	// A bot-shaped profile: instant uniform responses, no chat, flat-out
	// action rate.
	outlier := &Profile{
		PlayerID:           "bot",
		Samples:            50,
		MeanResponse:       0.1,
		DecisionConfidence: 1,
		VotingConsistency:  1,
		RoleAdherence:      1,
		ActionRate:         30,
	}
	ind = detectStatisticalAnomaly(context.Background(), &Context{
		PlayerID: "bot", Profile: outlier, Anomaly: idx,
	})
	if !ind.Detected {
		t.Fatal("bot-shaped profile not flagged as an outlier")
	}
	if ind.Confidence <= 0 {
		t.Error("outlier detected with zero confidence")
	}
}

func TestFeatureVectorIsUnitLength(t *testing.T) {
	v := featureVector(steadyProfile("p1"))
	if len(v) != 8 {
		t.Fatalf("vector has %d dims, want 8", len(v))
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("squared norm = %.4f, want 1", sum)
	}
}

func TestFeatureVectorEmptyProfile(t *testing.T) {
	v := featureVector(&Profile{})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("empty profile vector not normalized: %.4f", sum)
	}
}
