package anticheat

import "time"

// False-positive estimate components. Advisory output only: the estimate
// never suppresses or discounts a detection.
const (
	fpBaseRate       = 0.1
	fpNoBaseline     = 0.3
	fpHighComplexity = 0.2
	fpOddHours       = 0.1
	fpCap            = 0.8

	highComplexityFloor = 0.8
	dayStartHour        = 6
	dayEndHour          = 22
)

// AggregateInput carries everything the aggregator needs besides the
// indicators themselves.
type AggregateInput struct {
	PlayerID    string
	SessionID   string
	Indicators  []Indicator
	HasBaseline bool
	Complexity  float64
	Now         time.Time
}

// Aggregate combines triggered indicators into one verdict. Probability
// is the weight-normalized confidence sum over triggered indicators,
// which makes it monotonic: raising any triggered confidence can only
// raise the probability. Unexpected input degrades to probability 0.
func (r *Registry) Aggregate(in AggregateInput) *Result {
	res := &Result{
		PlayerID:   in.PlayerID,
		SessionID:  in.SessionID,
		Indicators: in.Indicators,
		Action:     ActionNone,
		AnalyzedAt: in.Now,
	}

	var weighted, totalWeight float64
	for _, ind := range in.Indicators {
		if !ind.Detected {
			continue
		}
		w := r.Weight(ind.Type)
		if w <= 0 {
			continue
		}
		weighted += w * clamp01(ind.Confidence)
		totalWeight += w
	}
	if totalWeight > 0 {
		res.Probability = clamp01(weighted / totalWeight)
	}

	res.Action, res.Severity = recommend(res.Probability)
	res.FalsePositive = falsePositiveEstimate(in)
	return res
}

// recommend maps probability to the enforcement ladder and its parallel
// severity scale.
func recommend(p float64) (RecommendedAction, int) {
	switch {
	case p < 0.3:
		return ActionNone, 0
	case p < 0.5:
		return ActionWarning, 1
	case p < 0.7:
		return ActionMonitor, 2
	case p < 0.8:
		return ActionRestrict, 3
	case p < 0.9:
		return ActionGameTimeout, 4
	default:
		return ActionRemove, 5
	}
}

func falsePositiveEstimate(in AggregateInput) float64 {
	est := fpBaseRate
	if !in.HasBaseline {
		est += fpNoBaseline
	}
	if in.Complexity > highComplexityFloor {
		est += fpHighComplexity
	}
	if hour := in.Now.Hour(); hour < dayStartHour || hour >= dayEndHour {
		est += fpOddHours
	}
	if est > fpCap {
		est = fpCap
	}
	return est
}
