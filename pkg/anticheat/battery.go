package anticheat

import (
	"context"
	"log"
	"sync"
)

// Run executes every registered detector against the snapshot, fanning
// out in parallel and joining. Detectors are independent; a panic in one
// degrades that detector to "not detected" and never blocks the others.
// An empty log short-circuits to zero indicators.
func (r *Registry) Run(ctx context.Context, dc *Context) []Indicator {
	if dc == nil || len(dc.Log) == 0 {
		return nil
	}

	detectors := r.list()
	results := make([]Indicator, len(detectors))

	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d *Detector) {
			defer wg.Done()
			results[i] = runOne(ctx, d, dc)
		}(i, d)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, d *Detector, dc *Context) (out Indicator) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] detector %s panicked: %v", d.Type, r)
			out = Indicator{Type: d.Type}
		}
	}()
	return d.Check(ctx, dc)
}
