package modern

import (
	"context"
	"fmt"
	"time"

	"github.com/CK6170/calunc-go/models"
)

// WeightSource is anything that yields balance indications, typically a
// serial.Balance.
type WeightSource interface {
	ReadStable() (models.Quantity, error)
}

type SamplePhase string

const (
	SamplePhaseIgnoring   SamplePhase = "ignoring"
	SamplePhaseCollecting SamplePhase = "collecting"
	SamplePhaseFinished   SamplePhase = "finished"
)

type SampleUpdate struct {
	Phase        SamplePhase     `json:"phase"`
	IgnoreDone   int             `json:"ignoreDone"`
	IgnoreTarget int             `json:"ignoreTarget"`
	Done         int             `json:"done"`
	Target       int             `json:"target"`
	Current      models.Quantity `json:"current"`
	// Readings so far, in the requested unit.
	Readings []float64 `json:"readings,omitempty"`
}

// CollectReadings discards ignoreTarget indications, then collects n stable
// indications converted to unit. It is cancellable between reads.
func CollectReadings(
	ctx context.Context,
	src WeightSource,
	ignoreTarget int,
	n int,
	unit models.Unit,
	onUpdate func(SampleUpdate),
) ([]float64, error) {
	if src == nil {
		return nil, fmt.Errorf("balance not connected")
	}
	if ignoreTarget < 0 {
		ignoreTarget = 0
	}
	if n <= 0 {
		return nil, fmt.Errorf("n must be > 0")
	}
	emit := func(u SampleUpdate) {
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	for i := 0; i < ignoreTarget; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		q, err := src.ReadStable()
		if err != nil {
			return nil, fmt.Errorf("warmup read %d: %w", i+1, err)
		}
		emit(SampleUpdate{
			Phase:        SamplePhaseIgnoring,
			IgnoreDone:   i + 1,
			IgnoreTarget: ignoreTarget,
			Target:       n,
			Current:      q,
		})
		time.Sleep(5 * time.Millisecond)
	}

	readings := make([]float64, 0, n)
	for len(readings) < n {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		q, err := src.ReadStable()
		if err != nil {
			return nil, fmt.Errorf("read %d: %w", len(readings)+1, err)
		}
		c, err := q.Convert(unit)
		if err != nil {
			return nil, err
		}
		readings = append(readings, c.Value)
		emit(SampleUpdate{
			Phase:        SamplePhaseCollecting,
			IgnoreDone:   ignoreTarget,
			IgnoreTarget: ignoreTarget,
			Done:         len(readings),
			Target:       n,
			Current:      q,
		})
		time.Sleep(5 * time.Millisecond)
	}

	emit(SampleUpdate{
		Phase:        SamplePhaseFinished,
		IgnoreDone:   ignoreTarget,
		IgnoreTarget: ignoreTarget,
		Done:         n,
		Target:       n,
		Readings:     readings,
	})
	return readings, nil
}
