// Package state computes the next State document from the current one.
// Nothing here performs I/O.
package state

import (
	"binance-rsi-alerts/internal/models"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUnknownAction is returned for an action outside the defined set.
	ErrUnknownAction = errors.New("unknown state action")
	// ErrInvalidAction is returned when action data is incomplete or malformed.
	ErrInvalidAction = errors.New("invalid state action")
)

// Action is the closed set of state transitions. Only this package can
// add members.
type Action interface {
	Tag() models.ActionTag
	isAction()
}

// InitializeState discards the input and starts an empty document.
type InitializeState struct{}

// UpdateMinRSI records an RSI reading for one trading pair.
type UpdateMinRSI struct {
	TradingPair string
	RSIVal      float64
}

func (InitializeState) Tag() models.ActionTag { return models.ActionInitializeState }
func (UpdateMinRSI) Tag() models.ActionTag    { return models.ActionUpdateMinRSI }

func (InitializeState) isAction() {}
func (UpdateMinRSI) isAction()    {}

// Initial returns a fresh document, as applying InitializeState does.
func Initial(now time.Time) models.State {
	return models.State{
		MinRSI:           map[string]models.PairRecord{},
		LastUpdated:      now,
		LastUpdateAction: models.ActionInitializeState,
	}
}

// Apply returns the State that results from applying a to s at now.
// s is never modified. On error the returned State is the zero value.
func Apply(s models.State, a Action, now time.Time) (models.State, error) {
	switch act := a.(type) {
	case InitializeState:
		return Initial(now), nil
	case UpdateMinRSI:
		return applyUpdateMinRSI(s, act, now)
	case nil:
		return models.State{}, fmt.Errorf("%w: nil action", ErrUnknownAction)
	default:
		return models.State{}, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func applyUpdateMinRSI(s models.State, act UpdateMinRSI, now time.Time) (models.State, error) {
	if act.TradingPair == "" {
		return models.State{}, fmt.Errorf("%w: missing trading pair", ErrInvalidAction)
	}
	if math.IsNaN(act.RSIVal) || math.IsInf(act.RSIVal, 0) {
		return models.State{}, fmt.Errorf("%w: non-numeric rsi %v for %s", ErrInvalidAction, act.RSIVal, act.TradingPair)
	}

	// lastUpdated never moves backwards, even if the wall clock does.
	if now.Before(s.LastUpdated) {
		now = s.LastUpdated
	}

	next := s.Clone()
	if next.MinRSI == nil {
		next.MinRSI = make(map[string]models.PairRecord, 1)
	}

	existing, ok := s.MinRSI[act.TradingPair]
	if !ok || act.RSIVal < existing.MinRSIValue {
		next.MinRSI[act.TradingPair] = models.PairRecord{
			MinRSIValue:           act.RSIVal,
			MinRSIValueTimestamp:  now,
			LastRSIValue:          act.RSIVal,
			LastRSIValueTimestamp: now,
		}
	} else {
		existing.LastRSIValue = act.RSIVal
		existing.LastRSIValueTimestamp = now
		next.MinRSI[act.TradingPair] = existing
	}

	next.LastUpdated = now
	next.LastUpdateAction = act.Tag()
	return next, nil
}
