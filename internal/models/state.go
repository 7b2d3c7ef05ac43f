package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ActionTag names the last action applied to a State. The values are
// part of the persisted document format.
type ActionTag string

const (
	ActionInitializeState ActionTag = "INITIALIZE_STATE"
	ActionUpdateMinRSI    ActionTag = "UPDATE_MIN_RSI"
)

// Known reports whether the tag is one of the defined actions.
func (t ActionTag) Known() bool {
	return t == ActionInitializeState || t == ActionUpdateMinRSI
}

// State is the whole document persisted between runs
type State struct {
	MinRSI           map[string]PairRecord `json:"minRSI"`           // per trading pair, e.g. "ETHEUR"
	LastUpdated      time.Time             `json:"lastUpdated"`      // time of the last mutation
	LastUpdateAction ActionTag             `json:"lastUpdateAction"` // tag of the last applied action
}

// PairRecord tracks the lowest and the most recent RSI seen for one pair
type PairRecord struct {
	MinRSIValue           float64   `json:"minRSIValue"`
	MinRSIValueTimestamp  time.Time `json:"minRSIValueTimestamp"`
	LastRSIValue          float64   `json:"lastRSIValue"`
	LastRSIValueTimestamp time.Time `json:"lastRSIValueTimestamp"`
}

// Clone returns a copy sharing no mutable data with s.
func (s State) Clone() State {
	out := s
	if s.MinRSI != nil {
		out.MinRSI = make(map[string]PairRecord, len(s.MinRSI))
		for pair, rec := range s.MinRSI {
			out.MinRSI[pair] = rec
		}
	}
	return out
}

// Validate checks the shape of a loaded document.
func (s State) Validate() error {
	if s.MinRSI == nil {
		return errors.New("minRSI is missing")
	}
	if !s.LastUpdateAction.Known() {
		return fmt.Errorf("unknown lastUpdateAction %q", s.LastUpdateAction)
	}
	if s.LastUpdated.IsZero() {
		return errors.New("lastUpdated is missing")
	}
	for pair, rec := range s.MinRSI {
		if pair == "" {
			return errors.New("empty trading pair key")
		}
		if err := rec.validate(); err != nil {
			return fmt.Errorf("pair %s: %w", pair, err)
		}
	}
	return nil
}

func (r PairRecord) validate() error {
	if !finite(r.MinRSIValue) || !finite(r.LastRSIValue) {
		return errors.New("non-finite RSI value")
	}
	if r.MinRSIValue > r.LastRSIValue {
		return fmt.Errorf("minRSIValue %v above lastRSIValue %v", r.MinRSIValue, r.LastRSIValue)
	}
	if r.MinRSIValueTimestamp.IsZero() || r.LastRSIValueTimestamp.IsZero() {
		return errors.New("missing timestamp")
	}
	if r.LastRSIValueTimestamp.Before(r.MinRSIValueTimestamp) {
		return errors.New("lastRSIValueTimestamp before minRSIValueTimestamp")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
