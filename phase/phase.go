// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package phase derives an election's phase from its schedule.
//
// The phase is never stored. Callers read the clock once per request and
// pass that instant to every check the request makes:
//
//	now := time.Now().UTC()
//	if phase.Of(election, now) != models.PhaseOpen { ... }
package phase

import (
	"time"

	"github.com/danielhkuo/quickly-elect/models"
)

// Of returns the phase of e at now. Both window bounds are inclusive.
func Of(e models.Election, now time.Time) models.Phase {
	switch {
	case now.Before(e.OpensAt):
		return models.PhaseScheduled
	case now.After(e.ClosesAt):
		return models.PhaseClosed
	default:
		return models.PhaseOpen
	}
}

// AcceptsCandidacies reports whether candidacies may be submitted at now.
func AcceptsCandidacies(e models.Election, now time.Time) bool {
	return Of(e, now) != models.PhaseClosed
}

// Clock supplies the current time. Components take a Clock so tests can pin
// "now"; handlers still read it only once per request.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c).UTC() }
