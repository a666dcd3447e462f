// Package detector holds the deterministic incident classifiers. Every
// function here is pure: it reads records and a CV document and returns a
// fresh Partition without touching its inputs.
package detector

import "time"

// Policy carries the tunable thresholds of the detectors.
type Policy struct {
	// UrgentEmptyPerEntity escalates an entity's unexpected empties to urgent
	// once it has more than this many in one run.
	UrgentEmptyPerEntity int
	// LateThreshold is the grace after the expected cutoff before an upload is late.
	LateThreshold time.Duration
	// LagToleranceDays separates late uploads from backfills.
	LagToleranceDays int
	// DailyTotalRatio marks per-weekday row stats as daily totals when their
	// median is at least this multiple of today's per-file median.
	DailyTotalRatio float64
	// BandCushion widens min/max volume bands on each side.
	BandCushion float64
}

// DefaultPolicy returns the thresholds the detectors were calibrated with.
func DefaultPolicy() Policy {
	return Policy{
		UrgentEmptyPerEntity: 3,
		LateThreshold:        4 * time.Hour,
		LagToleranceDays:     1,
		DailyTotalRatio:      20,
		BandCushion:          0.10,
	}
}

// withDefaults turns the zero Policy into DefaultPolicy. Otherwise only
// values no detector can use are replaced, so an explicit zero tolerance or
// escalation threshold is honoured.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p == (Policy{}) {
		return def
	}
	if p.UrgentEmptyPerEntity < 0 {
		p.UrgentEmptyPerEntity = def.UrgentEmptyPerEntity
	}
	if p.LateThreshold < 0 {
		p.LateThreshold = def.LateThreshold
	}
	if p.LagToleranceDays < 0 {
		p.LagToleranceDays = def.LagToleranceDays
	}
	if p.DailyTotalRatio <= 0 {
		p.DailyTotalRatio = def.DailyTotalRatio
	}
	if p.BandCushion < 0 || p.BandCushion >= 1 {
		p.BandCushion = def.BandCushion
	}
	return p
}
