package utils

import (
	"errors"
	"math"
	"time"
)

// SplitProportional computes one part's share of a collected total when a
// single payment covers several courses: round(partCents / totalOfPartsCents
// * totalCents), half up.
//
// With three or more parts and non-divisible prices the per-part shares may
// not sum back to totalCents exactly; the drift is bounded by one minor unit
// per part and is accepted rather than reconciled.
func SplitProportional(totalCents, partCents, totalOfPartsCents int64) int64 {
	if totalOfPartsCents <= 0 || partCents <= 0 || totalCents <= 0 {
		return 0
	}
	return int64(math.Round(float64(partCents) / float64(totalOfPartsCents) * float64(totalCents)))
}

// SplitCommission splits a course amount between the teacher and the
// platform. The platform side is always the remainder, never computed
// independently, so teacher + platform == amountCents holds exactly.
func SplitCommission(amountCents int64, teacherShare float64) (teacherCents, platformCents int64) {
	if amountCents <= 0 {
		return 0, 0
	}
	teacherCents = int64(math.Round(float64(amountCents) * teacherShare))
	if teacherCents < 0 {
		teacherCents = 0
	}
	if teacherCents > amountCents {
		teacherCents = amountCents
	}
	return teacherCents, amountCents - teacherCents
}

// CanonicalPeriod buckets an instant into its settlement month, as a
// YYYY-MM string in the given reporting timezone. All period comparisons and
// storage use this form; raw timestamps are never range-queried for grouping.
func CanonicalPeriod(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

var ErrInvalidPeriod = errors.New("period must be in YYYY-MM form")

// ValidPeriod reports whether s is a canonical YYYY-MM period key.
func ValidPeriod(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}
