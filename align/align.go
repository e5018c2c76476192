// Package align compares the key spaces of a baseline bundle and its
// translation.
package align

import (
	"sort"

	"github.com/minios-linux/propdiff/propfile"
)

// Report lists key-level differences between a baseline and a target.
// Every list is sorted.
type Report struct {
	MissingInTarget   []string `json:"missingInTarget"`
	ExtraInTarget     []string `json:"extraInTarget"`
	DuplicateBaseline []string `json:"duplicateBaseline"`
	DuplicateTarget   []string `json:"duplicateTarget"`
	// Stale holds saved translations whose baseline text changed after
	// they were saved. Filled in by WithStale.
	Stale []string `json:"stale,omitempty"`
}

// StaleSource reports which keys of a target locale are stale.
type StaleSource interface {
	Stale(target string, baseline map[string]string) []string
}

// Compute builds the report for baseline and target. It is a pure
// function of its inputs and should be re-run whenever either changes.
func Compute(baseline, target *propfile.File) Report {
	var r Report

	for _, k := range baseline.Keys() {
		if !target.Has(k) {
			r.MissingInTarget = append(r.MissingInTarget, k)
		}
	}
	for _, k := range target.Keys() {
		if !baseline.Has(k) {
			r.ExtraInTarget = append(r.ExtraInTarget, k)
		}
	}
	sort.Strings(r.MissingInTarget)
	sort.Strings(r.ExtraInTarget)

	r.DuplicateBaseline = baseline.Duplicates()
	r.DuplicateTarget = target.Duplicates()
	return r
}

// WithStale returns r with Stale filled from src for the given target locale.
func WithStale(r Report, src StaleSource, targetLang string, baseline *propfile.File) Report {
	if src == nil {
		return r
	}
	r.Stale = src.Stale(targetLang, baseline.Values())
	return r
}

// Clean reports whether the two bundles have identical key spaces and no
// diagnostics.
func (r Report) Clean() bool {
	return len(r.MissingInTarget) == 0 &&
		len(r.ExtraInTarget) == 0 &&
		len(r.DuplicateBaseline) == 0 &&
		len(r.DuplicateTarget) == 0 &&
		len(r.Stale) == 0
}
