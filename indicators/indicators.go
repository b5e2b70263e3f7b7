// Package indicators provides the technical indicators and bar-pattern
// conditions the strategy layers are built from.
//
// Every function is pure over its input slice and reports insufficient data
// through an ok flag or a false condition, never an error the caller has to
// branch on mid-simulation.
package indicators
