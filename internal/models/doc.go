// Package models defines domain entities for the genre listening tracker.
//
// The package contains two categories of types:
//
// 1. Persistent entities backed by the SQLite store:
//   - [Genre] : A named genre with its cumulative listened-seconds counter
//
// 2. Ephemeral Data Transfer Objects:
//   - [TrackSample] : A single poll of the currently playing track
//
// Genre rows are created by the tracker on first observation of a genre name
// and mutated only via the repository's atomic increment, which keeps the
// counters monotonically non-decreasing.
package models
