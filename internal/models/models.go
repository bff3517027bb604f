// package models defines the data model for the genre listening tracker
package models

import "time"

// Genre is a persisted per-genre listening counter.
//
// ListenedSeconds only ever grows: the tracker credits time through atomic
// increments and nothing in this program decrements or deletes a genre row.
type Genre struct {
	ID              int64
	Name            string
	ListenedSeconds int64
}

// TrackSample is one observation of the currently playing track, produced
// fresh by each sampler poll. Samples are never persisted; the tracker keeps
// only the previous one as the baseline for delta computation.
type TrackSample struct {
	TrackID   string
	Title     string
	Artists   []string
	Elapsed   float64 // seconds into the track
	Genres    []string
	SampledAt time.Time
}
