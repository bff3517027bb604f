// Package tracker implements the listening-time attribution loop.
//
// A [Tracker] polls a playback sampler on a fixed interval, keeps the
// previous sample as its baseline, and credits the elapsed delta to every
// genre of the playing track through the genre store's atomic increment.
//
// # Anti-cheat bounds
//
// A credited delta must satisfy 0 <= delta < interval + request latency +
// tolerance. Scrubbing a progress bar forward, or switching to a track
// already deep into playback, produces deltas larger than the wall-clock
// window since the previous poll and earns nothing. The tracker still
// re-baselines, so honest listening resumes crediting on the next tick.
//
// # Failure behavior
//
// Sampler and store failures are logged, surfaced as [Notification] values,
// and otherwise ignored: a bad tick contributes no credit and the loop keeps
// polling. Cancellation is cooperative via the context passed to
// [Tracker.Run].
package tracker
