// Package services implements playback sampling against external music APIs.
//
// [Sampler] is the boundary the tracker polls: one call per tick returning
// the currently playing track (with its genre set resolved) or nil when
// playback is idle.
//
// [SpotifyService] is the production implementation. It authenticates with
// the PKCE authorization-code flow, persists refresh tokens through a
// [TokenStore], resolves genres by looking up each artist of the playing
// track, and memoizes those lookups behind a rate limiter so a steady-state
// tick costs exactly one HTTP request.
package services
