// package repositories provides the persistence layer over the SQLite store.
//
// [GenreRepository] owns all access to genre rows: lookups, substring
// search, top-by-listened ordering, and the atomic increment the tracker
// credits time through. [SessionRepository] stores the Spotify refresh token.
//
// Each operation is a single statement; no multi-statement transactions
// cross the tracker/foreground boundary.
package repositories
