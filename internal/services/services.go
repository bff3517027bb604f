// package services defines interface Sampler for observing playback state
//
// Spotify is the only production implementation
package services

import (
	"context"

	"github.com/genretime/genretime/internal/models"
)

// Sampler reports the currently playing track.
//
// Implementations must be safe to call once per tracker tick.
type Sampler interface {
	// Sample returns the track playing right now, or nil when nothing is
	// playing. Transient failures surface as errors; the tracker treats
	// them as "no sample this tick" and keeps polling.
	Sample(ctx context.Context) (*models.TrackSample, error)

	// Name returns the name of the playback source (e.g. "Spotify")
	Name() string
}

// TokenStore persists the OAuth refresh token across runs.
//
// Implemented by repositories.SessionRepository.
type TokenStore interface {
	SaveRefreshToken(token string) error
	RefreshToken() (string, error)
}
