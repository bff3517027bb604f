// Spotify implementation of [Sampler]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/genretime/genretime/internal/models"
	"github.com/genretime/genretime/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify allows far more, but genre lookups are cached and never
	// urgent, so stay well clear of the API's rate limits.
	artistLookupsPerSecond = 5
)

// SpotifyArtist represents a Spotify artist. Genres live on the artist, not
// the track; a track's genre set is the union over its artists.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifyTrack represents the track object inside a player response.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Artists []SpotifyArtist `json:"artists"`
}

// SpotifyCurrentlyPlaying represents the /me/player/currently-playing response.
type SpotifyCurrentlyPlaying struct {
	Item       *SpotifyTrack `json:"item"`
	ProgressMS int           `json:"progress_ms"`
	IsPlaying  bool          `json:"is_playing"`
}

// SpotifyService implements [Sampler] against the Spotify Web API.
//
// Authentication uses the PKCE authorization-code flow, so only a client ID
// is required. Refreshed tokens are persisted through the [TokenStore] so a
// later run can resume without an interactive login.
type SpotifyService struct {
	config      *oauth2.Config
	source      oauth2.TokenSource
	store       TokenStore
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	verifier    string
	lastRefresh string

	mu         sync.Mutex
	genreCache map[string][]string
}

// errNoContent signals an empty 204 player response (nothing playing).
var errNoContent = errors.New("no content")

// NewSpotifyService creates a new Spotify service for the given PKCE client.
func NewSpotifyService(clientID, redirectURI string, store TokenStore) (*SpotifyService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing Spotify client_id", shared.ErrInvalidConfig)
	}
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes: []string{
			"user-read-playback-state",
			"user-read-currently-playing",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		store:      store,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(artistLookupsPerSecond), 1),
		genreCache: make(map[string][]string),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL for user login, generating a fresh
// PKCE verifier for the subsequent [SpotifyService.Exchange].
func (s *SpotifyService) AuthURL(state string) string {
	s.verifier = oauth2.GenerateVerifier()
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(s.verifier))
}

// Exchange trades the authorization code for tokens, adopts them, and
// persists the refresh token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(s.verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := s.adopt(token); err != nil {
		return nil, err
	}

	return token, nil
}

// Resume restores authorization from a previously persisted refresh token.
func (s *SpotifyService) Resume(ctx context.Context) error {
	if s.store == nil {
		return shared.ErrNotAuthenticated
	}

	refreshToken, err := s.store.RefreshToken()
	if err != nil {
		if errors.Is(err, shared.ErrNoSession) {
			return fmt.Errorf("%w: run the auth command first", shared.ErrNotAuthenticated)
		}
		return err
	}

	return s.adopt(&oauth2.Token{RefreshToken: refreshToken})
}

// adopt installs a token source for the given token and persists its refresh token.
func (s *SpotifyService) adopt(token *oauth2.Token) error {
	s.source = s.config.TokenSource(context.Background(), token)
	return s.persistRefreshToken(token)
}

func (s *SpotifyService) persistRefreshToken(token *oauth2.Token) error {
	if s.store == nil || token.RefreshToken == "" || token.RefreshToken == s.lastRefresh {
		return nil
	}
	if err := s.store.SaveRefreshToken(token.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	s.lastRefresh = token.RefreshToken
	return nil
}

// token returns a live access token, refreshing through the token source as needed.
func (s *SpotifyService) token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := s.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// Spotify rotates refresh tokens; keep the stored one current.
	if err := s.persistRefreshToken(token); err != nil {
		return nil, err
	}

	return token, nil
}

// Sample polls the player endpoint and resolves the genre set of the playing
// track. Returns nil when nothing is playing, playback is paused, or the
// active item is not a track (podcasts and audiobooks are not credited).
func (s *SpotifyService) Sample(ctx context.Context) (*models.TrackSample, error) {
	var playing SpotifyCurrentlyPlaying
	err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", &playing)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSamplerUnavailable, err)
	}

	if playing.Item == nil || playing.Item.Type != "track" || !playing.IsPlaying {
		return nil, nil
	}

	genres, err := s.trackGenres(ctx, playing.Item.Artists)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSamplerUnavailable, err)
	}

	artists := make([]string, 0, len(playing.Item.Artists))
	for _, artist := range playing.Item.Artists {
		artists = append(artists, artist.Name)
	}

	return &models.TrackSample{
		TrackID:   playing.Item.ID,
		Title:     playing.Item.Name,
		Artists:   artists,
		Elapsed:   float64(playing.ProgressMS) / 1000,
		Genres:    genres,
		SampledAt: time.Now(),
	}, nil
}

// trackGenres unions the genres of all artists on the track, deduplicated
// and sorted for stable crediting order.
func (s *SpotifyService) trackGenres(ctx context.Context, artists []SpotifyArtist) ([]string, error) {
	seen := make(map[string]bool)
	for _, artist := range artists {
		genres, err := s.artistGenres(ctx, artist.ID)
		if err != nil {
			return nil, err
		}
		for _, genre := range genres {
			seen[genre] = true
		}
	}

	genres := make([]string, 0, len(seen))
	for genre := range seen {
		genres = append(genres, genre)
	}
	sort.Strings(genres)

	return genres, nil
}

// artistGenres looks up an artist's genres, serving repeat lookups from an
// in-memory cache so steady-state ticks cost a single player request.
func (s *SpotifyService) artistGenres(ctx context.Context, artistID string) ([]string, error) {
	s.mu.Lock()
	cached, ok := s.genreCache[artistID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var artist SpotifyArtist
	if err := s.doRequest(ctx, http.MethodGet, "/artists/"+artistID, &artist); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.genreCache[artistID] = artist.Genres
	s.mu.Unlock()

	return artist.Genres, nil
}

// doRequest performs an authenticated request against the Spotify API and
// decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return errNoContent
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
