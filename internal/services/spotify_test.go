package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/genretime/genretime/internal/shared"
	"golang.org/x/oauth2"
)

// memoryTokenStore is an in-memory [TokenStore] for tests
type memoryTokenStore struct {
	token string
}

func (m *memoryTokenStore) SaveRefreshToken(token string) error {
	m.token = token
	return nil
}

func (m *memoryTokenStore) RefreshToken() (string, error) {
	if m.token == "" {
		return "", shared.ErrNoSession
	}
	return m.token, nil
}

// newTestService points a SpotifyService with a static token at a test server
func newTestService(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewSpotifyService("client-id", "", nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	svc.baseURL = server.URL
	svc.source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})

	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("Sample resolves genres across artists", func(t *testing.T) {
		var artistLookups atomic.Int64

		mux := http.NewServeMux()
		mux.HandleFunc("/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"is_playing": true,
				"progress_ms": 42500,
				"item": {
					"id": "track1",
					"name": "Collab Song",
					"type": "track",
					"artists": [{"id": "a1", "name": "Artist One"}, {"id": "a2", "name": "Artist Two"}]
				}
			}`)
		})
		mux.HandleFunc("/artists/a1", func(w http.ResponseWriter, r *http.Request) {
			artistLookups.Add(1)
			fmt.Fprint(w, `{"id": "a1", "name": "Artist One", "genres": ["techno", "ambient"]}`)
		})
		mux.HandleFunc("/artists/a2", func(w http.ResponseWriter, r *http.Request) {
			artistLookups.Add(1)
			fmt.Fprint(w, `{"id": "a2", "name": "Artist Two", "genres": ["ambient", "idm"]}`)
		})

		svc := newTestService(t, mux)

		sample, err := svc.Sample(context.Background())
		if err != nil {
			t.Fatalf("failed to sample: %v", err)
		}
		if sample == nil {
			t.Fatal("expected a sample")
		}

		if sample.TrackID != "track1" {
			t.Errorf("expected track1, got %s", sample.TrackID)
		}
		if sample.Elapsed != 42.5 {
			t.Errorf("expected 42.5s elapsed, got %v", sample.Elapsed)
		}

		want := []string{"ambient", "idm", "techno"}
		if len(sample.Genres) != len(want) {
			t.Fatalf("expected genres %v, got %v", want, sample.Genres)
		}
		for i, genre := range want {
			if sample.Genres[i] != genre {
				t.Errorf("expected genres %v, got %v", want, sample.Genres)
				break
			}
		}

		// Second sample must serve genres from the cache.
		before := artistLookups.Load()
		if _, err := svc.Sample(context.Background()); err != nil {
			t.Fatalf("failed to sample again: %v", err)
		}
		if artistLookups.Load() != before {
			t.Errorf("expected artist lookups to be cached, got %d extra", artistLookups.Load()-before)
		}
	})

	t.Run("Sample returns nil when nothing is playing", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		sample, err := svc.Sample(context.Background())
		if err != nil {
			t.Fatalf("expected no error for 204, got %v", err)
		}
		if sample != nil {
			t.Errorf("expected nil sample, got %+v", sample)
		}
	})

	t.Run("Sample returns nil when playback is paused", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"is_playing": false,
				"progress_ms": 1000,
				"item": {"id": "t", "name": "Song", "type": "track", "artists": []}
			}`)
		}))

		sample, err := svc.Sample(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sample != nil {
			t.Errorf("expected nil sample for paused playback, got %+v", sample)
		}
	})

	t.Run("Sample skips podcast episodes", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"is_playing": true,
				"progress_ms": 1000,
				"item": {"id": "ep1", "name": "Episode", "type": "episode", "artists": []}
			}`)
		}))

		sample, err := svc.Sample(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sample != nil {
			t.Errorf("expected nil sample for episode, got %+v", sample)
		}
	})

	t.Run("Sample wraps server errors as sampler unavailable", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := svc.Sample(context.Background())
		if !errors.Is(err, shared.ErrSamplerUnavailable) {
			t.Errorf("expected ErrSamplerUnavailable, got %v", err)
		}
	})

	t.Run("Resume without stored session", func(t *testing.T) {
		svc, err := NewSpotifyService("client-id", "", &memoryTokenStore{})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if err := svc.Resume(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("NewSpotifyService requires a client id", func(t *testing.T) {
		if _, err := NewSpotifyService("", "", nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
