package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/server"
	"github.com/genretime/genretime/internal/services"
	"github.com/genretime/genretime/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 PKCE authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens. The refresh token is persisted so later
// runs can resume without a browser.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.Spotify.ClientID == "" {
		return fmt.Errorf("%w: Spotify client_id must be set in config.toml", shared.ErrMissingConfig)
	}

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := r.spotifyService(db)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(svc)
	if err != nil {
		return err
	}

	if token.RefreshToken == "" {
		r.logger.Warn("authorization response carried no refresh token")
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Session saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: genretime track\n")

	return nil
}

// AuthStatus reports whether a Spotify session is saved.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	sessions := repositories.NewSessionRepository(db)
	if _, err := sessions.RefreshToken(); err != nil {
		if errors.Is(err, shared.ErrNoSession) {
			return r.writePlain("Authentication: ✗ Not authenticated\n")
		}
		return err
	}

	return r.writePlain("Authentication: ✓ Session saved\n")
}

// AuthLogout forgets the saved Spotify session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	sessions := repositories.NewSessionRepository(db)
	if err := sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return r.writePlain("✓ Session cleared\n")
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(svc *services.SpotifyService) (*oauth2.Token, error) {
	state := shared.GenerateState()

	authURL := svc.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(svc.Exchange, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
