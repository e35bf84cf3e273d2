package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/jitdj/internal/server"
	"github.com/desertthunder/jitdj/internal/services"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// oauthProvider is a service that can run the authorization code flow.
type oauthProvider interface {
	server.Exchanger
	AuthURL(state string) string
}

// Auth runs the OAuth2 authorization code flow and stores the resulting tokens in the config file.
//
// A temporary server listens on the host and path of the configured redirect URI.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.SpotifyOpts{Logger: r.logger})
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, svc, creds.RedirectURI, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: jitdj play --queue queue.toml\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, provider oauthProvider, redirectURI string, openBrowser bool) (*oauth2.Token, error) {
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: bad redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	handler := server.NewOAuthHandler(provider, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	srv, err := server.Listen(redirect.Host, router)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Infof("waiting for OAuth callback at %v", srv.Addr())

	authURL := provider.AuthURL(state)
	opened := false
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		} else {
			opened = true
		}
	}
	if !opened {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-srv.Errors():
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}
