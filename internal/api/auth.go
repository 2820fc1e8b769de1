package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/korpela/gdrive-go/internal/tokenfile"
)

// Google OAuth2 endpoints. Spelled out here instead of importing
// oauth2/google to keep the dependency surface to the oauth2 core.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:       "https://accounts.google.com/o/oauth2/auth",
	TokenURL:      "https://oauth2.googleapis.com/token",
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
}

// The drive scope grants full read/write access to the user's Drive files.
var defaultScopes = []string{"https://www.googleapis.com/auth/drive"}

// ErrNotLoggedIn is returned when no saved token exists at the given path.
var ErrNotLoggedIn = errors.New("api: not logged in (no saved token)")

// Credentials identifies the registered OAuth2 application.
// Drive requires per-application credentials; there is no shared public client.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// DeviceAuth holds the device code response fields that the CLI displays to the user.
type DeviceAuth struct {
	UserCode        string
	VerificationURI string
}

// Login performs the device code OAuth2 flow:
//  1. Requests a device code from Google
//  2. Calls display so the CLI can show the user code and verification URL
//  3. Polls until the user authorizes (blocking, respects ctx cancellation)
//  4. Saves the token to disk at tokenPath
//  5. Returns a TokenSource for use with Client
//
// The returned TokenSource binds ctx to the underlying oauth2 token source.
// ctx must outlive the TokenSource — if ctx is canceled, silent token refresh
// will fail. Callers should pass context.Background() for long-lived sessions.
func Login(
	ctx context.Context,
	tokenPath string,
	creds Credentials,
	display func(DeviceAuth),
	logger *slog.Logger,
) (TokenSource, error) {
	return doLogin(ctx, tokenPath, oauthConfig(creds), display, logger)
}

// doLogin implements the device code flow. Accepts a pre-built oauth2.Config
// so tests can inject a mock endpoint.
func doLogin(
	ctx context.Context,
	tokenPath string,
	cfg *oauth2.Config,
	display func(DeviceAuth),
	logger *slog.Logger,
) (TokenSource, error) {
	logger.Info("starting device code auth flow",
		slog.String("path", tokenPath),
	)

	da, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("api: device auth request failed: %w", err)
	}

	logger.Info("device code received, waiting for user authorization")

	display(DeviceAuth{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
	})

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("api: device code authorization failed: %w", err)
	}

	logger.Info("user authorized, saving token",
		slog.Time("expiry", tok.Expiry),
	)

	if saveErr := tokenfile.Save(tokenPath, tok); saveErr != nil {
		return nil, fmt.Errorf("api: saving token: %w", saveErr)
	}

	return newTokenBridge(cfg.TokenSource(ctx, tok), tok, tokenPath, logger), nil
}

// FileTokenSource loads a saved token from disk and returns a TokenSource
// with auto-refresh. Refreshed tokens are persisted back to tokenPath so the
// refresh token survives process restarts.
// Returns ErrNotLoggedIn when no token file exists.
func FileTokenSource(
	ctx context.Context,
	tokenPath string,
	creds Credentials,
	logger *slog.Logger,
) (TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tok, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, ErrNotLoggedIn
	}

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	logger.Info("loaded saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	cfg := oauthConfig(creds)

	return newTokenBridge(cfg.TokenSource(ctx, tok), tok, tokenPath, logger), nil
}

// Logout removes the saved token file at the given path.
// Returns nil if the token file does not exist (already logged out).
func Logout(tokenPath string, logger *slog.Logger) error {
	if err := tokenfile.Remove(tokenPath); err != nil {
		return err
	}

	logger.Info("logout: removed token file",
		slog.String("path", tokenPath),
	)

	return nil
}

func oauthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       defaultScopes,
		Endpoint:     googleEndpoint,
	}
}

// tokenBridge adapts oauth2.TokenSource to api.TokenSource and persists
// refreshed tokens. oauth2.ReuseTokenSource offers no refresh callback, so
// the bridge compares the access token on every acquisition and saves when
// it changed.
type tokenBridge struct {
	src       oauth2.TokenSource
	tokenPath string
	logger    *slog.Logger

	mu         sync.Mutex
	lastAccess string
}

func newTokenBridge(src oauth2.TokenSource, tok *oauth2.Token, tokenPath string, logger *slog.Logger) *tokenBridge {
	return &tokenBridge{
		src:        src,
		tokenPath:  tokenPath,
		logger:     logger,
		lastAccess: tok.AccessToken,
	}
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))

		return "", fmt.Errorf("api: obtaining token: %w", err)
	}

	b.mu.Lock()
	changed := t.AccessToken != b.lastAccess
	if changed {
		b.lastAccess = t.AccessToken
	}
	b.mu.Unlock()

	if changed {
		b.logger.Info("token refreshed, persisting",
			slog.String("path", b.tokenPath),
			slog.Time("new_expiry", t.Expiry),
		)

		if saveErr := tokenfile.Save(b.tokenPath, t); saveErr != nil {
			b.logger.Warn("failed to persist refreshed token",
				slog.String("path", b.tokenPath),
				slog.String("error", saveErr.Error()),
			)
		}
	}

	return t.AccessToken, nil
}

// StaticTokenSource returns a TokenSource that always yields the same token.
// Useful for tests and short-lived scripts with a pre-acquired token.
func StaticTokenSource(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (s staticToken) Token() (string, error) {
	return string(s), nil
}
