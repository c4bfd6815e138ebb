package oauth

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

// DefaultLoginTimeout bounds the wait for the browser callback.
const DefaultLoginTimeout = 5 * time.Minute

// LoginOptions configures Login.
type LoginOptions struct {
	// Port of the callback server; 0 picks a free port.
	Port int
	// Timeout for the user to finish in the browser.
	Timeout time.Duration
	// Out receives the authorisation URL. Nil discards it.
	Out io.Writer
	// Open launches the browser. Nil uses OpenBrowser. A failure only
	// leaves the printed URL for the user.
	Open func(url string) error
}

// Login runs the authorisation code flow with PKCE against cfg. The
// config's RedirectURL is replaced by the local callback address.
func Login(ctx context.Context, cfg *oauth2.Config, opts LoginOptions) (*oauth2.Token, error) {
	if cfg == nil || cfg.ClientID == "" {
		return nil, fmt.Errorf("oauth login: client id is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}

	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	recv, err := Listen(opts.Port, state)
	if err != nil {
		return nil, err
	}
	defer recv.Close()

	conf := *cfg
	conf.RedirectURL = recv.RedirectURL()

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
	fmt.Fprintf(opts.Out, "Open this URL to authorise:\n\n  %s\n\n", authURL)
	if err := opts.Open(authURL); err != nil {
		logger.Debug("could not open browser: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	code, err := recv.Code(waitCtx)
	if err != nil {
		return nil, err
	}

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}
