// Package google holds what Google API clients share: the OAuth2 endpoint
// and scopes, request budgets per endpoint family, classification of
// Google's error bodies and the userinfo lookup that names an account.
//
//	c := rest.New(base,
//		rest.WithRateLimiter(google.NewRateLimiter(google.APIDrive)),
//		rest.WithErrorParser(google.ErrorParser),
//	)
//
// The drive scope is restricted; apps created for personal use do not
// need verification to request it.
package google
