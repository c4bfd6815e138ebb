// Package connectors holds the typed API clients of the supported SaaS
// providers, one subpackage each: notion, metaads, stripe, cloudflare,
// mixpanel and google/drive.
//
// Every client is built on the shared rest package, which supplies
// authentication, rate limiting, retries, error classification and request
// metrics. Clients know nothing about profiles; the CLI resolves a profile's
// config and passes the values in.
package connectors
