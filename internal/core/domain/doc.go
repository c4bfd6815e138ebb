// Package domain defines the core entities shared by every connector.
//
// This package is the innermost layer of the application. It has NO
// external dependencies and defines the fundamental types:
//
//   - Profile: a named bundle of credentials and defaults for one connector
//   - Tokens: OAuth or API tokens persisted alongside a profile
//   - ConnectorType: static description of a supported connector
//   - Drive state: sync checkpoints, download audits, watch channels
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
