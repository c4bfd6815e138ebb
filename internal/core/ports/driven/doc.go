// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - ProfileStore: per-connector profiles, their config and tokens (JSON files)
//   - SettingsStore: global settings (settings.toml)
//   - CheckpointStore, DownloadAuditStore, WatchChannelStore, DriveCatalogStore:
//     Google Drive local state (SQLite)
//   - DriveAPI: the subset of the Drive client used by the drive services
//
// # Import Rules
//
//   - Can Import: domain package and google.golang.org/api wire types
//   - Cannot Import: Any adapter or connector package
package driven
