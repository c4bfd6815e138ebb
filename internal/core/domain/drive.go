package domain

import "time"

// SyncCheckpoint records the change-feed cursor for one account and resource.
type SyncCheckpoint struct {
	AccountID    string    `json:"account_id"`
	Resource     string    `json:"resource"`
	Cursor       string    `json:"cursor"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// DownloadStatus is the state of an audited download.
type DownloadStatus string

const (
	// DownloadStarted is recorded before the transfer begins.
	DownloadStarted DownloadStatus = "started"
	// DownloadCompleted is recorded after the file has been written.
	DownloadCompleted DownloadStatus = "completed"
	// DownloadFailed is recorded when the transfer or write fails.
	DownloadFailed DownloadStatus = "failed"
)

// DownloadAudit is one audited file download.
type DownloadAudit struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	FileID      string         `json:"file_id"`
	FileName    string         `json:"file_name,omitempty"`
	Destination string         `json:"destination"`
	Status      DownloadStatus `json:"status"`
	Bytes       int64          `json:"bytes"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
}

// DownloadFilter narrows a download history listing.
type DownloadFilter struct {
	AccountID string
	Status    DownloadStatus
	Limit     int
	Offset    int
}

// WatchChannel is a registered push-notification channel.
type WatchChannel struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	ResourceID  string    `json:"resource_id"`
	ResourceURI string    `json:"resource_uri,omitempty"`
	Token       string    `json:"token,omitempty"`
	Address     string    `json:"address"`
	PageToken   string    `json:"page_token,omitempty"`
	Expiration  time.Time `json:"expiration"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChannelNotification is what a push notification says about its channel.
type ChannelNotification struct {
	ChannelID     string
	Token         string
	ResourceID    string
	ResourceURI   string
	ResourceState string
	MessageNumber string
	Expiration    time.Time
}

// ExpiresWithin reports whether the channel expires within d of now.
func (c *WatchChannel) ExpiresWithin(d time.Duration) bool {
	if c.Expiration.IsZero() {
		return false
	}
	return time.Until(c.Expiration) < d
}

// DriveKind distinguishes the user's own drive from shared drives.
type DriveKind string

const (
	DriveKindMyDrive DriveKind = "my_drive"
	DriveKindShared  DriveKind = "shared_drive"
)

// DriveCatalogEntry is a cached shared drive (or "my-drive").
type DriveCatalogEntry struct {
	AccountID string    `json:"account_id"`
	DriveID   string    `json:"drive_id"`
	Name      string    `json:"name"`
	Kind      DriveKind `json:"kind"`
	Active    bool      `json:"active"`
	SyncedAt  time.Time `json:"synced_at"`
}

// MyDriveID identifies the user's own drive in the catalog.
const MyDriveID = "my-drive"

// DriveChange is one entry of the change feed.
type DriveChange struct {
	FileID   string    `json:"file_id"`
	DriveID  string    `json:"drive_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Removed  bool      `json:"removed"`
	Time     time.Time `json:"time"`
}

// SyncResult reports one incremental sync.
type SyncResult struct {
	AccountID string `json:"account_id"`
	// Initialised is set when no checkpoint existed and one was created
	// from the feed's start token. No changes are reported in that case.
	Initialised bool          `json:"initialised"`
	Changes     []DriveChange `json:"changes"`
	Cursor      string        `json:"cursor"`
	HasMore     bool          `json:"has_more"`
}
