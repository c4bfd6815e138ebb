package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// Watch defaults.
const (
	DefaultChannelTTL    = 24 * time.Hour
	DefaultRenewalWindow = time.Hour
	// WebhookURLEnv names the variable holding the notification address.
	WebhookURLEnv = "CONNECTOR_WEBHOOK_URL"
)

// WatchService registers and renews push channels on the change feed.
type WatchService struct {
	api         driven.DriveAPI
	channels    driven.WatchChannelStore
	checkpoints driven.CheckpointStore
	ttl         time.Duration
	now         func() time.Time
}

// NewWatchService creates a new watch service.
func NewWatchService(
	api driven.DriveAPI, channels driven.WatchChannelStore, checkpoints driven.CheckpointStore,
) *WatchService {
	return &WatchService{
		api:         api,
		channels:    channels,
		checkpoints: checkpoints,
		ttl:         DefaultChannelTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a channel from the account's cursor, or from the
// feed's head when the account was never synced.
func (s *WatchService) Register(ctx context.Context, accountID, address string) (*domain.WatchChannel, error) {
	if address == "" {
		return nil, fmt.Errorf("webhook address is required (set %s): %w", WebhookURLEnv, domain.ErrInvalidInput)
	}

	pageToken := ""
	if cp, err := s.checkpoints.GetCheckpoint(ctx, accountID, ChangesResource); err != nil {
		return nil, err
	} else if cp != nil {
		pageToken = cp.Cursor
	}
	if pageToken == "" {
		var err error
		if pageToken, err = s.api.StartPageToken(ctx); err != nil {
			return nil, err
		}
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	req := driven.WatchRequest{
		ChannelID:  uuid.NewString(),
		Address:    address,
		Token:      token,
		TTLSeconds: int(s.ttl / time.Second),
	}
	resp, err := s.api.WatchChanges(ctx, pageToken, req)
	if err != nil {
		return nil, err
	}

	ch := domain.WatchChannel{
		ID:          req.ChannelID,
		AccountID:   accountID,
		ResourceID:  resp.ResourceId,
		ResourceURI: resp.ResourceUri,
		Token:       token,
		Address:     address,
		PageToken:   pageToken,
		CreatedAt:   s.now(),
	}
	if resp.Expiration > 0 {
		ch.Expiration = time.UnixMilli(resp.Expiration).UTC()
	} else {
		ch.Expiration = ch.CreatedAt.Add(s.ttl)
	}
	if err := s.channels.SaveChannel(ctx, ch); err != nil {
		return nil, fmt.Errorf("store channel: %w", err)
	}
	logger.Info("registered channel %s (expires %s)", ch.ID, ch.Expiration.Format(time.RFC3339))
	return &ch, nil
}

// Delete stops the channel at Google and removes the record. A channel
// Google no longer knows is still removed locally.
func (s *WatchService) Delete(ctx context.Context, channelID string) error {
	ch, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.api.StopChannel(ctx, ch.ID, ch.ResourceID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		logger.Warn("channel %s already gone remotely", ch.ID)
	}
	return s.channels.DeleteChannel(ctx, ch.ID)
}

// Renew replaces every channel expiring within window. address overrides
// the stored address when set.
func (s *WatchService) Renew(
	ctx context.Context, accountID, address string, window time.Duration,
) ([]domain.WatchChannel, error) {
	if window <= 0 {
		window = DefaultRenewalWindow
	}
	channels, err := s.channels.ListChannels(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var renewed []domain.WatchChannel
	for i := range channels {
		old := channels[i]
		if !old.ExpiresWithin(window) {
			continue
		}
		target := address
		if target == "" {
			target = old.Address
		}
		ch, err := s.Register(ctx, old.AccountID, target)
		if err != nil {
			return renewed, fmt.Errorf("renew channel %s: %w", old.ID, err)
		}
		if err := s.Delete(ctx, old.ID); err != nil {
			logger.Warn("renew: could not stop old channel %s: %v", old.ID, err)
		}
		renewed = append(renewed, *ch)
	}
	return renewed, nil
}

// List returns the account's channels.
func (s *WatchService) List(ctx context.Context, accountID string) ([]domain.WatchChannel, error) {
	return s.channels.ListChannels(ctx, accountID)
}

// ValidateChannel accepts a notification for a known channel whose token
// matches the stored one. A channel stored without a token accepts any.
func (s *WatchService) ValidateChannel(ctx context.Context, channelID, token string) (*domain.WatchChannel, error) {
	ch, err := s.channels.GetChannel(ctx, channelID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("unknown channel %s: %w", channelID, domain.ErrPermission)
	}
	if err != nil {
		return nil, err
	}
	if ch.Token != "" && subtle.ConstantTimeCompare([]byte(ch.Token), []byte(token)) != 1 {
		return nil, fmt.Errorf("invalid token for channel %s: %w", channelID, domain.ErrPermission)
	}
	return ch, nil
}

// Upsert stores what a notification reports about its channel. A channel
// not yet recorded is created under accountID. Empty fields keep the
// stored values.
func (s *WatchService) Upsert(
	ctx context.Context, accountID string, n domain.ChannelNotification,
) (*domain.WatchChannel, error) {
	if n.ChannelID == "" {
		return nil, fmt.Errorf("channel id missing from notification: %w", domain.ErrInvalidInput)
	}
	ch, err := s.channels.GetChannel(ctx, n.ChannelID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		ch = &domain.WatchChannel{ID: n.ChannelID, AccountID: accountID, CreatedAt: s.now()}
	case err != nil:
		return nil, err
	}
	if n.ResourceID != "" {
		ch.ResourceID = n.ResourceID
	}
	if n.ResourceURI != "" {
		ch.ResourceURI = n.ResourceURI
	}
	if !n.Expiration.IsZero() {
		ch.Expiration = n.Expiration.UTC()
	}
	if err := s.channels.SaveChannel(ctx, *ch); err != nil {
		return nil, fmt.Errorf("store channel: %w", err)
	}
	logger.Debug("channel %s notified (%s, message %s)", ch.ID, n.ResourceState, n.MessageNumber)
	return ch, nil
}
