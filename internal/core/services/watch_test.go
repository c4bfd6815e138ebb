package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

const testHook = "https://hooks.example.com/drive"

func newTestWatchService(api *fakeDriveAPI) (*WatchService, *memory.DriveStateStore) {
	store := memory.NewDriveStateStore()
	return NewWatchService(api, store, store), store
}

func TestWatchService_Register_FromStartToken(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	ch, err := service.Register(context.Background(), "acct", testHook)
	require.NoError(t, err)

	require.Len(t, api.watched, 1)
	req := api.watched[0]
	assert.Equal(t, ch.ID, req.ChannelID)
	assert.Equal(t, testHook, req.Address)
	assert.Equal(t, int(DefaultChannelTTL/time.Second), req.TTLSeconds)
	assert.Len(t, ch.Token, 32)
	assert.NotContains(t, ch.Token, "-")
	assert.Equal(t, []string{"start-1"}, api.watchToken)

	assert.Equal(t, "start-1", ch.PageToken)
	assert.Equal(t, "res-"+ch.ID, ch.ResourceID)
	assert.Equal(t, now.Add(DefaultChannelTTL), ch.Expiration)

	stored, err := store.GetChannel(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.Token, stored.Token)
}

func TestWatchService_Register_UsesCheckpointAndExpiration(t *testing.T) {
	api := newFakeDriveAPI()
	exp := time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)
	api.watchResp = &drive.Channel{ResourceId: "res", Expiration: exp.UnixMilli()}
	service, store := newTestWatchService(api)
	require.NoError(t, store.SaveCheckpoint(context.Background(), domain.SyncCheckpoint{
		AccountID: "acct", Resource: ChangesResource, Cursor: "77",
	}))

	ch, err := service.Register(context.Background(), "acct", testHook)
	require.NoError(t, err)

	assert.Equal(t, "77", ch.PageToken)
	assert.Equal(t, []string{"77"}, api.watchToken)
	assert.True(t, exp.Equal(ch.Expiration))
}

func TestWatchService_Register_Errors(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)

	_, err := service.Register(context.Background(), "acct", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	api.watchErr = errors.New("push not allowed")
	_, err = service.Register(context.Background(), "acct", testHook)
	assert.ErrorContains(t, err, "push not allowed")

	channels, err := store.ListChannels(context.Background(), "acct")
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestWatchService_Delete(t *testing.T) {
	api := newFakeDriveAPI()
	service, _ := newTestWatchService(api)
	ch, err := service.Register(context.Background(), "acct", testHook)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), ch.ID))
	assert.Equal(t, []string{ch.ID}, api.stopped)

	channels, err := service.List(context.Background(), "acct")
	require.NoError(t, err)
	assert.Empty(t, channels)

	err = service.Delete(context.Background(), ch.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWatchService_Delete_RemoteAlreadyGone(t *testing.T) {
	api := newFakeDriveAPI()
	service, _ := newTestWatchService(api)
	ch, err := service.Register(context.Background(), "acct", testHook)
	require.NoError(t, err)
	api.stopErr = fmt.Errorf("%w: channel not found", domain.ErrNotFound)

	require.NoError(t, service.Delete(context.Background(), ch.ID))

	channels, err := service.List(context.Background(), "acct")
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestWatchService_Delete_RemoteFailureKeepsRecord(t *testing.T) {
	api := newFakeDriveAPI()
	service, _ := newTestWatchService(api)
	ch, err := service.Register(context.Background(), "acct", testHook)
	require.NoError(t, err)
	api.stopErr = errors.New("backend error")

	assert.Error(t, service.Delete(context.Background(), ch.ID))

	channels, err := service.List(context.Background(), "acct")
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestWatchService_Renew(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)
	ctx := context.Background()

	require.NoError(t, store.SaveChannel(ctx, domain.WatchChannel{
		ID: "expiring", AccountID: "acct", ResourceID: "r1",
		Address: testHook, Expiration: time.Now().Add(10 * time.Minute),
	}))
	require.NoError(t, store.SaveChannel(ctx, domain.WatchChannel{
		ID: "fresh", AccountID: "acct", ResourceID: "r2",
		Address: testHook, Expiration: time.Now().Add(20 * time.Hour),
	}))

	renewed, err := service.Renew(ctx, "acct", "", time.Hour)
	require.NoError(t, err)
	require.Len(t, renewed, 1)
	assert.Equal(t, testHook, renewed[0].Address)
	assert.Equal(t, []string{"expiring"}, api.stopped)

	channels, err := service.List(ctx, "acct")
	require.NoError(t, err)
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	assert.ElementsMatch(t, []string{"fresh", renewed[0].ID}, ids)
}

func TestWatchService_Renew_OverridesAddress(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)
	ctx := context.Background()
	require.NoError(t, store.SaveChannel(ctx, domain.WatchChannel{
		ID: "old", AccountID: "acct", Address: testHook, Expiration: time.Now().Add(time.Minute),
	}))

	renewed, err := service.Renew(ctx, "acct", "https://new.example.com/hook", 0)
	require.NoError(t, err)
	require.Len(t, renewed, 1)
	assert.Equal(t, "https://new.example.com/hook", renewed[0].Address)
}

func TestWatchService_ValidateChannel(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)
	ctx := context.Background()
	ch, err := service.Register(ctx, "acct", testHook)
	require.NoError(t, err)
	require.NoError(t, store.SaveChannel(ctx, domain.WatchChannel{ID: "open", AccountID: "acct"}))

	got, err := service.ValidateChannel(ctx, ch.ID, ch.Token)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, got.ID)

	_, err = service.ValidateChannel(ctx, ch.ID, "wrong")
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = service.ValidateChannel(ctx, ch.ID, "")
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = service.ValidateChannel(ctx, "nope", ch.Token)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = service.ValidateChannel(ctx, "open", "anything")
	assert.NoError(t, err)
}

func TestWatchService_Upsert(t *testing.T) {
	api := newFakeDriveAPI()
	service, store := newTestWatchService(api)
	ctx := context.Background()
	ch, err := service.Register(ctx, "acct", testHook)
	require.NoError(t, err)
	exp := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	got, err := service.Upsert(ctx, "acct", domain.ChannelNotification{
		ChannelID:     ch.ID,
		ResourceURI:   "https://www.googleapis.com/drive/v3/changes?pageToken=9",
		ResourceState: "change",
		Expiration:    exp,
	})
	require.NoError(t, err)
	assert.Equal(t, ch.ResourceID, got.ResourceID, "empty fields keep stored values")
	assert.Equal(t, ch.Token, got.Token)

	stored, err := store.GetChannel(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.googleapis.com/drive/v3/changes?pageToken=9", stored.ResourceURI)
	assert.True(t, exp.Equal(stored.Expiration))
	assert.Equal(t, testHook, stored.Address)
}

func TestWatchService_Upsert_CreatesUnknownChannel(t *testing.T) {
	service, store := newTestWatchService(newFakeDriveAPI())
	ctx := context.Background()

	_, err := service.Upsert(ctx, "acct", domain.ChannelNotification{ChannelID: "c-9", ResourceID: "r-9"})
	require.NoError(t, err)

	stored, err := store.GetChannel(ctx, "c-9")
	require.NoError(t, err)
	assert.Equal(t, "acct", stored.AccountID)
	assert.Equal(t, "r-9", stored.ResourceID)

	_, err = service.Upsert(ctx, "acct", domain.ChannelNotification{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
