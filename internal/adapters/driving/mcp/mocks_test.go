package mcp

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

// mockDriveAPI implements driven.DriveAPI for testing.
type mockDriveAPI struct {
	mu sync.Mutex

	files     []*drive.File
	nextToken string
	listErr   error
	listCalls []listCall

	startToken string
	startErr   error
	changes    map[string]*drive.ChangeList

	permissions []*drive.Permission
	permErr     error
	deleted     []string

	shared  []*drive.Drive
	stopped []string
}

type listCall struct {
	query, driveID string
	pageSize       int
	pageToken      string
}

var _ driven.DriveAPI = (*mockDriveAPI)(nil)

func newMockDriveAPI() *mockDriveAPI {
	return &mockDriveAPI{
		startToken: "start-1",
		changes:    make(map[string]*drive.ChangeList),
	}
}

func (m *mockDriveAPI) ListFiles(_ context.Context, query, driveID string, pageSize int, pageToken string) (*drive.FileList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, listCall{query, driveID, pageSize, pageToken})
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &drive.FileList{Files: m.files, NextPageToken: m.nextToken}, nil
}

func (m *mockDriveAPI) GetFile(_ context.Context, fileID string) (*drive.File, error) {
	for _, f := range m.files {
		if f.Id == fileID {
			return f, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockDriveAPI) CreateFolder(_ context.Context, name string, parents ...string) (*drive.File, error) {
	return &drive.File{
		Id:       "folder-1",
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  parents,
	}, nil
}

func (m *mockDriveAPI) DownloadFile(_ context.Context, _ *drive.File, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "content")
	return int64(n), err
}

func (m *mockDriveAPI) StartPageToken(_ context.Context) (string, error) {
	return m.startToken, m.startErr
}

func (m *mockDriveAPI) ListChanges(_ context.Context, pageToken string, _ int) (*drive.ChangeList, error) {
	if page, ok := m.changes[pageToken]; ok {
		return page, nil
	}
	return &drive.ChangeList{NewStartPageToken: pageToken}, nil
}

func (m *mockDriveAPI) WatchChanges(_ context.Context, _ string, req driven.WatchRequest) (*drive.Channel, error) {
	return &drive.Channel{Id: req.ChannelID, ResourceId: "res-" + req.ChannelID}, nil
}

func (m *mockDriveAPI) StopChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = append(m.stopped, channelID)
	return nil
}

func (m *mockDriveAPI) ListPermissions(_ context.Context, _ string) ([]*drive.Permission, error) {
	return m.permissions, m.permErr
}

func (m *mockDriveAPI) CreatePermission(
	_ context.Context, _ string, perm *drive.Permission, _ bool,
) (*drive.Permission, error) {
	if m.permErr != nil {
		return nil, m.permErr
	}
	created := *perm
	created.Id = "perm-new"
	return &created, nil
}

func (m *mockDriveAPI) UpdatePermission(_ context.Context, _, permissionID, role string) (*drive.Permission, error) {
	if m.permErr != nil {
		return nil, m.permErr
	}
	return &drive.Permission{Id: permissionID, Role: role, Type: "user"}, nil
}

func (m *mockDriveAPI) DeletePermission(_ context.Context, _, permissionID string) error {
	if m.permErr != nil {
		return m.permErr
	}
	m.deleted = append(m.deleted, permissionID)
	return nil
}

func (m *mockDriveAPI) ListSharedDrives(_ context.Context) ([]*drive.Drive, error) {
	return m.shared, nil
}

// mockHealth implements HealthChecker for testing.
type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(_ context.Context) error {
	return m.err
}

// testEnv wires real services over an in-memory state store.
type testEnv struct {
	api   *mockDriveAPI
	store *memory.DriveStateStore
	ports *Ports
}

func newTestEnv() *testEnv {
	api := newMockDriveAPI()
	store := memory.NewDriveStateStore()
	return &testEnv{
		api:   api,
		store: store,
		ports: &Ports{
			Drive:     api,
			Sync:      services.NewDriveSyncService(api, store),
			Watch:     services.NewWatchService(api, store, store),
			Downloads: services.NewDownloadService(api, store),
			Catalog:   services.NewDriveCatalogService(api, store),
			Health:    store,
			AccountID: "work",
		},
	}
}
