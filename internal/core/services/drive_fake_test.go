package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
)

// fakeDriveAPI implements driven.DriveAPI for testing.
type fakeDriveAPI struct {
	mu sync.Mutex

	files    map[string]*drive.File
	contents map[string]string
	dlErr    error

	startToken  string
	changePages map[string]*drive.ChangeList
	listedWith  []string

	watchResp  *drive.Channel
	watchErr   error
	watched    []driven.WatchRequest
	watchToken []string
	stopErr    error
	stopped    []string

	sharedDrives []*drive.Drive
	sharedErr    error
	sharedCalls  int
}

var _ driven.DriveAPI = (*fakeDriveAPI)(nil)

func newFakeDriveAPI() *fakeDriveAPI {
	return &fakeDriveAPI{
		files:       make(map[string]*drive.File),
		contents:    make(map[string]string),
		changePages: make(map[string]*drive.ChangeList),
		startToken:  "start-1",
	}
}

func (f *fakeDriveAPI) addFile(id, name, content string) {
	f.files[id] = &drive.File{Id: id, Name: name, MimeType: "text/plain"}
	f.contents[id] = content
}

func (f *fakeDriveAPI) ListFiles(_ context.Context, _, _ string, _ int, _ string) (*drive.FileList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := &drive.FileList{}
	for _, file := range f.files {
		list.Files = append(list.Files, file)
	}
	return list, nil
}

func (f *fakeDriveAPI) GetFile(_ context.Context, fileID string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}
	return file, nil
}

func (f *fakeDriveAPI) CreateFolder(_ context.Context, name string, parents ...string) (*drive.File, error) {
	return &drive.File{Id: "folder-" + name, Name: name, Parents: parents, MimeType: "application/vnd.google-apps.folder"}, nil
}

func (f *fakeDriveAPI) DownloadFile(_ context.Context, file *drive.File, w io.Writer) (int64, error) {
	f.mu.Lock()
	content, dlErr := f.contents[file.Id], f.dlErr
	f.mu.Unlock()
	if dlErr != nil {
		n, _ := io.WriteString(w, content[:len(content)/2])
		return int64(n), dlErr
	}
	n, err := io.WriteString(w, content)
	return int64(n), err
}

func (f *fakeDriveAPI) StartPageToken(_ context.Context) (string, error) {
	return f.startToken, nil
}

func (f *fakeDriveAPI) ListChanges(_ context.Context, pageToken string, _ int) (*drive.ChangeList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listedWith = append(f.listedWith, pageToken)
	page, ok := f.changePages[pageToken]
	if !ok {
		return &drive.ChangeList{}, nil
	}
	return page, nil
}

func (f *fakeDriveAPI) WatchChanges(_ context.Context, pageToken string, req driven.WatchRequest) (*drive.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.watched = append(f.watched, req)
	f.watchToken = append(f.watchToken, pageToken)
	if f.watchResp != nil {
		resp := *f.watchResp
		resp.Id = req.ChannelID
		return &resp, nil
	}
	return &drive.Channel{Id: req.ChannelID, ResourceId: "res-" + req.ChannelID, ResourceUri: "https://drive/changes"}, nil
}

func (f *fakeDriveAPI) StopChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, channelID)
	return f.stopErr
}

func (f *fakeDriveAPI) ListPermissions(_ context.Context, _ string) ([]*drive.Permission, error) {
	return nil, nil
}

func (f *fakeDriveAPI) CreatePermission(
	_ context.Context, _ string, perm *drive.Permission, _ bool,
) (*drive.Permission, error) {
	return perm, nil
}

func (f *fakeDriveAPI) UpdatePermission(_ context.Context, _, permissionID, role string) (*drive.Permission, error) {
	return &drive.Permission{Id: permissionID, Role: role}, nil
}

func (f *fakeDriveAPI) DeletePermission(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeDriveAPI) ListSharedDrives(_ context.Context) ([]*drive.Drive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sharedCalls++
	if f.sharedErr != nil {
		return nil, f.sharedErr
	}
	return f.sharedDrives, nil
}
