package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
	ExportMimePDF  = "application/pdf"
)

// DefaultFileFields is the field mask used when a listing names none.
const DefaultFileFields = "files(id,name,mimeType,modifiedTime,ownedByMe,parents,size,webViewLink,iconLink),nextPageToken"

// Corpora values for file listings.
const (
	CorporaUser      = "user"
	CorporaDrive     = "drive"
	CorporaAllDrives = "allDrives"
)

// ListFilesParams filters a file listing.
type ListFilesParams struct {
	// Query is a Drive search expression, e.g. "name contains 'report'".
	Query string
	// PageSize is clamped to 1..1000; zero means 100.
	PageSize int
	// Fields lists file fields; empty uses DefaultFileFields.
	Fields []string
	// ExcludeFolders filters folders out of the listing.
	ExcludeFolders bool
	// Corpora is user, drive or allDrives. DriveID implies drive.
	Corpora string
	DriveID string
	// MyDriveOnly turns off items from shared drives.
	MyDriveOnly bool
	// OrderBy is a sort key list such as "modifiedTime desc".
	OrderBy string
}

func (p ListFilesParams) query(pageToken string) url.Values {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(clampPageSize(p.PageSize, 100, 1000)))
	q.Set("pageToken", pageToken)
	q.Set("orderBy", p.OrderBy)

	expr := p.Query
	if p.ExcludeFolders {
		notFolder := "mimeType != '" + MimeTypeFolder + "'"
		if expr != "" {
			expr = notFolder + " and " + expr
		} else {
			expr = notFolder
		}
	}
	q.Set("q", expr)

	if len(p.Fields) > 0 {
		q.Set("fields", "files("+strings.Join(p.Fields, ",")+"),nextPageToken")
	} else {
		q.Set("fields", DefaultFileFields)
	}

	corpora := p.Corpora
	if p.DriveID != "" && corpora == "" {
		corpora = CorporaDrive
	}
	q.Set("corpora", corpora)
	q.Set("driveId", p.DriveID)

	shared := corpora == CorporaDrive || corpora == CorporaAllDrives || p.DriveID != "" || !p.MyDriveOnly
	q.Set("supportsAllDrives", strconv.FormatBool(shared))
	q.Set("includeItemsFromAllDrives", strconv.FormatBool(shared))
	return q
}

// FolderQuery returns the search expression for the untrashed children of a folder.
func FolderQuery(folderID string) string {
	return "'" + strings.ReplaceAll(folderID, "'", `\'`) + "' in parents and trashed = false"
}

// FilesService handles file endpoints.
type FilesService struct {
	c *Client
}

// List returns one page of files.
func (s *FilesService) List(ctx context.Context, params ListFilesParams, pageToken string) (*drive.FileList, error) {
	var out drive.FileList
	if err := s.c.rest.Get(ctx, "/files", params.query(pageToken), &out); err != nil {
		return nil, fmt.Errorf("list files: %w", google.WrapError(err))
	}
	return &out, nil
}

// ListAll returns every file matching params.
func (s *FilesService) ListAll(ctx context.Context, params ListFilesParams) ([]*drive.File, error) {
	return rest.CollectAll(ctx, func(ctx context.Context, cursor string) (rest.Page[*drive.File], error) {
		page, err := s.List(ctx, params, cursor)
		if err != nil {
			return rest.Page[*drive.File]{}, err
		}
		return rest.Page[*drive.File]{Items: page.Files, Next: page.NextPageToken}, nil
	})
}

// ListFolder returns every untrashed child of a folder.
func (s *FilesService) ListFolder(ctx context.Context, folderID string, pageSize int) ([]*drive.File, error) {
	return s.ListAll(ctx, ListFilesParams{Query: FolderQuery(folderID), PageSize: pageSize})
}

// Get returns file metadata. Empty fields use the server default.
func (s *FilesService) Get(ctx context.Context, fileID string, fields ...string) (*drive.File, error) {
	q := allDrivesQuery()
	q.Set("fields", strings.Join(fields, ","))
	var out drive.File
	if err := s.c.rest.Get(ctx, path("files", fileID), q, &out); err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, google.WrapError(err))
	}
	return &out, nil
}

// CreateFolder creates a folder under parents (the root when empty).
func (s *FilesService) CreateFolder(ctx context.Context, name string, parents ...string) (*drive.File, error) {
	if name == "" {
		return nil, fmt.Errorf("googledrive: folder name is required")
	}
	body := &drive.File{Name: name, MimeType: MimeTypeFolder, Parents: parents}
	var out drive.File
	resp, err := s.c.rest.Do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/files",
		Query:  allDrivesQuery(),
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, google.WrapError(err))
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload creates a file with content in one multipart/related request.
func (s *FilesService) Upload(
	ctx context.Context, name, mimeType string, content io.Reader, parents ...string,
) (*drive.File, error) {
	if name == "" {
		return nil, fmt.Errorf("googledrive: file name is required")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	body, contentType, err := multipartBody(&drive.File{Name: name, Parents: parents}, mimeType, content)
	if err != nil {
		return nil, err
	}

	q := allDrivesQuery()
	q.Set("uploadType", "multipart")
	var out drive.File
	resp, err := s.c.upload.Do(ctx, rest.Request{
		Method:      http.MethodPost,
		Path:        "/files",
		Query:       q,
		Body:        body,
		Encoding:    rest.EncodingRaw,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, google.WrapError(err))
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// multipartBody builds the metadata and media parts of a multipart upload.
func multipartBody(meta *drive.File, mimeType string, content io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", err
	}
	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", err
	}

	part, err = w.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + w.Boundary(), nil
}

// Download writes the content of a binary file to w and returns the
// number of bytes written. Google Workspace files need Export.
func (s *FilesService) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	q := allDrivesQuery()
	q.Set("alt", "media")
	resp, err := s.c.rest.Do(ctx, rest.Request{
		Path:   path("files", fileID),
		Query:  q,
		Header: http.Header{"Accept": {"application/octet-stream"}},
	})
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", fileID, google.WrapError(err))
	}
	return io.Copy(w, bytes.NewReader(resp.Body))
}

// Export converts a Google Workspace file to mimeType and writes it to w.
func (s *FilesService) Export(ctx context.Context, fileID, mimeType string, w io.Writer) (int64, error) {
	resp, err := s.c.rest.Do(ctx, rest.Request{
		Path:  path("files", fileID, "export"),
		Query: url.Values{"mimeType": {mimeType}},
	})
	if err != nil {
		return 0, fmt.Errorf("export %s as %s: %w", fileID, mimeType, google.WrapError(err))
	}
	return io.Copy(w, bytes.NewReader(resp.Body))
}

// ExportMimeType returns the export format for a Google Workspace MIME
// type, or "" for files that download as is.
func ExportMimeType(mimeType string) string {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return ExportMimeText
	case MimeTypeGoogleSheet:
		return ExportMimeCSV
	default:
		if strings.HasPrefix(mimeType, "application/vnd.google-apps.") {
			return ExportMimePDF
		}
		return ""
	}
}

// Delete permanently deletes a file, skipping the trash.
func (s *FilesService) Delete(ctx context.Context, fileID string) error {
	if err := s.c.rest.Delete(ctx, path("files", fileID), allDrivesQuery(), nil); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, google.WrapError(err))
	}
	return nil
}
