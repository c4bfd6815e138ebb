package metaads

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Video processing states reported in status.video_status.
const (
	VideoReady      = "ready"
	VideoProcessing = "processing"
	VideoError      = "error"
)

// WaitOptions bounds a video readiness wait.
type WaitOptions struct {
	// Interval between status polls.
	Interval time.Duration
	// Timeout is the wall-clock limit for the whole wait.
	Timeout time.Duration
}

var defaultPoll = WaitOptions{Interval: 5 * time.Second, Timeout: 10 * time.Minute}

// Image is an uploaded ad image.
type Image struct {
	Name string `json:"name,omitempty"`
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

// VideoStatus is the processing status of an uploaded video.
type VideoStatus struct {
	VideoStatus        string `json:"video_status"`
	ProcessingProgress int    `json:"processing_progress"`
}

// MediaService handles ad image and video uploads.
type MediaService struct {
	c    *Client
	poll WaitOptions
}

// UploadImage uploads image bytes to an account's image library and
// returns the image hash used by creatives.
func (s *MediaService) UploadImage(ctx context.Context, account, name string, data []byte) (*Image, error) {
	act, err := s.c.account(account)
	if err != nil {
		return nil, err
	}
	body := map[string]string{
		"bytes": base64.StdEncoding.EncodeToString(data),
		"name":  name,
	}
	var out struct {
		Images map[string]Image `json:"images"`
	}
	if err := s.c.post(ctx, "/"+act+"/adimages", body, &out); err != nil {
		return nil, fmt.Errorf("upload image %s: %w", name, err)
	}
	for key, img := range out.Images {
		if img.Name == "" {
			img.Name = key
		}
		return &img, nil
	}
	return nil, fmt.Errorf("upload image %s: response has no image", name)
}

// UploadVideo asks Meta to fetch a video from fileURL and returns the video ID.
// Processing continues asynchronously; see WaitForVideo.
func (s *MediaService) UploadVideo(ctx context.Context, account, fileURL, name string) (string, error) {
	act, err := s.c.account(account)
	if err != nil {
		return "", err
	}
	body := map[string]string{"file_url": fileURL}
	if name != "" {
		body["name"] = name
	}
	var out created
	if err := s.c.post(ctx, "/"+act+"/advideos", body, &out); err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	return out.ID, nil
}

// VideoStatus returns the processing status of a video.
func (s *MediaService) VideoStatus(ctx context.Context, videoID string) (*VideoStatus, error) {
	var out struct {
		Status VideoStatus `json:"status"`
	}
	q := url.Values{"fields": {"status"}}
	if err := s.c.get(ctx, "/"+url.PathEscape(videoID), q, &out); err != nil {
		return nil, fmt.Errorf("get video status %s: %w", videoID, err)
	}
	return &out.Status, nil
}

// WaitForVideo polls a video's status until it is ready. It returns
// ErrMediaFailed when processing reports an error and ErrMediaTimeout when
// opts.Timeout elapses first. Zero options use a 5s interval and a 10m timeout.
func (s *MediaService) WaitForVideo(ctx context.Context, videoID string, opts WaitOptions) (*VideoStatus, error) {
	if opts.Interval <= 0 {
		opts.Interval = s.poll.Interval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = s.poll.Timeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		st, err := s.VideoStatus(waitCtx, videoID)
		if err != nil {
			if timedOut(ctx, waitCtx) {
				return nil, fmt.Errorf("%w: video %s after %s", ErrMediaTimeout, videoID, opts.Timeout)
			}
			return nil, err
		}

		switch st.VideoStatus {
		case VideoReady:
			return st, nil
		case VideoError:
			return st, fmt.Errorf("%w: video %s", ErrMediaFailed, videoID)
		}
		logger.Debug("video %s: %s (%d%%)", videoID, st.VideoStatus, st.ProcessingProgress)

		select {
		case <-waitCtx.Done():
			if timedOut(ctx, waitCtx) {
				return st, fmt.Errorf("%w: video %s after %s", ErrMediaTimeout, videoID, opts.Timeout)
			}
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// timedOut reports whether waitCtx ended on its own deadline rather than
// because the parent was cancelled.
func timedOut(parent, waitCtx context.Context) bool {
	return parent.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded)
}
