package mixpanel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// MaxImportBatch is the largest number of events accepted per import call.
const MaxImportBatch = 2000

// Event is a Mixpanel event as imported and exported.
type Event struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// ImportResult is the response of /import.
type ImportResult struct {
	Code               int            `json:"code"`
	Status             string         `json:"status"`
	NumRecordsImported int            `json:"num_records_imported"`
	FailedRecords      []FailedRecord `json:"failed_records,omitempty"`
}

// FailedRecord describes an event rejected by strict import.
type FailedRecord struct {
	Index    int    `json:"index"`
	InsertID string `json:"$insert_id"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// ExportParams selects events to export.
type ExportParams struct {
	// FromDate and ToDate are inclusive, YYYY-MM-DD.
	FromDate string
	ToDate   string
	// Events restricts the export to these event names.
	Events []string
	// Where is a segmentation expression.
	Where string
	// Limit caps the number of events returned.
	Limit int
}

// EventsService handles event import and raw export.
type EventsService struct {
	c *Client
}

// Import sends events to /import with strict validation. Larger slices
// are split into batches of MaxImportBatch; results are summed.
func (s *EventsService) Import(ctx context.Context, events []Event) (*ImportResult, error) {
	total := &ImportResult{Code: http.StatusOK, Status: "OK"}
	for start := 0; start < len(events); start += MaxImportBatch {
		end := min(start+MaxImportBatch, len(events))

		q := s.c.projectQuery()
		q.Set("strict", "1")
		var res ImportResult
		resp, err := s.c.ingest.Do(ctx, rest.Request{
			Method: http.MethodPost,
			Path:   "/import",
			Query:  q,
			Body:   events[start:end],
		})
		if err != nil {
			return total, fmt.Errorf("import events %d-%d: %w", start, end-1, err)
		}
		if err := resp.Decode(&res); err != nil {
			return total, err
		}
		total.NumRecordsImported += res.NumRecordsImported
		for _, f := range res.FailedRecords {
			f.Index += start
			total.FailedRecords = append(total.FailedRecords, f)
		}
	}
	return total, nil
}

// Export downloads raw events. The endpoint streams newline-delimited JSON.
func (s *EventsService) Export(ctx context.Context, params ExportParams) ([]Event, error) {
	var out []Event
	err := s.ExportEach(ctx, params, func(e Event) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

// ExportEach downloads raw events and calls fn for each one in order.
// An error from fn stops the iteration and is returned.
func (s *EventsService) ExportEach(ctx context.Context, params ExportParams, fn func(Event) error) error {
	if params.FromDate == "" || params.ToDate == "" {
		return fmt.Errorf("mixpanel: export needs from and to dates")
	}
	q := s.c.projectQuery()
	q.Set("from_date", params.FromDate)
	q.Set("to_date", params.ToDate)
	if len(params.Events) > 0 {
		names, err := json.Marshal(params.Events)
		if err != nil {
			return err
		}
		q.Set("event", string(names))
	}
	q.Set("where", params.Where)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	resp, err := s.c.export.Do(ctx, rest.Request{Path: "/api/2.0/export", Query: q})
	if err != nil {
		return fmt.Errorf("export events: %w", err)
	}
	return decodeJSONL(resp.Body, fn)
}

// decodeJSONL decodes one Event per non-blank line.
func decodeJSONL(body []byte, fn func(Event) error) error {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return rest.NewDecodeError(&e, raw, fmt.Errorf("export line %d: %w", line, err))
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
