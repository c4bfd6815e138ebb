package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/connectors/mixpanel"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

const mixpanelDate = "2006-01-02"

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorMixpanel,
		connectorOptions{loginKeys: []string{"username", domain.KeyAPIKey, "project_id"}},
		newMixpanelEventsCmd(),
		newMixpanelQueryCmd(),
		newMixpanelProfilesCmd(),
		newMixpanelAnnotationsCmd(),
		newMixpanelCohortsCmd(),
	))
}

func mixpanelClient(p domain.Profile) (*mixpanel.Client, error) {
	cfg := p.Config
	region := cfg.Get("region")
	if region == "" && settingsService != nil {
		region = settingsService.String(services.KeyMixpanelRegion, "")
	}
	return mixpanel.New(mixpanel.Config{
		Username:     cfg.Get("username"),
		Secret:       cfg.Get(domain.KeyAPIKey),
		ProjectID:    cfg.Get("project_id"),
		Region:       region,
		ProjectToken: cfg.Get("project_token"),
	}, restOptions()...)
}

func mixpanelRun(fn func(cmd *cobra.Command, c *mixpanel.Client, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorMixpanel, mixpanelClient, fn)
}

// addDateFlags registers --from and --to. Both default to a window ending
// today.
func addDateFlags(cmd *cobra.Command, days int) {
	now := time.Now()
	cmd.Flags().String("from", now.AddDate(0, 0, -days).Format(mixpanelDate), "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", now.Format(mixpanelDate), "end date (YYYY-MM-DD)")
}

func dateRange(cmd *cobra.Command) (string, string, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	f, err := time.Parse(mixpanelDate, from)
	if err != nil {
		return "", "", fmt.Errorf("--from %q: %w", from, domain.ErrInvalidInput)
	}
	t, err := time.Parse(mixpanelDate, to)
	if err != nil {
		return "", "", fmt.Errorf("--to %q: %w", to, domain.ErrInvalidInput)
	}
	if t.Before(f) {
		return "", "", fmt.Errorf("--to is before --from: %w", domain.ErrInvalidInput)
	}
	return from, to, nil
}

// --- events ---

// readEvents accepts a JSON array or newline-delimited JSON.
func readEvents(r io.Reader) ([]mixpanel.Event, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, err
	}
	if first == '[' {
		var events []mixpanel.Event
		if err := json.NewDecoder(br).Decode(&events); err != nil {
			return nil, fmt.Errorf("decoding events: %v: %w", err, domain.ErrInvalidInput)
		}
		return events, nil
	}

	var events []mixpanel.Event
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e mixpanel.Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, domain.ErrInvalidInput)
		}
		events = append(events, e)
	}
	return events, sc.Err()
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}

func newMixpanelEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Import and export raw events",
	}

	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import events from a JSON array or JSONL file",
		Long: `Import events. Each event needs "event" and "properties" with time,
distinct_id and $insert_id:
  {"event":"Signup","properties":{"time":1700000000,"distinct_id":"u1","$insert_id":"a1"}}`,
		Args: cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			events, err := readEvents(in)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return fmt.Errorf("no events in input: %w", domain.ErrInvalidInput)
			}
			res, err := c.Events.Import(cmd.Context(), events)
			if err != nil {
				return err
			}
			v := newView("IMPORTED", "FAILED")
			v.add(strconv.Itoa(res.NumRecordsImported), strconv.Itoa(len(res.FailedRecords)))
			if err := render(cmd, res, v); err != nil {
				return err
			}
			if len(res.FailedRecords) > 0 {
				return fmt.Errorf("%d of %d events rejected", len(res.FailedRecords), len(events))
			}
			return nil
		}),
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export raw events as JSONL",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			names, _ := cmd.Flags().GetStringSlice("event")
			where, _ := cmd.Flags().GetString("where")
			limit, _ := cmd.Flags().GetInt("limit")
			output, _ := cmd.Flags().GetString("output")

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			bw := bufio.NewWriter(w)
			enc := json.NewEncoder(bw)
			enc.SetEscapeHTML(false)
			count := 0
			err = c.Events.ExportEach(cmd.Context(), mixpanel.ExportParams{
				FromDate: from, ToDate: to, Events: names, Where: where, Limit: limit,
			}, func(e mixpanel.Event) error {
				count++
				return enc.Encode(e)
			})
			if err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", count, output)
			}
			return nil
		}),
	}
	addDateFlags(exportCmd, 1)
	exportCmd.Flags().StringSlice("event", nil, "only these event names")
	exportCmd.Flags().String("where", "", "filter expression")
	exportCmd.Flags().Int("limit", 0, "maximum events")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	eventsCmd.AddCommand(importCmd, exportCmd)
	return eventsCmd
}

// --- query ---

// segmentationView lays out series as rows of (date, segment, value).
func segmentationView(res *mixpanel.SegmentationResult) *view {
	v := newView("DATE", "SEGMENT", "VALUE")
	segments := make([]string, 0, len(res.Data.Values))
	for s := range res.Data.Values {
		segments = append(segments, s)
	}
	sort.Strings(segments)
	for _, date := range res.Data.Series {
		for _, s := range segments {
			val, ok := res.Data.Values[s][date]
			if !ok {
				continue
			}
			v.add(date, s, strconv.FormatFloat(val, 'f', -1, 64))
		}
	}
	return v
}

func newMixpanelQueryCmd() *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run reports against the Query API",
	}

	segCmd := &cobra.Command{
		Use:   "segmentation <event>",
		Short: "Count an event over time, optionally segmented by a property",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			on, _ := cmd.Flags().GetString("on")
			where, _ := cmd.Flags().GetString("where")
			unit, _ := cmd.Flags().GetString("unit")
			typ, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			res, err := c.Query.Segmentation(cmd.Context(), mixpanel.SegmentationParams{
				Event: args[0], FromDate: from, ToDate: to, On: on, Where: where, Unit: unit, Type: typ, Limit: limit,
			})
			if err != nil {
				return err
			}
			return render(cmd, res, segmentationView(res))
		}),
	}
	addDateFlags(segCmd, 30)
	segCmd.Flags().String("on", "", `property expression to segment by, e.g. properties["$browser"]`)
	segCmd.Flags().String("where", "", "filter expression")
	segCmd.Flags().String("unit", mixpanel.UnitDay, "minute, hour, day, week or month")
	segCmd.Flags().String("type", "", "general, unique or average")
	segCmd.Flags().Int("limit", 0, "maximum segment values")

	funnelCmd := &cobra.Command{
		Use:   "funnel <funnel-id>",
		Short: "Run a saved funnel",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("funnel id %q: %w", args[0], domain.ErrInvalidInput)
			}
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			unit, _ := cmd.Flags().GetString("unit")
			on, _ := cmd.Flags().GetString("on")
			where, _ := cmd.Flags().GetString("where")
			res, err := c.Query.Funnel(cmd.Context(), mixpanel.FunnelParams{
				FunnelID: id, FromDate: from, ToDate: to, Unit: unit, On: on, Where: where,
			})
			if err != nil {
				return err
			}
			return render(cmd, res, nil)
		}),
	}
	addDateFlags(funnelCmd, 30)
	funnelCmd.Flags().String("unit", "", "day, week or month")
	funnelCmd.Flags().String("on", "", "property expression to segment by")
	funnelCmd.Flags().String("where", "", "filter expression")

	funnelsCmd := &cobra.Command{
		Use:   "funnels",
		Short: "List saved funnels",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			res, err := c.Query.ListFunnels(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, res, nil)
		}),
	}

	retentionCmd := &cobra.Command{
		Use:   "retention",
		Short: "Run a retention report",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			born, _ := cmd.Flags().GetString("born-event")
			event, _ := cmd.Flags().GetString("event")
			typ, _ := cmd.Flags().GetString("retention-type")
			unit, _ := cmd.Flags().GetString("unit")
			interval, _ := cmd.Flags().GetInt("interval")
			count, _ := cmd.Flags().GetInt("interval-count")
			where, _ := cmd.Flags().GetString("where")
			res, err := c.Query.Retention(cmd.Context(), mixpanel.RetentionParams{
				FromDate: from, ToDate: to, BornEvent: born, Event: event, RetentionType: typ,
				Unit: unit, Interval: interval, IntervalCount: count, Where: where,
			})
			if err != nil {
				return err
			}
			return render(cmd, res, nil)
		}),
	}
	addDateFlags(retentionCmd, 30)
	retentionCmd.Flags().String("born-event", "", "first event defining the cohort")
	retentionCmd.Flags().String("event", "", "return event")
	retentionCmd.Flags().String("retention-type", "", "birth or compounded")
	retentionCmd.Flags().String("unit", "", "day, week or month")
	retentionCmd.Flags().Int("interval", 0, "bucket size in units")
	retentionCmd.Flags().Int("interval-count", 0, "number of buckets")
	retentionCmd.Flags().String("where", "", "filter expression")

	insightsCmd := &cobra.Command{
		Use:   "insights <bookmark-id>",
		Short: "Fetch a saved Insights report",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bookmark id %q: %w", args[0], domain.ErrInvalidInput)
			}
			res, err := c.Query.Insights(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd, res, nil)
		}),
	}

	namesCmd := &cobra.Command{
		Use:   "event-names",
		Short: "List the most common event names",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			typ, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			names, err := c.Query.EventNames(cmd.Context(), typ, limit)
			if err != nil {
				return err
			}
			v := newView("EVENT")
			for _, n := range names {
				v.add(n)
			}
			return render(cmd, names, v)
		}),
	}
	namesCmd.Flags().String("type", "general", "general, unique or average")
	namesCmd.Flags().Int("limit", 255, "maximum names")

	topCmd := &cobra.Command{
		Use:   "top-events",
		Short: "Show today's top events",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			typ, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			top, err := c.Query.TopEvents(cmd.Context(), typ, limit)
			if err != nil {
				return err
			}
			v := newView("EVENT", "COUNT", "CHANGE")
			for _, e := range top {
				v.add(e.Event, strconv.FormatFloat(e.Amount, 'f', -1, 64),
					strconv.FormatFloat(e.PercentChange*100, 'f', 1, 64)+"%")
			}
			return render(cmd, top, v)
		}),
	}
	topCmd.Flags().String("type", "general", "general, unique or average")
	topCmd.Flags().Int("limit", 10, "maximum events")

	queryCmd.AddCommand(segCmd, funnelCmd, funnelsCmd, retentionCmd, insightsCmd, namesCmd, topCmd)
	return queryCmd
}

// --- profiles ---

func profilesView(items []mixpanel.Profile, props []string) *view {
	headers := append([]string{"DISTINCT ID"}, props...)
	v := newView(headers...)
	for _, p := range items {
		row := []string{p.DistinctID}
		for _, k := range props {
			row = append(row, cell(p.Properties[k]))
		}
		v.add(row...)
	}
	return v
}

func newMixpanelProfilesCmd() *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"engage"},
		Short:   "Query and update user profiles",
	}

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query user profiles",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			where, _ := cmd.Flags().GetString("where")
			props, _ := cmd.Flags().GetStringSlice("property")
			cohort, _ := cmd.Flags().GetInt("cohort")
			params := mixpanel.EngageParams{Where: where, OutputProperties: props, CohortID: cohort}
			cols := props
			if len(cols) == 0 {
				cols = []string{"$email", "$name", "$last_seen"}
			}
			if listAllFlag(cmd) {
				items, err := c.Engage.QueryAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, profilesView(items, cols))
			}
			session, _ := cmd.Flags().GetString("session")
			page, _ := cmd.Flags().GetInt("page")
			res, err := c.Engage.Query(cmd.Context(), params, session, page)
			if err != nil {
				return err
			}
			return render(cmd, res, profilesView(res.Results, cols))
		}),
	}
	queryCmd.Flags().String("where", "", `filter, e.g. properties["plan"] == "pro"`)
	queryCmd.Flags().StringSlice("property", nil, "properties to return")
	queryCmd.Flags().Int("cohort", 0, "restrict to a cohort ID")
	queryCmd.Flags().String("session", "", "session ID from a previous page")
	queryCmd.Flags().Int("page", 0, "page number")
	queryCmd.Flags().Bool("all", false, "fetch every page")

	setCmd := &cobra.Command{
		Use:   "set <distinct-id> <key=value>...",
		Short: "Set profile properties",
		Args:  cobra.MinimumNArgs(2),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			props, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			values := make(map[string]any, len(props))
			for k, v := range props {
				values[k] = parseScalar(v)
			}
			if err := c.Engage.Set(cmd.Context(), args[0], values); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s\n", args[0])
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <distinct-id>",
		Short: "Delete a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			if err := c.Engage.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
			return nil
		}),
	}

	profilesCmd.AddCommand(queryCmd, setCmd, deleteCmd)
	return profilesCmd
}

// parseScalar reads numbers and booleans as such and leaves other values
// as strings.
func parseScalar(s string) any {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

// --- annotations and cohorts ---

func newMixpanelAnnotationsCmd() *cobra.Command {
	annotationsCmd := &cobra.Command{
		Use:   "annotations",
		Short: "Manage chart annotations",
	}
	annotationsView := func(items []mixpanel.Annotation) *view {
		v := newView("ID", "DATE", "DESCRIPTION")
		for _, a := range items {
			v.add(strconv.Itoa(a.ID), a.Date, a.Description)
		}
		return v
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List annotations",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			items, err := c.Annotations.List(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return render(cmd, items, annotationsView(items))
		}),
	}
	addDateFlags(listCmd, 90)

	createCmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create an annotation",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if _, err := time.Parse("2006-01-02 15:04:05", date); err != nil {
				return fmt.Errorf("--date %q must be YYYY-MM-DD HH:MM:SS: %w", date, domain.ErrInvalidInput)
			}
			a, err := c.Annotations.Create(cmd.Context(), date, args[0])
			if err != nil {
				return err
			}
			return render(cmd, a, annotationsView([]mixpanel.Annotation{*a}))
		}),
	}
	createCmd.Flags().String("date", time.Now().UTC().Format("2006-01-02 15:04:05"), "annotation time (UTC)")

	deleteCmd := &cobra.Command{
		Use:   "delete <annotation-id>",
		Short: "Delete an annotation",
		Args:  cobra.ExactArgs(1),
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("annotation id %q: %w", args[0], domain.ErrInvalidInput)
			}
			if err := c.Annotations.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted annotation %d\n", id)
			return nil
		}),
	}

	annotationsCmd.AddCommand(listCmd, createCmd, deleteCmd)
	return annotationsCmd
}

func newMixpanelCohortsCmd() *cobra.Command {
	cohortsCmd := &cobra.Command{
		Use:   "cohorts",
		Short: "List saved cohorts",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cohorts",
		Args:  cobra.NoArgs,
		RunE: mixpanelRun(func(cmd *cobra.Command, c *mixpanel.Client, _ []string) error {
			items, err := c.Cohorts.List(cmd.Context())
			if err != nil {
				return err
			}
			v := newView("ID", "NAME", "COUNT", "CREATED")
			for _, co := range items {
				v.add(strconv.Itoa(co.ID), co.Name, strconv.Itoa(co.Count), co.Created)
			}
			return render(cmd, items, v)
		}),
	}
	cohortsCmd.AddCommand(listCmd)
	return cohortsCmd
}
