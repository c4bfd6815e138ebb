package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/connectors/metaads"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorMetaAds,
		connectorOptions{
			loginKeys: []string{domain.KeyAccessToken, "ad_account_id"},
			authCmds:  []*cobra.Command{newMetaExchangeCmd()},
		},
		newMetaObjectCmd("campaigns", "Manage campaigns",
			func(c *metaads.Client) *metaads.ObjectService[metaads.Campaign] { return c.Campaigns },
			campaignsView),
		newMetaObjectCmd("adsets", "Manage ad sets",
			func(c *metaads.Client) *metaads.ObjectService[metaads.AdSet] { return c.AdSets },
			adSetsView),
		newMetaObjectCmd("ads", "Manage ads",
			func(c *metaads.Client) *metaads.ObjectService[metaads.Ad] { return c.Ads },
			adsView),
		newMetaCreativesCmd(),
		newMetaInsightsCmd(),
		newMetaAccountsCmd(),
		newMetaMediaCmd(),
	))
}

func metaClient(p domain.Profile) (*metaads.Client, error) {
	cfg := p.Config
	token := cfg.Get(domain.KeyAccessToken)
	if token == "" && p.Tokens != nil {
		token = p.Tokens.AccessToken
	}
	version := cfg.Get("api_version")
	if version == "" && settingsService != nil {
		version = settingsService.String(services.KeyMetaAPIVersion, "")
	}
	return metaads.New(metaads.Config{
		AccessToken:  token,
		AccountID:    cfg.Get("ad_account_id"),
		Version:      version,
		BaseURL:      cfg.Get(domain.KeyBaseURL),
		ClientID:     cfg.Get(domain.KeyClientID),
		ClientSecret: cfg.Get(domain.KeyClientSecret),
	}, restOptions()...)
}

func metaRun(fn func(cmd *cobra.Command, c *metaads.Client, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorMetaAds, metaClient, fn)
}

func campaignsView(items []metaads.Campaign) *view {
	v := newView("ID", "NAME", "OBJECTIVE", "STATUS", "DAILY BUDGET")
	for _, c := range items {
		v.add(c.ID, c.Name, c.Objective, c.EffectiveStatus, c.DailyBudget)
	}
	return v
}

func adSetsView(items []metaads.AdSet) *view {
	v := newView("ID", "NAME", "CAMPAIGN", "STATUS", "OPTIMIZATION")
	for _, a := range items {
		v.add(a.ID, a.Name, a.CampaignID, a.EffectiveStatus, a.OptimizationGoal)
	}
	return v
}

func adsView(items []metaads.Ad) *view {
	v := newView("ID", "NAME", "AD SET", "STATUS", "CREATIVE")
	for _, a := range items {
		creative := ""
		if a.Creative != nil {
			creative = a.Creative.ID
		}
		v.add(a.ID, a.Name, a.AdSetID, a.EffectiveStatus, creative)
	}
	return v
}

// addListFlags registers the shared Graph API listing flags.
func addListFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "ad account ID (default: the profile's ad_account_id)")
	cmd.Flags().StringSlice("fields", nil, "fields to return")
	cmd.Flags().StringSlice("status", nil, "effective status filter, e.g. ACTIVE,PAUSED")
	cmd.Flags().Int("limit", 0, "page size")
	cmd.Flags().String("after", "", "pagination cursor")
	cmd.Flags().Bool("all", false, "follow pagination to the end")
}

func listParams(cmd *cobra.Command) metaads.ListParams {
	fields, _ := cmd.Flags().GetStringSlice("fields")
	status, _ := cmd.Flags().GetStringSlice("status")
	limit, _ := cmd.Flags().GetInt("limit")
	after, _ := cmd.Flags().GetString("after")
	return metaads.ListParams{Fields: fields, EffectiveStatus: status, Limit: limit, After: after}
}

// objectParams merges --param assignments over a --json body.
func objectParams(cmd *cobra.Command) (map[string]any, error) {
	params := make(map[string]any)
	if body, _ := cmd.Flags().GetString("json"); body != "" {
		if err := decodeJSONArg(body, &params); err != nil {
			return nil, err
		}
	}
	pairs, _ := cmd.Flags().GetStringArray("param")
	assignments, err := parseAssignments(pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range assignments {
		params[k] = v
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters given (use --param or --json): %w", domain.ErrInvalidInput)
	}
	return params, nil
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("param", nil, "field assignment name=value (repeatable)")
	cmd.Flags().String("json", "", "fields as a JSON object or @file")
}

// newMetaObjectCmd builds list/get/create/update/delete and status commands
// for campaigns, ad sets or ads.
func newMetaObjectCmd[T any](
	use, short string,
	service func(*metaads.Client) *metaads.ObjectService[T],
	rows func([]T) *view,
) *cobra.Command {
	objCmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List " + use + " of an ad account",
		Args:  cobra.NoArgs,
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, _ []string) error {
			account, _ := cmd.Flags().GetString("account")
			if all, _ := cmd.Flags().GetBool("all"); all {
				items, err := service(c).ListAll(cmd.Context(), account, listParams(cmd))
				if err != nil {
					return err
				}
				return render(cmd, items, rows(items))
			}
			list, err := service(c).List(cmd.Context(), account, listParams(cmd))
			if err != nil {
				return err
			}
			return render(cmd, list, rows(list.Data))
		}),
	}
	addListFlags(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get one object",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			fields, _ := cmd.Flags().GetStringSlice("fields")
			item, err := service(c).Get(cmd.Context(), args[0], fields...)
			if err != nil {
				return err
			}
			return render(cmd, item, rows([]T{*item}))
		}),
	}
	getCmd.Flags().StringSlice("fields", nil, "fields to return")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an object in an ad account",
		Long: `Create an object from --param assignments or a --json body. New objects
are created PAUSED unless a status is given.

Example:
  connect metaads campaigns create --param name=Spring --param objective=OUTCOME_TRAFFIC \
    --param special_ad_categories='[]'`,
		Args: cobra.NoArgs,
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, _ []string) error {
			account, _ := cmd.Flags().GetString("account")
			params, err := objectParams(cmd)
			if err != nil {
				return err
			}
			id, err := service(c).Create(cmd.Context(), account, params)
			if err != nil {
				return err
			}
			return render(cmd, map[string]string{"id": id}, nil)
		}),
	}
	createCmd.Flags().String("account", "", "ad account ID (default: the profile's ad_account_id)")
	addParamFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of an object",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			params, err := objectParams(cmd)
			if err != nil {
				return err
			}
			if err := service(c).Update(cmd.Context(), args[0], params); err != nil {
				return err
			}
			cmd.Printf("Updated %s\n", args[0])
			return nil
		}),
	}
	addParamFlags(updateCmd)

	objCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd)

	actions := []struct {
		use, short string
		run        func(s *metaads.ObjectService[T], cmd *cobra.Command, id string) error
		done       string
	}{
		{"delete", "Delete an object", func(s *metaads.ObjectService[T], cmd *cobra.Command, id string) error {
			return s.Delete(cmd.Context(), id)
		}, "Deleted"},
		{"pause", "Pause an object", func(s *metaads.ObjectService[T], cmd *cobra.Command, id string) error {
			return s.Pause(cmd.Context(), id)
		}, "Paused"},
		{"activate", "Activate an object", func(s *metaads.ObjectService[T], cmd *cobra.Command, id string) error {
			return s.Activate(cmd.Context(), id)
		}, "Activated"},
		{"archive", "Archive an object", func(s *metaads.ObjectService[T], cmd *cobra.Command, id string) error {
			return s.Archive(cmd.Context(), id)
		}, "Archived"},
	}
	for _, a := range actions {
		objCmd.AddCommand(&cobra.Command{
			Use:   a.use + " <id>",
			Short: a.short,
			Args:  cobra.ExactArgs(1),
			RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
				if err := a.run(service(c), cmd, args[0]); err != nil {
					return err
				}
				cmd.Printf("%s %s\n", a.done, args[0])
				return nil
			}),
		})
	}
	return objCmd
}

func newMetaCreativesCmd() *cobra.Command {
	creativesCmd := &cobra.Command{
		Use:   "creatives",
		Short: "Manage ad creatives",
	}
	creativesView := func(items []metaads.Creative) *view {
		v := newView("ID", "NAME", "TITLE", "STATUS", "IMAGE HASH")
		for _, cr := range items {
			v.add(cr.ID, cr.Name, cr.Title, cr.Status, cr.ImageHash)
		}
		return v
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List creatives of an ad account",
		Args:  cobra.NoArgs,
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, _ []string) error {
			account, _ := cmd.Flags().GetString("account")
			list, err := c.Creatives.List(cmd.Context(), account, listParams(cmd))
			if err != nil {
				return err
			}
			return render(cmd, list, creativesView(list.Data))
		}),
	}
	addListFlags(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a creative",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			cr, err := c.Creatives.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, cr, creativesView([]metaads.Creative{*cr}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a creative",
		Args:  cobra.NoArgs,
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, _ []string) error {
			account, _ := cmd.Flags().GetString("account")
			params, err := objectParams(cmd)
			if err != nil {
				return err
			}
			id, err := c.Creatives.Create(cmd.Context(), account, params)
			if err != nil {
				return err
			}
			return render(cmd, map[string]string{"id": id}, nil)
		}),
	}
	createCmd.Flags().String("account", "", "ad account ID (default: the profile's ad_account_id)")
	addParamFlags(createCmd)

	creativesCmd.AddCommand(listCmd, getCmd, createCmd)
	return creativesCmd
}

func newMetaInsightsCmd() *cobra.Command {
	insightsCmd := &cobra.Command{
		Use:   "insights [object-id]",
		Short: "Report performance metrics",
		Long: `Report metrics for a campaign, ad set, ad or (without an ID) the
profile's ad account.

Examples:
  connect metaads insights --level campaign --date-preset last_7d
  connect metaads insights <campaign-id> --since 2024-01-01 --until 2024-01-31 --increment 1`,
		Args: cobra.MaximumNArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			fields, _ := cmd.Flags().GetStringSlice("fields")
			preset, _ := cmd.Flags().GetString("date-preset")
			since, _ := cmd.Flags().GetString("since")
			until, _ := cmd.Flags().GetString("until")
			increment, _ := cmd.Flags().GetString("increment")
			breakdowns, _ := cmd.Flags().GetStringSlice("breakdown")
			limit, _ := cmd.Flags().GetInt("limit")
			all, _ := cmd.Flags().GetBool("all")
			account, _ := cmd.Flags().GetString("account")

			params := metaads.InsightsParams{
				Level:         level,
				Fields:        fields,
				DatePreset:    preset,
				TimeIncrement: increment,
				Breakdowns:    breakdowns,
				Limit:         limit,
			}
			if since != "" || until != "" {
				params.TimeRange = &metaads.TimeRange{Since: since, Until: until}
			}

			var rows []metaads.Insight
			var data any
			switch {
			case len(args) == 1 && all:
				items, err := c.Insights.All(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				rows, data = items, items
			case len(args) == 1:
				list, err := c.Insights.Get(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				rows, data = list.Data, list
			default:
				list, err := c.Insights.ForAccount(cmd.Context(), account, params)
				if err != nil {
					return err
				}
				rows, data = list.Data, list
			}

			v := newView("DATE", "CAMPAIGN", "IMPRESSIONS", "CLICKS", "SPEND", "CTR", "CPC")
			for _, in := range rows {
				v.add(in.DateStart, in.CampaignName, in.Impressions, in.Clicks, in.Spend, in.CTR, in.CPC)
			}
			return render(cmd, data, v)
		}),
	}
	insightsCmd.Flags().String("account", "", "ad account ID when no object ID is given")
	insightsCmd.Flags().String("level", "", "aggregation level: account, campaign, adset or ad")
	insightsCmd.Flags().StringSlice("fields", nil, "metrics to return")
	insightsCmd.Flags().String("date-preset", "", "date preset such as last_7d or this_month")
	insightsCmd.Flags().String("since", "", "range start YYYY-MM-DD")
	insightsCmd.Flags().String("until", "", "range end YYYY-MM-DD")
	insightsCmd.Flags().String("increment", "", "time increment in days, monthly or all_days")
	insightsCmd.Flags().StringSlice("breakdown", nil, "breakdowns such as age,gender")
	insightsCmd.Flags().Int("limit", 0, "page size")
	insightsCmd.Flags().Bool("all", false, "follow pagination to the end")
	return insightsCmd
}

func newMetaAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List ad accounts the token can access",
	}
	accountsView := func(items []metaads.AdAccount) *view {
		v := newView("ID", "NAME", "STATUS", "CURRENCY", "TIMEZONE", "SPENT")
		for _, a := range items {
			v.add(a.ID, a.Name, strconv.Itoa(a.AccountStatus), a.Currency, a.TimezoneName, a.AmountSpent)
		}
		return v
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ad accounts",
		Args:  cobra.NoArgs,
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, _ []string) error {
			items, err := c.Accounts.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, items, accountsView(items))
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get [account-id]",
		Short: "Get an ad account (default: the profile's)",
		Args:  cobra.MaximumNArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			a, err := c.Accounts.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd, a, accountsView([]metaads.AdAccount{*a}))
		}),
	}

	accountsCmd.AddCommand(listCmd, getCmd)
	return accountsCmd
}

func newMetaMediaCmd() *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Upload ad images and videos",
	}

	imageCmd := &cobra.Command{
		Use:   "upload-image <file>",
		Short: "Upload an image and print its hash",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			account, _ := cmd.Flags().GetString("account")
			name, _ := cmd.Flags().GetString("name")
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			img, err := c.Media.UploadImage(cmd.Context(), account, name, data)
			if err != nil {
				return err
			}
			return render(cmd, img, nil)
		}),
	}
	imageCmd.Flags().String("account", "", "ad account ID")
	imageCmd.Flags().String("name", "", "image name (default: file name)")

	videoCmd := &cobra.Command{
		Use:   "upload-video <url>",
		Short: "Upload a video from a public URL",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			account, _ := cmd.Flags().GetString("account")
			name, _ := cmd.Flags().GetString("name")
			wait, _ := cmd.Flags().GetBool("wait")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			id, err := c.Media.UploadVideo(cmd.Context(), account, args[0], name)
			if err != nil {
				return err
			}
			if !wait {
				return render(cmd, map[string]string{"id": id}, nil)
			}
			cmd.PrintErrf("Uploaded video %s, waiting for processing...\n", id)
			status, err := c.Media.WaitForVideo(cmd.Context(), id, metaads.WaitOptions{Interval: 5 * time.Second, Timeout: timeout})
			if err != nil {
				return err
			}
			return render(cmd, map[string]any{"id": id, "status": status}, nil)
		}),
	}
	videoCmd.Flags().String("account", "", "ad account ID")
	videoCmd.Flags().String("name", "", "video title")
	videoCmd.Flags().Bool("wait", false, "wait until processing finishes")
	videoCmd.Flags().Duration("timeout", 10*time.Minute, "maximum wait")

	statusCmd := &cobra.Command{
		Use:   "video-status <video-id>",
		Short: "Show the processing status of a video",
		Args:  cobra.ExactArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			st, err := c.Media.VideoStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, st, nil)
		}),
	}

	mediaCmd.AddCommand(imageCmd, videoCmd, statusCmd)
	return mediaCmd
}

// newMetaExchangeCmd swaps the profile's short-lived user token for a
// long-lived one and stores it.
func newMetaExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange [short-lived-token]",
		Short: "Exchange a short-lived token for a long-lived one",
		Long: `Exchange a short-lived user token for a long-lived (about 60 day) token
using the app credentials in client_id and client_secret. Without an
argument the profile's current access_token is exchanged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: metaRun(func(cmd *cobra.Command, c *metaads.Client, args []string) error {
			short := ""
			if len(args) == 1 {
				short = strings.TrimSpace(args[0])
			}
			tokens, err := c.ExchangeToken(cmd.Context(), short)
			if err != nil {
				return err
			}

			p, err := profileService.Ensure(services.ConnectorMetaAds, profileFlag)
			if err != nil {
				return err
			}
			if err := profileStore.SaveTokens(services.ConnectorMetaAds, p.Name, tokens); err != nil {
				return fmt.Errorf("saving tokens: %w", err)
			}
			if err := profileService.SetConfig(services.ConnectorMetaAds, p.Name, domain.KeyAccessToken, tokens.AccessToken); err != nil {
				return err
			}

			if tokens.Expiry.IsZero() {
				cmd.Printf("Stored long-lived token in profile %q\n", p.Name)
			} else {
				cmd.Printf("Stored long-lived token in profile %q (expires %s)\n", p.Name, tokens.Expiry.Format(time.RFC3339))
			}
			return nil
		}),
	}
}
