package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/connectors/cloudflare"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorCloudflare,
		connectorOptions{
			loginKeys: []string{"api_token"},
			authCmds:  []*cobra.Command{newCloudflareVerifyCmd()},
		},
		newCloudflareZonesCmd(),
		newCloudflareDNSCmd(),
		newCloudflareCacheCmd(),
		newCloudflareSettingsCmd(),
		newCloudflareAccountsCmd(),
	))
}

func cloudflareClient(p domain.Profile) (*cloudflare.Client, error) {
	cfg := p.Config
	return cloudflare.New(cloudflare.Config{
		APIToken:  cfg.Get("api_token"),
		APIKey:    cfg.Get(domain.KeyAPIKey),
		Email:     cfg.Get("email"),
		AccountID: cfg.Get("account_id"),
		BaseURL:   cfg.Get(domain.KeyBaseURL),
	}, restOptions()...)
}

func cloudflareRun(fn func(cmd *cobra.Command, c *cloudflare.Client, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorCloudflare, cloudflareClient, fn)
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 0, "page number")
	cmd.Flags().Int("per-page", 0, "page size")
	cmd.Flags().Bool("all", false, "fetch every page")
}

func pageParams(cmd *cobra.Command) cloudflare.PageParams {
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	return cloudflare.PageParams{Page: page, PerPage: perPage}
}

// resolveZone accepts a zone ID or a zone name. Names are looked up.
func resolveZone(cmd *cobra.Command, c *cloudflare.Client, ref string) (string, error) {
	if !strings.Contains(ref, ".") {
		return ref, nil
	}
	zones, _, err := c.Zones.List(cmd.Context(), cloudflare.ZoneListParams{Name: ref})
	if err != nil {
		return "", err
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("zone %q: %w", ref, domain.ErrNotFound)
	}
	return zones[0].ID, nil
}

func newCloudflareVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the API token is valid",
		Args:  cobra.NoArgs,
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, _ []string) error {
			st, err := c.VerifyToken(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, st, nil)
		}),
	}
}

// --- zones ---

func zonesView(items []cloudflare.Zone) *view {
	v := newView("ID", "NAME", "STATUS", "PLAN TYPE", "ACCOUNT", "CREATED")
	for _, z := range items {
		status := z.Status
		if z.Paused {
			status += " (paused)"
		}
		v.add(z.ID, z.Name, status, z.Type, z.Account.Name, timeCell(z.CreatedOn))
	}
	return v
}

func newCloudflareZonesCmd() *cobra.Command {
	zonesCmd := &cobra.Command{
		Use:   "zones",
		Short: "Manage zones",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List zones",
		Args:  cobra.NoArgs,
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			status, _ := cmd.Flags().GetString("status")
			account, _ := cmd.Flags().GetString("account")
			params := cloudflare.ZoneListParams{
				PageParams: pageParams(cmd), Name: name, Status: status, AccountID: account,
			}
			if listAllFlag(cmd) {
				zones, err := c.Zones.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, zones, zonesView(zones))
			}
			zones, _, err := c.Zones.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, zones, zonesView(zones))
		}),
	}
	addPageFlags(listCmd)
	listCmd.Flags().String("name", "", "filter by domain name")
	listCmd.Flags().String("status", "", "filter by status: active, pending, initializing, moved")
	listCmd.Flags().String("account", "", "filter by account ID")

	getCmd := &cobra.Command{
		Use:   "get <zone>",
		Short: "Get a zone by ID or name",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			id, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			z, err := c.Zones.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd, z, zonesView([]cloudflare.Zone{*z}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create <domain>",
		Short: "Add a zone",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			account, _ := cmd.Flags().GetString("account")
			typ, _ := cmd.Flags().GetString("type")
			z, err := c.Zones.Create(cmd.Context(), cloudflare.ZoneCreateRequest{
				Name: args[0], Account: cloudflare.AccountRef{ID: account}, Type: typ,
			})
			if err != nil {
				return err
			}
			return render(cmd, z, zonesView([]cloudflare.Zone{*z}))
		}),
	}
	createCmd.Flags().String("account", "", "account ID (default: the profile's account_id)")
	createCmd.Flags().String("type", "", "full or partial")

	deleteCmd := &cobra.Command{
		Use:   "delete <zone>",
		Short: "Delete a zone",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			id, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			deleted, err := c.Zones.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd, map[string]string{"id": deleted}, nil)
		}),
	}

	zonesCmd.AddCommand(listCmd, getCmd, createCmd, deleteCmd)
	return zonesCmd
}

// --- dns ---

func dnsView(items []cloudflare.DNSRecord) *view {
	v := newView("ID", "TYPE", "NAME", "CONTENT", "TTL", "PROXIED")
	for _, r := range items {
		ttl := "auto"
		if r.TTL > 1 {
			ttl = fmt.Sprint(r.TTL)
		}
		proxied := ""
		if r.Proxied != nil {
			proxied = boolCell(*r.Proxied)
		}
		v.add(r.ID, r.Type, r.Name, r.Content, ttl, proxied)
	}
	return v
}

func newCloudflareDNSCmd() *cobra.Command {
	dnsCmd := &cobra.Command{
		Use:   "dns",
		Short: "Manage DNS records",
	}

	listCmd := &cobra.Command{
		Use:   "list <zone>",
		Short: "List DNS records",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			typ, _ := cmd.Flags().GetString("type")
			name, _ := cmd.Flags().GetString("name")
			content, _ := cmd.Flags().GetString("content")
			params := cloudflare.DNSListParams{PageParams: pageParams(cmd), Type: typ, Name: name, Content: content}
			var recs []cloudflare.DNSRecord
			if listAllFlag(cmd) {
				recs, err = c.DNS.ListAll(cmd.Context(), zone, params)
			} else {
				recs, _, err = c.DNS.List(cmd.Context(), zone, params)
			}
			if err != nil {
				return err
			}
			return render(cmd, recs, dnsView(recs))
		}),
	}
	addPageFlags(listCmd)
	listCmd.Flags().String("type", "", "record type, e.g. A or CNAME")
	listCmd.Flags().String("name", "", "exact record name")
	listCmd.Flags().String("content", "", "exact record content")

	getCmd := &cobra.Command{
		Use:   "get <zone> <record-id>",
		Short: "Get a DNS record",
		Args:  cobra.ExactArgs(2),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			rec, err := c.DNS.Get(cmd.Context(), zone, args[1])
			if err != nil {
				return err
			}
			return render(cmd, rec, dnsView([]cloudflare.DNSRecord{*rec}))
		}),
	}

	recordFromFlags := func(cmd *cobra.Command) cloudflare.DNSRecord {
		typ, _ := cmd.Flags().GetString("type")
		name, _ := cmd.Flags().GetString("name")
		content, _ := cmd.Flags().GetString("content")
		ttl, _ := cmd.Flags().GetInt("ttl")
		comment, _ := cmd.Flags().GetString("comment")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		rec := cloudflare.DNSRecord{
			Type: strings.ToUpper(typ), Name: name, Content: content, TTL: ttl,
			Proxied: optionalBool(cmd, "proxied"), Comment: comment, Tags: tags,
		}
		if cmd.Flags().Changed("priority") {
			p, _ := cmd.Flags().GetUint16("priority")
			rec.Priority = &p
		}
		return rec
	}
	addRecordFlags := func(cmd *cobra.Command) {
		cmd.Flags().String("type", "", "record type")
		cmd.Flags().String("name", "", "record name, e.g. www.example.com")
		cmd.Flags().String("content", "", "record content, e.g. an IP address")
		cmd.Flags().Int("ttl", 1, "TTL in seconds (1 means automatic)")
		cmd.Flags().Bool("proxied", false, "route through Cloudflare")
		cmd.Flags().Uint16("priority", 0, "MX/SRV priority")
		cmd.Flags().String("comment", "", "record comment")
		cmd.Flags().StringSlice("tag", nil, "record tags (name:value)")
	}

	createCmd := &cobra.Command{
		Use:   "create <zone>",
		Short: "Create a DNS record",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			rec := recordFromFlags(cmd)
			if rec.Type == "" || rec.Name == "" || rec.Content == "" {
				return fmt.Errorf("--type, --name and --content are required: %w", domain.ErrInvalidInput)
			}
			out, err := c.DNS.Create(cmd.Context(), zone, rec)
			if err != nil {
				return err
			}
			return render(cmd, out, dnsView([]cloudflare.DNSRecord{*out}))
		}),
	}
	addRecordFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <zone> <record-id>",
		Short: "Replace a DNS record",
		Args:  cobra.ExactArgs(2),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			out, err := c.DNS.Update(cmd.Context(), zone, args[1], recordFromFlags(cmd))
			if err != nil {
				return err
			}
			return render(cmd, out, dnsView([]cloudflare.DNSRecord{*out}))
		}),
	}
	addRecordFlags(updateCmd)

	patchCmd := &cobra.Command{
		Use:   "patch <zone> <record-id>",
		Short: "Change selected fields of a DNS record",
		Args:  cobra.ExactArgs(2),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			var patch cloudflare.DNSRecordPatch
			str := func(name string) *string {
				if !cmd.Flags().Changed(name) {
					return nil
				}
				v, _ := cmd.Flags().GetString(name)
				return &v
			}
			patch.Name = str("name")
			patch.Type = str("type")
			patch.Content = str("content")
			patch.Comment = str("comment")
			patch.Proxied = optionalBool(cmd, "proxied")
			if cmd.Flags().Changed("ttl") {
				ttl, _ := cmd.Flags().GetInt("ttl")
				patch.TTL = &ttl
			}
			patch.Tags, _ = cmd.Flags().GetStringSlice("tag")

			out, err := c.DNS.Patch(cmd.Context(), zone, args[1], patch)
			if err != nil {
				return err
			}
			return render(cmd, out, dnsView([]cloudflare.DNSRecord{*out}))
		}),
	}
	patchCmd.Flags().String("type", "", "record type")
	patchCmd.Flags().String("name", "", "record name")
	patchCmd.Flags().String("content", "", "record content")
	patchCmd.Flags().Int("ttl", 1, "TTL in seconds")
	patchCmd.Flags().Bool("proxied", false, "route through Cloudflare")
	patchCmd.Flags().String("comment", "", "record comment")
	patchCmd.Flags().StringSlice("tag", nil, "record tags")

	deleteCmd := &cobra.Command{
		Use:   "delete <zone> <record-id>",
		Short: "Delete a DNS record",
		Args:  cobra.ExactArgs(2),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			deleted, err := c.DNS.Delete(cmd.Context(), zone, args[1])
			if err != nil {
				return err
			}
			return render(cmd, map[string]string{"id": deleted}, nil)
		}),
	}

	dnsCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, patchCmd, deleteCmd)
	return dnsCmd
}

// --- cache ---

func newCloudflareCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Purge cached content",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge <zone>",
		Short: "Purge by URL, tag, host or prefix, or everything with --everything",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			everything, _ := cmd.Flags().GetBool("everything")
			files, _ := cmd.Flags().GetStringSlice("file")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			hosts, _ := cmd.Flags().GetStringSlice("host")
			prefixes, _ := cmd.Flags().GetStringSlice("prefix")

			var id string
			if everything {
				id, err = c.Cache.PurgeEverything(cmd.Context(), zone)
			} else {
				id, err = c.Cache.Purge(cmd.Context(), zone, cloudflare.PurgeRequest{
					Files: files, Tags: tags, Hosts: hosts, Prefixes: prefixes,
				})
			}
			if err != nil {
				return err
			}
			return render(cmd, map[string]string{"id": id}, nil)
		}),
	}
	purgeCmd.Flags().Bool("everything", false, "purge all cached content")
	purgeCmd.Flags().StringSlice("file", nil, "URLs to purge")
	purgeCmd.Flags().StringSlice("tag", nil, "cache tags to purge")
	purgeCmd.Flags().StringSlice("host", nil, "hostnames to purge")
	purgeCmd.Flags().StringSlice("prefix", nil, "URL prefixes to purge")
	purgeCmd.MarkFlagsMutuallyExclusive("everything", "file")
	purgeCmd.MarkFlagsMutuallyExclusive("everything", "tag")
	purgeCmd.MarkFlagsMutuallyExclusive("everything", "host")
	purgeCmd.MarkFlagsMutuallyExclusive("everything", "prefix")

	cacheCmd.AddCommand(purgeCmd)
	return cacheCmd
}

// --- zone settings ---

func zoneSettingsView(items []cloudflare.ZoneSetting) *view {
	v := newView("SETTING", "VALUE", "EDITABLE")
	for _, s := range items {
		v.add(s.ID, s.String(), boolCell(s.Editable))
	}
	sortRows(v)
	return v
}

func newCloudflareSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change zone settings",
	}

	listCmd := &cobra.Command{
		Use:   "list <zone>",
		Short: "List zone settings",
		Args:  cobra.ExactArgs(1),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			items, err := c.Settings.List(cmd.Context(), zone)
			if err != nil {
				return err
			}
			return render(cmd, items, zoneSettingsView(items))
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <zone> <setting>",
		Short: "Get a zone setting",
		Args:  cobra.ExactArgs(2),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			s, err := c.Settings.Get(cmd.Context(), zone, args[1])
			if err != nil {
				return err
			}
			return render(cmd, s, zoneSettingsView([]cloudflare.ZoneSetting{*s}))
		}),
	}

	editCmd := &cobra.Command{
		Use:   "edit <zone> <setting> <value>",
		Short: "Change a zone setting",
		Long: `Change a zone setting. The value is parsed as JSON when it looks like
JSON, otherwise it is sent as a string:
  connect cloudflare settings edit example.com ssl strict
  connect cloudflare settings edit example.com browser_cache_ttl 14400`,
		Args: cobra.ExactArgs(3),
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, args []string) error {
			zone, err := resolveZone(cmd, c, args[0])
			if err != nil {
				return err
			}
			s, err := c.Settings.Edit(cmd.Context(), zone, args[1], cloudflare.ParseSettingValue(args[2]))
			if err != nil {
				return err
			}
			return render(cmd, s, zoneSettingsView([]cloudflare.ZoneSetting{*s}))
		}),
	}

	settingsCmd.AddCommand(listCmd, getCmd, editCmd)
	return settingsCmd
}

// --- accounts ---

func newCloudflareAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts the credentials can access",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: cloudflareRun(func(cmd *cobra.Command, c *cloudflare.Client, _ []string) error {
			var (
				items []cloudflare.Account
				err   error
			)
			if listAllFlag(cmd) {
				items, err = c.Accounts.ListAll(cmd.Context())
			} else {
				items, _, err = c.Accounts.List(cmd.Context(), pageParams(cmd))
			}
			if err != nil {
				return err
			}
			v := newView("ID", "NAME", "TYPE", "CREATED")
			for _, a := range items {
				v.add(a.ID, a.Name, a.Type, timeCell(a.CreatedOn))
			}
			return render(cmd, items, v)
		}),
	}
	addPageFlags(listCmd)
	accountsCmd.AddCommand(listCmd)
	return accountsCmd
}
