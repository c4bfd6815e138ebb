package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	drivev3 "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/auth"
	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/connect-cli/internal/adapters/driving/mcp"
	"github.com/custodia-labs/connect-cli/internal/adapters/driving/oauth"
	"github.com/custodia-labs/connect-cli/internal/connectors/google"
	"github.com/custodia-labs/connect-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorGoogleDrive,
		connectorOptions{
			login:      driveLogin,
			loginFlags: driveLoginFlags,
		},
		newDriveFilesCmd(),
		newDriveChangesCmd(),
		newDriveWatchCmd(),
		newDrivePermissionsCmd(),
		newDriveDrivesCmd(),
		newDriveDownloadsCmd(),
		newDriveMCPCmd(),
	))
}

// driveEnv bundles the Drive client with the profile's state database.
// The database is opened on first use.
type driveEnv struct {
	client  *drive.Client
	profile domain.Profile
	store   *sqlite.Store
}

// account keys checkpoints, channels and audits. It is the profile name.
func (e *driveEnv) account() string {
	return e.profile.Name
}

func (e *driveEnv) state() (*sqlite.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	s, err := sqlite.NewStore(e.profile.Config.Get("state_db"))
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	e.store = s
	return s, nil
}

func (e *driveEnv) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			logger.Warn("closing state database: %v", err)
		}
	}
}

func newDriveEnv(p domain.Profile) (*driveEnv, error) {
	cfg := p.Config
	token := cfg.Get(domain.KeyAccessToken)
	if token == "" && p.Tokens != nil {
		token = p.Tokens.AccessToken
	}

	var refresher rest.Refresher
	if path := cfg.Get(domain.KeyServiceAccountKey); path != "" {
		sa, err := google.LoadServiceAccount(path, cfg.Get(domain.KeyServiceAccountSubject))
		if err != nil {
			return nil, err
		}
		logger.Debug("using service account %s", sa.Email())
		token, refresher = "", sa
	} else if id := cfg.Get(domain.KeyClientID); id != "" {
		r := auth.NewOAuthRefresher(google.OAuthConfig(id, cfg.Get(domain.KeyClientSecret), ""), profileStore,
			services.ConnectorGoogleDrive, p.Name, cfg.Get(domain.KeyRefreshToken))
		if r.CanRefresh() {
			refresher = r
		}
	}

	client, err := drive.New(drive.Config{
		AccessToken: token,
		Refresher:   refresher,
		BaseURL:     cfg.Get(domain.KeyBaseURL),
	}, restOptions()...)
	if err != nil {
		return nil, err
	}
	return &driveEnv{client: client, profile: p}, nil
}

func driveRun(fn func(cmd *cobra.Command, env *driveEnv, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorGoogleDrive, newDriveEnv, func(cmd *cobra.Command, env *driveEnv, args []string) error {
		defer env.close()
		return fn(cmd, env, args)
	})
}

// webhookURL picks the push address: flag, profile, environment, settings.
func webhookURL(cmd *cobra.Command, cfg domain.ProfileConfig) string {
	if cmd != nil {
		if v, _ := cmd.Flags().GetString("address"); v != "" {
			return v
		}
	}
	if v := cfg.Get("webhook_url"); v != "" {
		return v
	}
	if v := os.Getenv(services.WebhookURLEnv); v != "" {
		return v
	}
	if settingsService != nil {
		return settingsService.String(services.KeyDriveWebhookURL, "")
	}
	return ""
}

// --- login ---

func driveLoginFlags(cmd *cobra.Command) {
	cmd.Flags().String("client-id", "", "OAuth client ID (default: the profile's client_id)")
	cmd.Flags().String("client-secret", "", "OAuth client secret (default: the profile's client_secret)")
	cmd.Flags().StringSlice("scope", nil, "OAuth scopes (default: drive and userinfo.email)")
	cmd.Flags().Int("port", 0, "local callback port (0 picks a free port)")
	cmd.Flags().Duration("timeout", oauth.DefaultLoginTimeout, "time allowed to finish in the browser")
	cmd.Flags().Bool("no-browser", false, "print the authorisation URL without opening a browser")
}

// driveLogin runs the browser flow with PKCE and stores the tokens.
func driveLogin(cmd *cobra.Command, _ []string) error {
	p, err := ensureProfile(services.ConnectorGoogleDrive)
	if err != nil {
		return err
	}

	prompt := newPrompter(cmd)
	clientID, _ := cmd.Flags().GetString("client-id")
	if clientID == "" {
		clientID = p.Config.Get(domain.KeyClientID)
	}
	if clientID == "" {
		if clientID, err = prompt.line(domain.KeyClientID); err != nil {
			return err
		}
	}
	secret, _ := cmd.Flags().GetString("client-secret")
	if secret == "" {
		secret = p.Config.Get(domain.KeyClientSecret)
	}
	if secret == "" {
		if secret, err = prompt.secret(domain.KeyClientSecret); err != nil {
			return err
		}
	}
	if clientID == "" || secret == "" {
		return fmt.Errorf("client id and secret are required: %w", domain.ErrInvalidInput)
	}

	scopes, _ := cmd.Flags().GetStringSlice("scope")
	port, _ := cmd.Flags().GetInt("port")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	opts := oauth.LoginOptions{Port: port, Timeout: timeout, Out: cmd.ErrOrStderr()}
	if noBrowser {
		opts.Open = func(string) error { return nil }
	}

	tok, err := oauth.Login(cmd.Context(), google.OAuthConfig(clientID, secret, "", scopes...), opts)
	if err != nil {
		return err
	}

	if err := profileService.SetConfig(services.ConnectorGoogleDrive, p.Name, domain.KeyClientID, clientID); err != nil {
		return err
	}
	if err := profileService.SetConfig(services.ConnectorGoogleDrive, p.Name, domain.KeyClientSecret, secret); err != nil {
		return err
	}
	if err := profileStore.SaveTokens(services.ConnectorGoogleDrive, p.Name, auth.FromOAuth2(tok)); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	userinfo := rest.New("", append(restOptions(),
		rest.WithName("google"),
		rest.WithAuth(rest.BearerToken(tok.AccessToken)),
		rest.WithRateLimiter(google.NewRateLimiter(google.APIOAuth)),
		rest.WithErrorParser(google.ErrorParser),
	)...)
	info, err := google.GetUserInfo(cmd.Context(), userinfo)
	if err != nil {
		logger.Warn("could not look up the signed-in account: %v", err)
		cmd.Printf("Logged in to Google Drive with profile %q\n", p.Name)
		return nil
	}
	cmd.Printf("Logged in to Google Drive as %s with profile %q\n", info.Email, p.Name)
	return nil
}

// --- files ---

func sizeCell(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func mimeCell(m string) string {
	switch m {
	case drive.MimeTypeFolder:
		return "folder"
	case drive.MimeTypeGoogleDoc:
		return "doc"
	case drive.MimeTypeGoogleSheet:
		return "sheet"
	case drive.MimeTypeGoogleSlides:
		return "slides"
	}
	return m
}

func rfc3339Cell(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return timeCell(t)
}

func filesView(files []*drivev3.File) *view {
	v := newView("ID", "NAME", "TYPE", "SIZE", "MODIFIED")
	for _, f := range files {
		size := ""
		if f.Size > 0 {
			size = sizeCell(f.Size)
		}
		v.add(f.Id, f.Name, mimeCell(f.MimeType), size, rfc3339Cell(f.ModifiedTime))
	}
	return v
}

// resolveDrive maps a shared drive name or ID via the cached catalog.
func resolveDrive(cmd *cobra.Command, env *driveEnv, nameOrID string) (string, error) {
	store, err := env.state()
	if err != nil {
		return "", err
	}
	catalog := services.NewDriveCatalogService(env.client.API(), store)
	if err := catalog.EnsureSynced(cmd.Context(), env.account(), services.DefaultCatalogMaxAge); err != nil {
		return "", err
	}
	return catalog.ResolveDriveID(cmd.Context(), env.account(), nameOrID)
}

func newDriveFilesCmd() *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List, transfer and delete files",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Long: `List files with an optional Drive query:
  connect googledrive files list --query "name contains 'report'"
  connect googledrive files list --folder <folder-id>
  connect googledrive files list --drive "Team Drive" --all`,
		Args: cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			query, _ := cmd.Flags().GetString("query")
			folder, _ := cmd.Flags().GetString("folder")
			driveRef, _ := cmd.Flags().GetString("drive")
			pageSize, _ := cmd.Flags().GetInt("page-size")
			orderBy, _ := cmd.Flags().GetString("order-by")
			noFolders, _ := cmd.Flags().GetBool("no-folders")
			mine, _ := cmd.Flags().GetBool("my-drive")
			pageToken, _ := cmd.Flags().GetString("page-token")

			if folder != "" {
				fq := drive.FolderQuery(folder)
				if query != "" {
					fq = "(" + query + ") and " + fq
				}
				query = fq
			}
			params := drive.ListFilesParams{
				Query: query, PageSize: pageSize, ExcludeFolders: noFolders, MyDriveOnly: mine, OrderBy: orderBy,
			}
			if driveRef != "" {
				id, err := resolveDrive(cmd, env, driveRef)
				if err != nil {
					return err
				}
				params.Corpora, params.DriveID = drive.CorporaDrive, id
			}

			if listAllFlag(cmd) {
				files, err := env.client.Files.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, files, filesView(files))
			}
			list, err := env.client.Files.List(cmd.Context(), params, pageToken)
			if err != nil {
				return err
			}
			if list.NextPageToken != "" && outputFormat(cmd) != formatJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "More results: --page-token %s\n", list.NextPageToken)
			}
			return render(cmd, list, filesView(list.Files))
		}),
	}
	listCmd.Flags().StringP("query", "q", "", "Drive search query")
	listCmd.Flags().String("folder", "", "only children of this folder")
	listCmd.Flags().String("drive", "", "shared drive name or ID")
	listCmd.Flags().Int("page-size", 0, "page size (max 1000)")
	listCmd.Flags().String("order-by", "", "sort order, e.g. modifiedTime desc")
	listCmd.Flags().Bool("no-folders", false, "exclude folders")
	listCmd.Flags().Bool("my-drive", false, "only files owned by the user")
	listCmd.Flags().String("page-token", "", "continue from a previous page")
	listCmd.Flags().Bool("all", false, "follow pagination to the end")

	getCmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Get file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			fields, _ := cmd.Flags().GetStringSlice("fields")
			f, err := env.client.Files.Get(cmd.Context(), trimDrivePrefix(args[0]), fields...)
			if err != nil {
				return err
			}
			return render(cmd, f, filesView([]*drivev3.File{f}))
		}),
	}
	getCmd.Flags().StringSlice("fields", nil, "fields to return")

	mkdirCmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			parents, _ := cmd.Flags().GetStringSlice("parent")
			f, err := env.client.Files.CreateFolder(cmd.Context(), args[0], parents...)
			if err != nil {
				return err
			}
			return render(cmd, f, filesView([]*drivev3.File{f}))
		}),
	}
	mkdirCmd.Flags().StringSlice("parent", nil, "parent folder IDs")

	uploadCmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			mimeType, _ := cmd.Flags().GetString("mime")
			parents, _ := cmd.Flags().GetStringSlice("parent")
			if name == "" {
				name = filepath.Base(args[0])
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[0]))
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out, err := env.client.Files.Upload(cmd.Context(), name, mimeType, f, parents...)
			if err != nil {
				return err
			}
			return render(cmd, out, filesView([]*drivev3.File{out}))
		}),
	}
	uploadCmd.Flags().String("name", "", "file name in Drive (default: the local name)")
	uploadCmd.Flags().String("mime", "", "content type (default: from the extension)")
	uploadCmd.Flags().StringSlice("parent", nil, "parent folder IDs")

	downloadCmd := &cobra.Command{
		Use:   "download <file-id> [dest]",
		Short: "Download a file and record it in the download history",
		Long: `Download a file. Google Workspace documents are exported (docs and slides
as text, sheets as CSV, others as PDF). When dest is a directory the
Drive name is kept. Each download is recorded; see 'downloads history'.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			dest := "."
			if len(args) == 2 {
				dest = args[1]
			}
			store, err := env.state()
			if err != nil {
				return err
			}
			svc := services.NewDownloadService(env.client.API(), store)
			audit, err := svc.Download(cmd.Context(), env.account(), trimDrivePrefix(args[0]), dest)
			if audit != nil {
				v := newView("ID", "FILE", "DESTINATION", "STATUS", "SIZE")
				v.add(audit.ID, audit.FileName, audit.Destination, string(audit.Status), sizeCell(audit.Bytes))
				if rerr := render(cmd, audit, v); rerr != nil {
					return rerr
				}
			}
			return err
		}),
	}

	exportCmd := &cobra.Command{
		Use:   "export <file-id>",
		Short: "Export a Google Workspace document",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			id := trimDrivePrefix(args[0])
			mimeType, _ := cmd.Flags().GetString("mime")
			output, _ := cmd.Flags().GetString("output")
			if mimeType == "" {
				f, err := env.client.Files.Get(cmd.Context(), id, "id", "name", "mimeType")
				if err != nil {
					return err
				}
				if mimeType = drive.ExportMimeType(f.MimeType); mimeType == "" {
					return fmt.Errorf("%s is not a Google Workspace document, use download: %w", f.Name, domain.ErrInvalidInput)
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := env.client.Files.Export(cmd.Context(), id, mimeType, w)
			if err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s to %s\n", sizeCell(n), output)
			}
			return nil
		}),
	}
	exportCmd.Flags().String("mime", "", "export format (default: text, CSV or PDF by type)")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	deleteCmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Permanently delete a file, skipping the trash",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			if err := env.client.Files.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		}),
	}

	filesCmd.AddCommand(listCmd, getCmd, mkdirCmd, uploadCmd, downloadCmd, exportCmd, deleteCmd)
	return filesCmd
}

// --- changes ---

func changesView(changes []domain.DriveChange) *view {
	v := newView("FILE", "NAME", "TYPE", "REMOVED", "TIME")
	for _, c := range changes {
		v.add(c.FileID, c.Name, mimeCell(c.MimeType), boolCell(c.Removed), timeCell(c.Time))
	}
	return v
}

func checkpointView(cp *domain.SyncCheckpoint) *view {
	v := newView("ACCOUNT", "RESOURCE", "CURSOR", "LAST SYNCED")
	if cp != nil {
		v.add(cp.AccountID, cp.Resource, cp.Cursor, timeCell(cp.LastSyncedAt))
	}
	return v
}

func newDriveChangesCmd() *cobra.Command {
	changesCmd := &cobra.Command{
		Use:   "changes",
		Short: "Follow the change feed",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch changes since the stored checkpoint",
		Long: `Fetch one page of changes after the stored checkpoint and advance it.
The first run only records the current position. Use --all to drain the feed.`,
		Args: cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			svc := services.NewDriveSyncService(env.client.API(), store)

			res, err := svc.SyncChanges(cmd.Context(), env.account())
			if err != nil {
				return err
			}
			for all && res.HasMore {
				next, err := svc.SyncChanges(cmd.Context(), env.account())
				if err != nil {
					return err
				}
				next.Changes = append(res.Changes, next.Changes...)
				res = next
			}
			if res.Initialised && outputFormat(cmd) != formatJSON {
				fmt.Fprintln(cmd.ErrOrStderr(), "Checkpoint initialised; run again to fetch changes.")
			}
			return render(cmd, res, changesView(res.Changes))
		}),
	}
	syncCmd.Flags().Bool("all", false, "repeat until no more changes are pending")

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint [cursor]",
		Short: "Show the stored checkpoint, or overwrite it with cursor",
		Args:  cobra.MaximumNArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			svc := services.NewDriveSyncService(env.client.API(), store)
			var cp *domain.SyncCheckpoint
			if len(args) == 1 {
				cp, err = svc.UpdateCheckpoint(cmd.Context(), env.account(), args[0])
			} else {
				cp, err = svc.GetCheckpoint(cmd.Context(), env.account())
			}
			if err != nil {
				return err
			}
			if cp == nil {
				return fmt.Errorf("no checkpoint for %q, run 'changes sync' first: %w", env.account(), domain.ErrNotFound)
			}
			return render(cmd, cp, checkpointView(cp))
		}),
	}

	changesCmd.AddCommand(syncCmd, checkpointCmd)
	return changesCmd
}

// --- watch ---

func channelsView(items []domain.WatchChannel) *view {
	v := newView("ID", "RESOURCE", "ADDRESS", "EXPIRES")
	for _, ch := range items {
		v.add(ch.ID, ch.ResourceID, ch.Address, timeCell(ch.Expiration))
	}
	return v
}

func newDriveWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage push notification channels",
	}
	watchService := func(env *driveEnv) (*services.WatchService, error) {
		store, err := env.state()
		if err != nil {
			return nil, err
		}
		return services.NewWatchService(env.client.API(), store, store), nil
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered channels",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			svc, err := watchService(env)
			if err != nil {
				return err
			}
			items, err := svc.List(cmd.Context(), env.account())
			if err != nil {
				return err
			}
			return render(cmd, items, channelsView(items))
		}),
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a channel delivering changes to a webhook",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			svc, err := watchService(env)
			if err != nil {
				return err
			}
			ch, err := svc.Register(cmd.Context(), env.account(), webhookURL(cmd, env.profile.Config))
			if err != nil {
				return err
			}
			return render(cmd, ch, channelsView([]domain.WatchChannel{*ch}))
		}),
	}
	registerCmd.Flags().String("address", "", "HTTPS webhook address (default: webhook_url)")

	deleteCmd := &cobra.Command{
		Use:   "delete <channel-id>",
		Short: "Stop a channel",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			svc, err := watchService(env)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Stopped channel %s\n", args[0])
			return nil
		}),
	}

	renewCmd := &cobra.Command{
		Use:   "renew",
		Short: "Replace channels that expire soon",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			svc, err := watchService(env)
			if err != nil {
				return err
			}
			window, _ := cmd.Flags().GetDuration("window")
			renewed, err := svc.Renew(cmd.Context(), env.account(), webhookURL(cmd, env.profile.Config), window)
			if err != nil {
				return err
			}
			return render(cmd, renewed, channelsView(renewed))
		}),
	}
	renewCmd.Flags().String("address", "", "HTTPS webhook address (default: webhook_url)")
	renewCmd.Flags().Duration("window", services.DefaultRenewalWindow, "renew channels expiring within this window")

	watchCmd.AddCommand(listCmd, registerCmd, deleteCmd, renewCmd)
	return watchCmd
}

// --- permissions ---

func permissionsView(items []*drivev3.Permission) *view {
	v := newView("ID", "TYPE", "ROLE", "GRANTEE")
	for _, p := range items {
		grantee := p.EmailAddress
		if grantee == "" {
			grantee = p.Domain
		}
		v.add(p.Id, p.Type, p.Role, grantee)
	}
	return v
}

func validRole(role string) bool {
	switch role {
	case drive.RoleOwner, drive.RoleOrganizer, drive.RoleFileOrganizer,
		drive.RoleWriter, drive.RoleCommenter, drive.RoleReader:
		return true
	}
	return false
}

func newDrivePermissionsCmd() *cobra.Command {
	permsCmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Share files and manage access",
	}

	listCmd := &cobra.Command{
		Use:   "list <file-id>",
		Short: "List a file's permissions",
		Args:  cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			items, err := env.client.Permissions.List(cmd.Context(), trimDrivePrefix(args[0]))
			if err != nil {
				return err
			}
			return render(cmd, items, permissionsView(items))
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add <file-id>",
		Short: "Grant access to a user, group, domain or anyone",
		Long: `Grant access:
  connect googledrive permissions add <file-id> --email ana@example.com --role writer
  connect googledrive permissions add <file-id> --domain example.com --role reader
  connect googledrive permissions add <file-id> --anyone --role reader`,
		Args: cobra.ExactArgs(1),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			group, _ := cmd.Flags().GetBool("group")
			domainName, _ := cmd.Flags().GetString("domain")
			anyone, _ := cmd.Flags().GetBool("anyone")
			notify, _ := cmd.Flags().GetBool("notify")
			if !validRole(role) {
				return fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidInput)
			}

			perm := &drivev3.Permission{Role: role}
			switch {
			case anyone:
				perm.Type = drive.GranteeAnyone
			case domainName != "":
				perm.Type, perm.Domain = drive.GranteeDomain, domainName
			case email != "" && group:
				perm.Type, perm.EmailAddress = drive.GranteeGroup, email
			case email != "":
				perm.Type, perm.EmailAddress = drive.GranteeUser, email
			default:
				return fmt.Errorf("one of --email, --domain or --anyone is required: %w", domain.ErrInvalidInput)
			}
			out, err := env.client.Permissions.Create(cmd.Context(), trimDrivePrefix(args[0]), perm, notify)
			if err != nil {
				return err
			}
			return render(cmd, out, permissionsView([]*drivev3.Permission{out}))
		}),
	}
	addCmd.Flags().String("role", drive.RoleReader, "owner, organizer, fileOrganizer, writer, commenter or reader")
	addCmd.Flags().String("email", "", "user or group email")
	addCmd.Flags().Bool("group", false, "treat --email as a group")
	addCmd.Flags().String("domain", "", "grant to a whole domain")
	addCmd.Flags().Bool("anyone", false, "grant to anyone with the link")
	addCmd.Flags().Bool("notify", false, "send a notification email")

	updateCmd := &cobra.Command{
		Use:   "update <file-id> <permission-id> <role>",
		Short: "Change a permission's role",
		Args:  cobra.ExactArgs(3),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			if !validRole(args[2]) {
				return fmt.Errorf("unknown role %q: %w", args[2], domain.ErrInvalidInput)
			}
			out, err := env.client.Permissions.Update(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return render(cmd, out, permissionsView([]*drivev3.Permission{out}))
		}),
	}

	removeCmd := &cobra.Command{
		Use:     "remove <file-id> <permission-id>",
		Aliases: []string{"delete"},
		Short:   "Revoke a permission",
		Args:    cobra.ExactArgs(2),
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, args []string) error {
			if err := env.client.Permissions.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("Removed permission %s from %s\n", args[1], args[0])
			return nil
		}),
	}

	permsCmd.AddCommand(listCmd, addCmd, updateCmd, removeCmd)
	return permsCmd
}

// --- drives ---

func catalogView(items []domain.DriveCatalogEntry) *view {
	v := newView("ID", "NAME", "KIND", "ACTIVE", "SYNCED")
	for _, d := range items {
		v.add(d.DriveID, d.Name, string(d.Kind), boolCell(d.Active), timeCell(d.SyncedAt))
	}
	return v
}

func newDriveDrivesCmd() *cobra.Command {
	drivesCmd := &cobra.Command{
		Use:   "drives",
		Short: "List My Drive and shared drives",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached drives, syncing when the cache is stale",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			inactive, _ := cmd.Flags().GetBool("include-inactive")
			maxAge, _ := cmd.Flags().GetDuration("max-age")
			catalog := services.NewDriveCatalogService(env.client.API(), store)
			if err := catalog.EnsureSynced(cmd.Context(), env.account(), maxAge); err != nil {
				return err
			}
			items, err := catalog.List(cmd.Context(), env.account(), inactive)
			if err != nil {
				return err
			}
			return render(cmd, items, catalogView(items))
		}),
	}
	listCmd.Flags().Bool("include-inactive", false, "include drives no longer visible")
	listCmd.Flags().Duration("max-age", services.DefaultCatalogMaxAge, "sync when the cache is older than this")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the drive catalog from the API",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			items, err := services.NewDriveCatalogService(env.client.API(), store).Sync(cmd.Context(), env.account())
			if err != nil {
				return err
			}
			return render(cmd, items, catalogView(items))
		}),
	}

	drivesCmd.AddCommand(listCmd, syncCmd)
	return drivesCmd
}

// --- downloads ---

func newDriveDownloadsCmd() *cobra.Command {
	downloadsCmd := &cobra.Command{
		Use:   "downloads",
		Short: "Inspect and prune the download history",
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded downloads, newest first",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			switch domain.DownloadStatus(status) {
			case "", domain.DownloadStarted, domain.DownloadCompleted, domain.DownloadFailed:
			default:
				return fmt.Errorf("unknown status %q: %w", status, domain.ErrInvalidInput)
			}
			items, err := services.NewDownloadService(env.client.API(), store).History(cmd.Context(), domain.DownloadFilter{
				AccountID: env.account(), Status: domain.DownloadStatus(status), Limit: limit, Offset: offset,
			})
			if err != nil {
				return err
			}
			v := newView("ID", "FILE", "DESTINATION", "STATUS", "SIZE", "STARTED")
			for _, a := range items {
				v.add(a.ID, a.FileName, a.Destination, string(a.Status), sizeCell(a.Bytes), timeCell(a.StartedAt))
			}
			return render(cmd, items, v)
		}),
	}
	historyCmd.Flags().String("status", "", "started, completed or failed")
	historyCmd.Flags().Int("limit", services.DefaultHistoryLimit, "maximum rows")
	historyCmd.Flags().Int("offset", 0, "rows to skip")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished records older than a duration",
		Args:  cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			store, err := env.state()
			if err != nil {
				return err
			}
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			n, err := services.NewDownloadService(env.client.API(), store).Prune(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			return render(cmd, map[string]int64{"deleted": n}, nil)
		}),
	}
	pruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "age of records to delete")

	downloadsCmd.AddCommand(historyCmd, pruneCmd)
	return downloadsCmd
}

// --- mcp ---

func newDriveMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve Drive tools over the Model Context Protocol",
		Long: `Start an MCP server exposing Drive tools for AI assistants.

By default the server speaks JSON-RPC over stdio. With --http it listens
on the given address and also serves Prometheus metrics on /metrics,
a health probe on /healthz and Drive push notifications on
/webhooks/googledrive. Point watch channels at the latter.

Example assistant configuration:
  {
    "mcpServers": {
      "googledrive": {
        "command": "connect",
        "args": ["googledrive", "mcp", "--profile", "work"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: driveRun(func(cmd *cobra.Command, env *driveEnv, _ []string) error {
			addr, _ := cmd.Flags().GetString("http")
			store, err := env.state()
			if err != nil {
				return err
			}
			api := env.client.API()
			ports := &mcp.Ports{
				Drive:      api,
				Sync:       services.NewDriveSyncService(api, store),
				Watch:      services.NewWatchService(api, store, store),
				Downloads:  services.NewDownloadService(api, store),
				Catalog:    services.NewDriveCatalogService(api, store),
				Health:     store,
				AccountID:  env.account(),
				WebhookURL: webhookURL(nil, env.profile.Config),
			}
			server, err := mcp.NewServer(ports, mcp.WithGatherer(metricsRegistry))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if env.profile.Config.Get(domain.KeyServiceAccountKey) == "" {
				go watchDriveTokens(ctx, env)
			}

			if addr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
				return server.RunHTTP(ctx, addr)
			}
			return server.Run(ctx)
		}),
	}
	cmd.Flags().String("http", "", "listen on this address (e.g. localhost:8080) instead of stdio")
	return cmd
}

// watchDriveTokens hands tokens written by another process, such as a
// fresh 'auth login', to the running client.
func watchDriveTokens(ctx context.Context, env *driveEnv) {
	dir := profileStore.Dir(services.ConnectorGoogleDrive, env.account())
	if _, err := os.Stat(dir); err != nil {
		logger.Debug("not watching tokens in %s: %v", dir, err)
		return
	}
	err := auth.WatchTokens(ctx, dir, func() {
		tokens, err := profileStore.LoadTokens(services.ConnectorGoogleDrive, env.account())
		if err != nil || tokens == nil || tokens.AccessToken == "" {
			logger.Warn("reloading tokens for %q failed: %v", env.account(), err)
			return
		}
		env.client.Bearer().Reset(tokens.AccessToken)
		logger.Debug("reloaded tokens for %q", env.account())
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("token watcher stopped: %v", err)
	}
}

// trimDrivePrefix accepts Drive URLs where an ID is expected.
func trimDrivePrefix(ref string) string {
	for _, marker := range []string{"/d/", "/folders/", "id="} {
		if _, after, ok := strings.Cut(ref, marker); ok {
			if id, _, _ := strings.Cut(after, "/"); id != "" {
				id, _, _ = strings.Cut(id, "?")
				id, _, _ = strings.Cut(id, "&")
				return id
			}
		}
	}
	return ref
}
