package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/auth"
	"github.com/custodia-labs/connect-cli/internal/connectors/notion"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

// notionTokenURL is the token endpoint of Notion public integrations.
const notionTokenURL = "https://api.notion.com/v1/oauth/token"

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorNotion,
		connectorOptions{loginKeys: []string{domain.KeyAPIKey}},
		newNotionPagesCmd(),
		newNotionDatabasesCmd(),
		newNotionBlocksCmd(),
		newNotionSearchCmd(),
		newNotionUsersCmd(),
		newNotionCommentsCmd(),
		newNotionBulkCmd(),
	))
}

// notionClient builds a client from an integration secret, or from OAuth
// tokens refreshed through the profile's client credentials.
func notionClient(p domain.Profile) (*notion.Client, error) {
	cfg := p.Config
	token := cfg.Get(domain.KeyAPIKey)
	if token == "" {
		token = cfg.Get(domain.KeyAccessToken)
	}
	if token == "" && p.Tokens != nil {
		token = p.Tokens.AccessToken
	}

	var refresher rest.Refresher
	if cfg.Get(domain.KeyAPIKey) == "" && cfg.Get(domain.KeyClientID) != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.Get(domain.KeyClientID),
			ClientSecret: cfg.Get(domain.KeyClientSecret),
			Endpoint:     oauth2.Endpoint{TokenURL: notionTokenURL, AuthStyle: oauth2.AuthStyleInHeader},
		}
		r := auth.NewOAuthRefresher(oc, profileStore, services.ConnectorNotion, p.Name, cfg.Get(domain.KeyRefreshToken))
		if r.CanRefresh() {
			refresher = r
		}
	}

	return notion.New(notion.Config{
		Token:     token,
		BaseURL:   cfg.Get(domain.KeyBaseURL),
		Version:   cfg.Get("version"),
		Refresher: refresher,
	}, restOptions()...)
}

func notionRun(fn func(cmd *cobra.Command, c *notion.Client, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorNotion, notionClient, fn)
}

func pagesView(pages []notion.Page) *view {
	v := newView("ID", "TITLE", "LAST EDITED", "URL")
	for i := range pages {
		p := &pages[i]
		v.add(p.ID, p.Title(), timeCell(p.LastEditedTime), p.URL)
	}
	return v
}

func databaseView(d *notion.Database) *view {
	v := newView("PROPERTY", "TYPE", "ID")
	for name, prop := range d.Properties {
		v.add(name, string(prop.Type), prop.ID)
	}
	sortRows(v)
	return v
}

func blocksView(blocks []*notion.Block) *view {
	v := newView("ID", "TYPE", "TEXT", "CHILDREN")
	for _, b := range blocks {
		v.add(b.ID, string(b.Type), notion.PlainText(b.RichText()), boolCell(b.HasChildren))
	}
	return v
}

func usersView(users []notion.User) *view {
	v := newView("ID", "TYPE", "NAME", "EMAIL")
	for _, u := range users {
		email := ""
		if u.Person != nil {
			email = u.Person.Email
		}
		v.add(u.ID, u.Type, u.Name, email)
	}
	return v
}

// --- pages ---

func newNotionPagesCmd() *cobra.Command {
	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "Read, create and update pages",
	}

	getCmd := &cobra.Command{
		Use:   "get <page-id>",
		Short: "Get a page",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			page, err := c.Pages.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, page, pagesView([]notion.Page{*page}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a page under a page or in a database",
		Long: `Create a page. Under a page only a title can be set; in a database
--prop name=value assigns properties converted with the database schema.

Examples:
  connect notion pages create --parent <page-id> --title "Notes"
  connect notion pages create --database <db-id> --title "Task" --prop Status=Todo`,
		Args: cobra.NoArgs,
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, _ []string) error {
			parentID, _ := cmd.Flags().GetString("parent")
			databaseID, _ := cmd.Flags().GetString("database")
			title, _ := cmd.Flags().GetString("title")
			props, _ := cmd.Flags().GetStringArray("prop")
			icon, _ := cmd.Flags().GetString("icon")
			paragraphs, _ := cmd.Flags().GetStringArray("paragraph")

			if (parentID == "") == (databaseID == "") {
				return fmt.Errorf("exactly one of --parent and --database is required: %w", domain.ErrInvalidInput)
			}
			assignments, err := parseAssignments(props)
			if err != nil {
				return err
			}

			req := notion.CreatePageRequest{Properties: make(map[string]notion.PropertyValue)}
			if parentID != "" {
				if len(assignments) > 0 {
					return fmt.Errorf("--prop needs --database: %w", domain.ErrInvalidInput)
				}
				req.Parent = notion.PageParent(parentID)
				tv, err := notion.BuildPropertyValue(notion.PropTitle, title)
				if err != nil {
					return err
				}
				req.Properties["title"] = tv
			} else {
				db, err := c.Databases.Get(cmd.Context(), databaseID)
				if err != nil {
					return err
				}
				req.Parent = notion.DatabaseParent(databaseID)
				if title != "" {
					for name, prop := range db.Properties {
						if prop.Type == notion.PropTitle {
							assignments[name] = title
						}
					}
				}
				for name, text := range assignments {
					pv, err := db.Properties.BuildValue(name, text)
					if err != nil {
						return err
					}
					req.Properties[name] = pv
				}
			}
			if icon != "" {
				req.Icon = notion.EmojiIcon(icon)
			}
			for _, text := range paragraphs {
				req.Children = append(req.Children, notion.NewParagraph(text))
			}

			page, err := c.Pages.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, page, pagesView([]notion.Page{*page}))
		}),
	}
	createCmd.Flags().String("parent", "", "parent page ID")
	createCmd.Flags().String("database", "", "parent database ID")
	createCmd.Flags().String("title", "", "page title")
	createCmd.Flags().StringArray("prop", nil, "property assignment name=value (repeatable)")
	createCmd.Flags().String("icon", "", "emoji icon")
	createCmd.Flags().StringArray("paragraph", nil, "paragraph of body text (repeatable)")

	updateCmd := &cobra.Command{
		Use:   "update <page-id>",
		Short: "Update page properties",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			props, _ := cmd.Flags().GetStringArray("prop")
			icon, _ := cmd.Flags().GetString("icon")
			assignments, err := parseAssignments(props)
			if err != nil {
				return err
			}
			if len(assignments) == 0 && icon == "" {
				return fmt.Errorf("nothing to update: %w", domain.ErrInvalidInput)
			}

			var req notion.UpdatePageRequest
			if len(assignments) > 0 {
				page, err := c.Pages.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				schema := page.Schema()
				req.Properties = make(map[string]notion.PropertyValue, len(assignments))
				for name, text := range assignments {
					pv, err := schema.BuildValue(name, text)
					if err != nil {
						return err
					}
					req.Properties[name] = pv
				}
			}
			if icon != "" {
				req.Icon = notion.EmojiIcon(icon)
			}

			page, err := c.Pages.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return render(cmd, page, pagesView([]notion.Page{*page}))
		}),
	}
	updateCmd.Flags().StringArray("prop", nil, "property assignment name=value (repeatable)")
	updateCmd.Flags().String("icon", "", "emoji icon")

	archiveCmd := &cobra.Command{
		Use:   "archive <page-id>",
		Short: "Move a page to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			page, err := c.Pages.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, page, pagesView([]notion.Page{*page}))
		}),
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <page-id>",
		Short: "Restore an archived page",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			page, err := c.Pages.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, page, pagesView([]notion.Page{*page}))
		}),
	}

	propertyCmd := &cobra.Command{
		Use:   "property <page-id> <property-id>",
		Short: "Get one page property, including long lists",
		Args:  cobra.ExactArgs(2),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			cursor, _ := cmd.Flags().GetString("cursor")
			item, err := c.Pages.GetProperty(cmd.Context(), args[0], args[1], notion.ListOptions{StartCursor: cursor})
			if err != nil {
				return err
			}
			return render(cmd, item, nil)
		}),
	}
	propertyCmd.Flags().String("cursor", "", "pagination cursor")

	exportCmd := &cobra.Command{
		Use:   "export <page-id>",
		Short: "Export a page and its blocks as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			md, err := c.ExportMarkdown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				cmd.Print(md)
				return nil
			}
			if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			cmd.Printf("Exported %s to %s\n", args[0], out)
			return nil
		}),
	}
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	pagesCmd.AddCommand(getCmd, createCmd, updateCmd, archiveCmd, restoreCmd, propertyCmd, exportCmd)
	return pagesCmd
}

// --- databases ---

func newNotionDatabasesCmd() *cobra.Command {
	databasesCmd := &cobra.Command{
		Use:     "databases",
		Aliases: []string{"db"},
		Short:   "Inspect, query and create databases",
	}

	getCmd := &cobra.Command{
		Use:   "get <database-id>",
		Short: "Get a database and its schema",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			db, err := c.Databases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, db, databaseView(db))
		}),
	}

	queryCmd := &cobra.Command{
		Use:   "query <database-id>",
		Short: "Query database rows",
		Long: `Query database rows, optionally narrowed by a filter expression.

Filter expressions compare properties with =, !=, >, <, >=, <=, contains and
combine them with 'and' / 'or':
  connect notion databases query <id> --filter 'Status = Done and Points > 3'
  connect notion databases query <id> --sort Due --sort Points:desc --all`,
		Args: cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			sorts, _ := cmd.Flags().GetStringArray("sort")
			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")

			req := notion.QueryRequest{StartCursor: cursor, PageSize: limit}
			if filter != "" {
				db, err := c.Databases.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if req.Filter, err = notion.ParseFilter(filter, db.Properties); err != nil {
					return err
				}
			}
			for _, s := range sorts {
				req.Sorts = append(req.Sorts, parseSort(s))
			}

			if all {
				pages, err := c.Databases.QueryAll(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				return render(cmd, pages, pagesView(pages))
			}
			list, err := c.Databases.Query(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return render(cmd, list, pagesView(list.Results))
		}),
	}
	queryCmd.Flags().String("filter", "", "filter expression")
	queryCmd.Flags().StringArray("sort", nil, "sort by property[:asc|desc] (repeatable)")
	queryCmd.Flags().Bool("all", false, "follow pagination to the end")
	queryCmd.Flags().Int("limit", 0, "page size (max 100)")
	queryCmd.Flags().String("cursor", "", "pagination cursor")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a database under a page",
		Long: `Create a database. --schema takes the API's property objects as JSON,
or @file to read them from a file:
  connect notion databases create --parent <page-id> --title Tasks \
    --schema '{"Name":{"title":{}},"Done":{"checkbox":{}}}'`,
		Args: cobra.NoArgs,
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, _ []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			title, _ := cmd.Flags().GetString("title")
			schema, _ := cmd.Flags().GetString("schema")
			inline, _ := cmd.Flags().GetBool("inline")
			if parent == "" {
				return fmt.Errorf("--parent is required: %w", domain.ErrInvalidInput)
			}

			props := map[string]any{"Name": map[string]any{"title": map[string]any{}}}
			if schema != "" {
				props = nil
				if err := decodeJSONArg(schema, &props); err != nil {
					return err
				}
			}
			db, err := c.Databases.Create(cmd.Context(), notion.CreateDatabaseRequest{
				Parent:     notion.PageParent(parent),
				Title:      notion.Text(title),
				Properties: props,
				IsInline:   inline,
			})
			if err != nil {
				return err
			}
			return render(cmd, db, databaseView(db))
		}),
	}
	createCmd.Flags().String("parent", "", "parent page ID")
	createCmd.Flags().String("title", "", "database title")
	createCmd.Flags().String("schema", "", "property schema as JSON or @file")
	createCmd.Flags().Bool("inline", false, "create an inline database")

	updateCmd := &cobra.Command{
		Use:   "update <database-id>",
		Short: "Rename a database or change its schema",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			schema, _ := cmd.Flags().GetString("schema")

			var req notion.UpdateDatabaseRequest
			if title != "" {
				req.Title = notion.Text(title)
			}
			if description != "" {
				req.Description = notion.Text(description)
			}
			if schema != "" {
				if err := decodeJSONArg(schema, &req.Properties); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("archived") {
				archived, _ := cmd.Flags().GetBool("archived")
				req.Archived = &archived
			}

			db, err := c.Databases.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return render(cmd, db, databaseView(db))
		}),
	}
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("description", "", "new description")
	updateCmd.Flags().String("schema", "", "property changes as JSON or @file")
	updateCmd.Flags().Bool("archived", false, "archive or restore the database")

	databasesCmd.AddCommand(getCmd, queryCmd, createCmd, updateCmd)
	return databasesCmd
}

// parseSort reads "property[:direction]"; created_time and last_edited_time
// sort by timestamp.
func parseSort(s string) notion.Sort {
	name, dir, _ := strings.Cut(s, ":")
	direction := "ascending"
	if strings.HasPrefix(strings.ToLower(dir), "desc") {
		direction = "descending"
	}
	if name == "created_time" || name == "last_edited_time" {
		return notion.Sort{Timestamp: name, Direction: direction}
	}
	return notion.Sort{Property: name, Direction: direction}
}

// --- blocks ---

func newNotionBlocksCmd() *cobra.Command {
	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "Read and edit page content",
	}

	getCmd := &cobra.Command{
		Use:   "get <block-id>",
		Short: "Get a block",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			b, err := c.Blocks.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, b, blocksView([]*notion.Block{b}))
		}),
	}

	childrenCmd := &cobra.Command{
		Use:   "children <block-id>",
		Short: "List the children of a block or page",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			cursor, _ := cmd.Flags().GetString("cursor")
			limit, _ := cmd.Flags().GetInt("limit")
			if all {
				blocks, err := c.Blocks.ListAllChildren(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, blocks, blocksView(blocks))
			}
			list, err := c.Blocks.ListChildren(cmd.Context(), args[0], notion.ListOptions{StartCursor: cursor, PageSize: limit})
			if err != nil {
				return err
			}
			return render(cmd, list, blocksView(list.Results))
		}),
	}
	childrenCmd.Flags().Bool("all", false, "follow pagination to the end")
	childrenCmd.Flags().Int("limit", 0, "page size (max 100)")
	childrenCmd.Flags().String("cursor", "", "pagination cursor")

	treeCmd := &cobra.Command{
		Use:   "tree <block-id>",
		Short: "Print the block tree as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			blocks, err := c.Blocks.Tree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Print(notion.RenderMarkdown(blocks))
			return nil
		}),
	}

	appendCmd := &cobra.Command{
		Use:   "append <block-id>",
		Short: "Append content blocks",
		Long: `Append blocks in flag order groups: headings, paragraphs, to-dos,
code, then an optional divider.

Example:
  connect notion blocks append <page-id> --heading "Summary" --paragraph "Done." --todo "Ship it"`,
		Args: cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			headings, _ := cmd.Flags().GetStringArray("heading")
			level, _ := cmd.Flags().GetInt("level")
			paragraphs, _ := cmd.Flags().GetStringArray("paragraph")
			todos, _ := cmd.Flags().GetStringArray("todo")
			code, _ := cmd.Flags().GetString("code")
			language, _ := cmd.Flags().GetString("language")
			divider, _ := cmd.Flags().GetBool("divider")
			after, _ := cmd.Flags().GetString("after")

			var blocks []*notion.Block
			for _, h := range headings {
				blocks = append(blocks, notion.NewHeading(level, h))
			}
			for _, p := range paragraphs {
				blocks = append(blocks, notion.NewParagraph(p))
			}
			for _, t := range todos {
				blocks = append(blocks, notion.NewToDo(t, false))
			}
			if code != "" {
				blocks = append(blocks, notion.NewCode(language, code))
			}
			if divider {
				blocks = append(blocks, notion.NewDivider())
			}
			if len(blocks) == 0 {
				return fmt.Errorf("nothing to append: %w", domain.ErrInvalidInput)
			}

			created, err := c.Blocks.AppendChildren(cmd.Context(), args[0], blocks, after)
			if err != nil {
				return err
			}
			return render(cmd, created, blocksView(created))
		}),
	}
	appendCmd.Flags().StringArray("heading", nil, "heading text (repeatable)")
	appendCmd.Flags().Int("level", 2, "heading level 1-3")
	appendCmd.Flags().StringArray("paragraph", nil, "paragraph text (repeatable)")
	appendCmd.Flags().StringArray("todo", nil, "to-do text (repeatable)")
	appendCmd.Flags().String("code", "", "code block content")
	appendCmd.Flags().String("language", "plain text", "code block language")
	appendCmd.Flags().Bool("divider", false, "append a divider")
	appendCmd.Flags().String("after", "", "insert after this block ID")

	deleteCmd := &cobra.Command{
		Use:   "delete <block-id>",
		Short: "Archive a block",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			b, err := c.Blocks.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, b, blocksView([]*notion.Block{b}))
		}),
	}

	blocksCmd.AddCommand(getCmd, childrenCmd, treeCmd, appendCmd, deleteCmd)
	return blocksCmd
}

// --- search ---

func newNotionSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search pages and databases shared with the integration",
		Args:  cobra.MaximumNArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			objectType, _ := cmd.Flags().GetString("type")
			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")

			req := notion.SearchRequest{StartCursor: cursor, PageSize: limit}
			if len(args) == 1 {
				req.Query = args[0]
			}
			switch objectType {
			case "":
			case "page", "database":
				req.Filter = notion.ObjectFilter(objectType)
			default:
				return fmt.Errorf("--type must be page or database: %w", domain.ErrInvalidInput)
			}

			var results []notion.SearchResult
			var data any
			if all {
				var err error
				if results, err = c.Search.SearchAll(cmd.Context(), req); err != nil {
					return err
				}
				data = results
			} else {
				list, err := c.Search.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				results, data = list.Results, list
			}

			v := newView("OBJECT", "ID", "TITLE")
			for _, r := range results {
				v.add(r.Object, r.ID(), r.Title())
			}
			return render(cmd, data, v)
		}),
	}
	searchCmd.Flags().String("type", "", "restrict to page or database")
	searchCmd.Flags().Bool("all", false, "follow pagination to the end")
	searchCmd.Flags().Int("limit", 0, "page size (max 100)")
	searchCmd.Flags().String("cursor", "", "pagination cursor")
	return searchCmd
}

// --- users ---

func newNotionUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List workspace users",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, _ []string) error {
			users, err := c.Users.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, users, usersView(users))
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Get a user",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			u, err := c.Users.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, u, usersView([]notion.User{*u}))
		}),
	}

	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Show the integration's bot user",
		Args:  cobra.NoArgs,
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, _ []string) error {
			u, err := c.Users.Me(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, u, usersView([]notion.User{*u}))
		}),
	}

	usersCmd.AddCommand(listCmd, getCmd, meCmd)
	return usersCmd
}

// --- comments ---

func newNotionCommentsCmd() *cobra.Command {
	commentsCmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and add comments",
	}

	commentsView := func(comments []notion.Comment) *view {
		v := newView("ID", "DISCUSSION", "AUTHOR", "CREATED", "TEXT")
		for _, cm := range comments {
			v.add(cm.ID, cm.DiscussionID, cm.CreatedBy.ID, timeCell(cm.CreatedTime), notion.PlainText(cm.RichText))
		}
		return v
	}

	listCmd := &cobra.Command{
		Use:   "list <block-id>",
		Short: "List unresolved comments on a page or block",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			comments, err := c.Comments.ListAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, comments, commentsView(comments))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create <text>",
		Short: "Comment on a page or reply in a discussion",
		Args:  cobra.ExactArgs(1),
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, args []string) error {
			pageID, _ := cmd.Flags().GetString("page")
			discussion, _ := cmd.Flags().GetString("discussion")

			req := notion.CreateCommentRequest{DiscussionID: discussion, RichText: notion.Text(args[0])}
			if pageID != "" {
				parent := notion.PageParent(pageID)
				req.Parent = &parent
			}
			cm, err := c.Comments.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, cm, commentsView([]notion.Comment{*cm}))
		}),
	}
	createCmd.Flags().String("page", "", "page to comment on")
	createCmd.Flags().String("discussion", "", "discussion to reply in")

	commentsCmd.AddCommand(listCmd, createCmd)
	return commentsCmd
}

// --- bulk ---

func newNotionBulkCmd() *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply changes to many pages at once",
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Set properties on every matching page",
		Long: `Set the same properties on explicit pages or on the rows of a database
matched by a filter. Pages are updated concurrently in batches of
bulk.batch_size (default 3). Failures are reported per page.

Examples:
  connect notion bulk update --database <id> --filter 'Status = Todo' --set Status=Doing
  connect notion bulk update --page <id> --page <id> --set Done=true --dry-run`,
		Args: cobra.NoArgs,
		RunE: notionRun(func(cmd *cobra.Command, c *notion.Client, _ []string) error {
			pages, _ := cmd.Flags().GetStringArray("page")
			databaseID, _ := cmd.Flags().GetString("database")
			filter, _ := cmd.Flags().GetString("filter")
			set, _ := cmd.Flags().GetStringArray("set")
			batch, _ := cmd.Flags().GetInt("batch-size")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if batch <= 0 {
				batch = settingsService.BatchSize(notion.DefaultBatchSize)
			}

			res, err := c.BulkUpdate(cmd.Context(), notion.BulkUpdateRequest{
				PageIDs:    pages,
				DatabaseID: databaseID,
				Filter:     filter,
				Set:        set,
				BatchSize:  batch,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}

			v := newView("PAGE", "RESULT")
			if res.DryRun {
				for _, id := range res.Targets {
					v.add(id, "would update")
				}
			}
			for _, id := range res.Updated {
				v.add(id, "updated")
			}
			for _, e := range res.Errors {
				v.add(e.PageID, e.Error)
			}
			if err := render(cmd, res, v); err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d pages failed", res.Failed, res.Total)
			}
			return nil
		}),
	}
	updateCmd.Flags().StringArray("page", nil, "page ID (repeatable)")
	updateCmd.Flags().String("database", "", "database whose rows are updated")
	updateCmd.Flags().String("filter", "", "filter expression narrowing the database rows")
	updateCmd.Flags().StringArray("set", nil, "assignment name=value (repeatable)")
	updateCmd.Flags().Int("batch-size", 0, "concurrent updates (default: bulk.batch_size)")
	updateCmd.Flags().Bool("dry-run", false, "list targets without updating")

	bulkCmd.AddCommand(updateCmd)
	return bulkCmd
}
