package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// builtin describes the connectors for command help, before services exist.
var builtin = services.NewConnectorRegistry()

// connectorOptions customises the shared subcommands of a connector group.
type connectorOptions struct {
	// loginKeys are prompted for by "auth login".
	loginKeys []string
	// login replaces the key prompt, e.g. with an OAuth flow.
	login func(cmd *cobra.Command, args []string) error
	// loginFlags registers the flags read by login.
	loginFlags func(cmd *cobra.Command)
	// authCmds are extra "auth" subcommands.
	authCmds []*cobra.Command
}

// newConnectorCmd builds a connector group with profile, config and auth
// subcommands followed by the given resource commands.
func newConnectorCmd(id string, opts connectorOptions, resources ...*cobra.Command) *cobra.Command {
	ct, err := builtin.Get(id)
	if err != nil {
		panic(err)
	}

	cmd := &cobra.Command{
		Use:   id,
		Short: ct.Description,
		Long: fmt.Sprintf(`%s commands.

Credentials are read from the selected profile and overridden by %s_*
environment variables. Run 'connect %s auth login' to get started.`, ct.Name, ct.EnvPrefix, id),
	}
	cmd.AddCommand(newProfileCmd(id), newConfigCmd(id), newAuthCmd(id, opts))
	cmd.AddCommand(resources...)
	return cmd
}

// resolveProfile loads the --profile (or current) profile of connector with
// environment overrides applied to its config.
func resolveProfile(connector string) (domain.Profile, error) {
	return effectiveProfile(connector, profileService.Resolve)
}

// ensureProfile is resolveProfile for commands that store credentials: a
// profile named with --profile is created when missing.
func ensureProfile(connector string) (domain.Profile, error) {
	return effectiveProfile(connector, profileService.Ensure)
}

func effectiveProfile(
	connector string, load func(connector, name string) (domain.Profile, error),
) (domain.Profile, error) {
	if err := requireServices(); err != nil {
		return domain.Profile{}, err
	}
	ct, err := registry.Get(connector)
	if err != nil {
		return domain.Profile{}, err
	}
	p, err := load(connector, profileFlag)
	if err != nil {
		return domain.Profile{}, err
	}
	p.Config = credentials.Resolve(ct, p)
	logger.Debug("using %s profile %q", connector, p.Name)
	return p, nil
}

// restOptions applies the global HTTP settings to a connector client.
func restOptions() []rest.Option {
	opts := []rest.Option{rest.WithMetrics(httpMetrics)}
	if settingsService != nil {
		opts = append(opts, rest.WithTimeout(settingsService.HTTPTimeout(rest.DefaultTimeout)))
	}
	return opts
}

// --- profile ---

// profileSummary is the listed form of a profile. Config values are left
// out so that secrets never reach the output.
type profileSummary struct {
	Name       string   `json:"name"`
	Current    bool     `json:"current"`
	ConfigKeys []string `json:"config_keys"`
	HasTokens  bool     `json:"has_tokens"`
}

func newProfileCmd(connector string) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage named profiles",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			if err := profileService.Create(connector, args[0]); err != nil {
				return fmt.Errorf("failed to create profile: %w", err)
			}
			cmd.Printf("Created %s profile %q\n", connector, args[0])

			if use, _ := cmd.Flags().GetBool("use"); use {
				if err := profileService.Switch(connector, args[0]); err != nil {
					return err
				}
				cmd.Printf("Switched to %q\n", args[0])
			}
			return nil
		},
	}
	createCmd.Flags().Bool("use", false, "make the new profile current")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			profiles, err := profileService.List(connector)
			if err != nil {
				return err
			}

			out := make([]profileSummary, 0, len(profiles))
			v := newView("NAME", "CURRENT", "CONFIG", "TOKENS")
			for _, listed := range profiles {
				p, err := profileService.Resolve(connector, listed.Name)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(p.Config))
				for k := range p.Config {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				s := profileSummary{Name: p.Name, Current: p.Current, ConfigKeys: keys, HasTokens: p.Tokens != nil}
				out = append(out, s)
				v.add(s.Name, boolCell(s.Current), strings.Join(keys, ", "), boolCell(s.HasTokens))
			}
			return render(cmd, out, v)
		},
	}

	switchCmd := &cobra.Command{
		Use:   "switch [name]",
		Short: "Select the current profile",
		Long: `Select the current profile. Without a name, an interactive picker
opens when running in a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				if !isTerminal(cmd.InOrStdin()) || !isTerminal(cmd.OutOrStdout()) {
					return fmt.Errorf("profile name is required: %w", domain.ErrInvalidInput)
				}
				profiles, err := profileService.List(connector)
				if err != nil {
					return err
				}
				name, err = tui.PickProfile(cmd.Context(), connector, profiles, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			if err := profileService.Switch(connector, name); err != nil {
				return fmt.Errorf("failed to switch profile: %w", err)
			}
			cmd.Printf("Switched %s to profile %q\n", connector, name)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile and its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			if err := profileService.Delete(connector, args[0]); err != nil {
				return fmt.Errorf("failed to delete profile: %w", err)
			}
			cmd.Printf("Deleted %s profile %q\n", connector, args[0])
			return nil
		},
	}

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Print the current profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			name, err := profileService.Current(connector)
			if err != nil {
				return err
			}
			cmd.Println(name)
			return nil
		},
	}

	profileCmd.AddCommand(createCmd, listCmd, switchCmd, deleteCmd, currentCmd)
	return profileCmd
}

// --- config ---

// configEntry is one row of "config list".
type configEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func newConfigCmd(connector string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write profile configuration",
	}

	setCmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Set a config key (prompts for secrets when value is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			ct, err := registry.Get(connector)
			if err != nil {
				return err
			}
			key := args[0]
			if !knownKey(ct, key) {
				logger.Warn("%q is not a known %s config key", key, connector)
			}

			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				p := newPrompter(cmd)
				if ct.IsSecret(key) {
					value, err = p.secret(key)
				} else {
					value, err = p.line(key)
				}
				if err != nil {
					return err
				}
			}

			if err := profileService.SetConfig(connector, profileFlag, key, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
			cmd.Printf("Set %s\n", key)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(connector)
			if err != nil {
				return err
			}
			ct, err := registry.Get(connector)
			if err != nil {
				return err
			}
			value, ok := p.Config[args[0]]
			if !ok {
				return fmt.Errorf("%s is not set in profile %q: %w", args[0], p.Name, domain.ErrNotFound)
			}
			if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal && ct.IsSecret(args[0]) {
				value = maskSecret(value)
			}
			cmd.Println(value)
			return nil
		},
	}
	getCmd.Flags().Bool("reveal", false, "print secrets unmasked")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List config keys with their values and sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			ct, err := registry.Get(connector)
			if err != nil {
				return err
			}
			stored, err := profileService.Resolve(connector, profileFlag)
			if err != nil {
				return err
			}
			effective := credentials.Resolve(ct, stored)

			entries := configEntries(ct, stored.Config, effective)
			v := newView("KEY", "VALUE", "SOURCE")
			for _, e := range entries {
				v.add(e.Key, e.Value, e.Source)
			}
			return render(cmd, entries, v)
		},
	}

	unsetCmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			if err := profileService.UnsetConfig(connector, profileFlag, args[0]); err != nil {
				return fmt.Errorf("failed to unset %s: %w", args[0], err)
			}
			cmd.Printf("Unset %s\n", args[0])
			return nil
		},
	}

	configCmd.AddCommand(setCmd, getCmd, listCmd, unsetCmd)
	return configCmd
}

// configEntries lists the known keys in declaration order followed by any
// other stored keys. Secrets are masked.
func configEntries(ct domain.ConnectorType, stored, effective domain.ProfileConfig) []configEntry {
	var entries []configEntry
	seen := make(map[string]bool)
	add := func(key string) {
		value, ok := effective[key]
		if !ok {
			return
		}
		source := "profile"
		if stored[key] != value {
			source = "env"
		}
		if ct.IsSecret(key) {
			value = maskSecret(value)
		}
		entries = append(entries, configEntry{Key: key, Value: value, Source: source})
		seen[key] = true
	}

	for _, k := range ct.ConfigKeys {
		add(k.Key)
	}
	var extra []string
	for k := range effective {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		add(k)
	}
	return entries
}

func knownKey(ct domain.ConnectorType, key string) bool {
	for _, k := range ct.ConfigKeys {
		if k.Key == key {
			return true
		}
	}
	return false
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// --- auth ---

// authStatus reports how a profile authenticates.
type authStatus struct {
	Connector   string            `json:"connector"`
	Profile     string            `json:"profile"`
	Method      domain.AuthMethod `json:"method"`
	Credentials map[string]string `json:"credentials"`
	TokenExpiry string            `json:"token_expiry,omitempty"`
	Expired     bool              `json:"expired,omitempty"`
	CanRefresh  bool              `json:"can_refresh,omitempty"`
}

func newAuthCmd(connector string, opts connectorOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in, inspect and clear credentials",
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials in the selected profile",
		Args:  cobra.NoArgs,
		RunE:  opts.login,
	}
	if opts.loginFlags != nil {
		opts.loginFlags(loginCmd)
	}
	if loginCmd.RunE == nil {
		for _, key := range opts.loginKeys {
			loginCmd.Flags().String(flagName(key), "", "value for "+key+" (prompted when omitted)")
		}
		loginCmd.RunE = keyLogin(connector, opts.loginKeys)
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which credentials the profile has",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := resolveProfile(connector)
			if err != nil {
				return err
			}
			ct, err := registry.Get(connector)
			if err != nil {
				return err
			}

			status := authStatus{
				Connector:   connector,
				Profile:     p.Name,
				Method:      ct.AuthMethod,
				Credentials: make(map[string]string),
			}
			for _, k := range ct.ConfigKeys {
				if !k.Secret && !k.Required {
					continue
				}
				if v := p.Config.Get(k.Key); v != "" {
					status.Credentials[k.Key] = "set"
				} else {
					status.Credentials[k.Key] = "missing"
				}
			}
			if p.Tokens != nil {
				status.Credentials["tokens.json"] = "set"
				if !p.Tokens.Expiry.IsZero() {
					status.TokenExpiry = p.Tokens.Expiry.Format(time.RFC3339)
				}
				status.Expired = p.Tokens.IsExpired()
				status.CanRefresh = p.Tokens.HasRefreshToken()
			}

			v := newView("KEY", "STATUS")
			keys := make([]string, 0, len(status.Credentials))
			for k := range status.Credentials {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			v.add("profile", status.Profile)
			v.add("method", string(status.Method))
			for _, k := range keys {
				v.add(k, status.Credentials[k])
			}
			if status.TokenExpiry != "" {
				v.add("token expiry", status.TokenExpiry)
			}
			return render(cmd, status, v)
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove secrets and tokens from the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireServices(); err != nil {
				return err
			}
			ct, err := registry.Get(connector)
			if err != nil {
				return err
			}
			p, err := profileService.Resolve(connector, profileFlag)
			if err != nil {
				return err
			}
			for _, k := range ct.ConfigKeys {
				if !k.Secret {
					continue
				}
				if err := profileService.UnsetConfig(connector, p.Name, k.Key); err != nil {
					return err
				}
			}
			if err := profileStore.DeleteTokens(connector, p.Name); err != nil {
				return fmt.Errorf("failed to delete tokens: %w", err)
			}
			cmd.Printf("Logged out of %s profile %q\n", connector, p.Name)
			return nil
		},
	}

	authCmd.AddCommand(loginCmd, statusCmd, logoutCmd)
	authCmd.AddCommand(opts.authCmds...)
	return authCmd
}

// keyLogin stores each key from its flag or a prompt.
func keyLogin(connector string, keys []string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		ct, err := registry.Get(connector)
		if err != nil {
			return err
		}
		p, err := profileService.Ensure(connector, profileFlag)
		if err != nil {
			return err
		}

		prompt := newPrompter(cmd)
		for _, key := range keys {
			value, _ := cmd.Flags().GetString(flagName(key))
			if value == "" {
				if ct.IsSecret(key) {
					value, err = prompt.secret(key)
				} else {
					value, err = prompt.line(key)
				}
				if err != nil {
					return err
				}
			}
			if value == "" {
				return fmt.Errorf("%s is required: %w", key, domain.ErrInvalidInput)
			}
			if err := profileService.SetConfig(connector, p.Name, key, value); err != nil {
				return err
			}
		}
		cmd.Printf("Saved %s credentials to profile %q\n", ct.Name, p.Name)
		return nil
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// prompter reads answers from the command's input. Secrets are read
// without echo when the input is a terminal.
type prompter struct {
	cmd    *cobra.Command
	in     io.Reader
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{cmd: cmd, in: in, reader: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	p.cmd.Printf("%s: ", label)
	s, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}
	p.cmd.Printf("%s: ", label)
	b, err := term.ReadPassword(int(f.Fd()))
	p.cmd.Println()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return strings.TrimSpace(string(b)), nil
}
