package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// withClient resolves the connector's profile, builds its client and runs fn.
func withClient[C any](
	connector string,
	build func(domain.Profile) (C, error),
	fn func(cmd *cobra.Command, c C, args []string) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfile(connector)
		if err != nil {
			return err
		}
		c, err := build(p)
		if err != nil {
			return err
		}
		return fn(cmd, c, args)
	}
}

// parseAssignments splits "key=value" pairs. Values may contain '='.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q: %w", pair, domain.ErrInvalidInput)
		}
		out[k] = v
	}
	return out, nil
}

// decodeJSONArg decodes s into out. A leading '@' names a file to read.
func decodeJSONArg(s string, out any) error {
	data := []byte(s)
	if name, ok := strings.CutPrefix(s, "@"); ok {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// stringMap converts assignments to a map[string]any for form bodies.
func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
