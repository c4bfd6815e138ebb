package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
)

// Ensure ConnectorRegistry implements the interface.
var _ driving.ConnectorRegistry = (*ConnectorRegistry)(nil)

// Connector IDs. They double as state directory names.
const (
	ConnectorNotion      = "notion"
	ConnectorMetaAds     = "metaads"
	ConnectorStripe      = "stripe"
	ConnectorCloudflare  = "cloudflare"
	ConnectorMixpanel    = "mixpanel"
	ConnectorGoogleDrive = "googledrive"
)

// ConnectorRegistry provides information about available connector types.
type ConnectorRegistry struct {
	connectors map[string]domain.ConnectorType
}

// NewConnectorRegistry creates a new connector registry with built-in connectors.
func NewConnectorRegistry() *ConnectorRegistry {
	r := &ConnectorRegistry{
		connectors: make(map[string]domain.ConnectorType),
	}
	r.registerBuiltinConnectors()
	return r
}

func (r *ConnectorRegistry) registerBuiltinConnectors() {
	r.registerNotion()
	r.registerMetaAds()
	r.registerStripe()
	r.registerCloudflare()
	r.registerMixpanel()
	r.registerGoogleDrive()
}

func baseURLKey() domain.ConfigKey {
	return domain.ConfigKey{Key: domain.KeyBaseURL, Description: "Override the API base URL"}
}

func (r *ConnectorRegistry) registerNotion() {
	r.connectors[ConnectorNotion] = domain.ConnectorType{
		ID:          ConnectorNotion,
		Name:        "Notion",
		Description: "Pages, databases, blocks, comments and bulk property updates",
		EnvPrefix:   "NOTION",
		AuthMethod:  domain.AuthMethodAPIKey,
		ConfigKeys: []domain.ConfigKey{
			{Key: domain.KeyAPIKey, Description: "Internal integration secret", Secret: true},
			{Key: domain.KeyAccessToken, Description: "OAuth access token (public integrations)", Secret: true},
			{Key: domain.KeyRefreshToken, Description: "OAuth refresh token", Secret: true},
			{Key: domain.KeyClientID, Description: "OAuth client ID"},
			{Key: domain.KeyClientSecret, Description: "OAuth client secret", Secret: true},
			{Key: "version", Description: "Notion-Version header"},
			baseURLKey(),
		},
	}
}

func (r *ConnectorRegistry) registerMetaAds() {
	r.connectors[ConnectorMetaAds] = domain.ConnectorType{
		ID:          ConnectorMetaAds,
		Name:        "Meta Ads",
		Description: "Campaigns, ad sets, ads, creatives, insights and media uploads",
		EnvPrefix:   "META",
		AuthMethod:  domain.AuthMethodOAuth,
		ConfigKeys: []domain.ConfigKey{
			{Key: domain.KeyAccessToken, Description: "Graph API access token", Required: true, Secret: true},
			{Key: "ad_account_id", Description: "Default ad account (act_ prefix optional)"},
			{Key: domain.KeyClientID, Description: "App ID, used to exchange long-lived tokens"},
			{Key: domain.KeyClientSecret, Description: "App secret", Secret: true},
			{Key: "api_version", Description: "Graph API version, e.g. v19.0"},
			baseURLKey(),
		},
	}
}

func (r *ConnectorRegistry) registerStripe() {
	r.connectors[ConnectorStripe] = domain.ConnectorType{
		ID:          ConnectorStripe,
		Name:        "Stripe",
		Description: "Customers, products, prices, invoices, payments and subscriptions",
		EnvPrefix:   "STRIPE",
		AuthMethod:  domain.AuthMethodAPIKey,
		ConfigKeys: []domain.ConfigKey{
			{Key: domain.KeyAPIKey, Description: "Secret or restricted key", Required: true, Secret: true},
			{Key: "account", Description: "Connected account ID (Stripe-Account)"},
			{Key: "version", Description: "Stripe-Version header"},
			baseURLKey(),
		},
	}
}

func (r *ConnectorRegistry) registerCloudflare() {
	r.connectors[ConnectorCloudflare] = domain.ConnectorType{
		ID:          ConnectorCloudflare,
		Name:        "Cloudflare",
		Description: "Zones, DNS records, cache purges and zone settings",
		EnvPrefix:   "CLOUDFLARE",
		AuthMethod:  domain.AuthMethodAPIKey,
		ConfigKeys: []domain.ConfigKey{
			{Key: "api_token", Description: "Scoped API token", Secret: true},
			{Key: domain.KeyAPIKey, Description: "Global API key (with email)", Secret: true},
			{Key: "email", Description: "Account email for the global API key"},
			{Key: "account_id", Description: "Default account ID"},
			baseURLKey(),
		},
	}
}

func (r *ConnectorRegistry) registerMixpanel() {
	r.connectors[ConnectorMixpanel] = domain.ConnectorType{
		ID:          ConnectorMixpanel,
		Name:        "Mixpanel",
		Description: "Event import and export, queries, profiles, annotations and cohorts",
		EnvPrefix:   "MIXPANEL",
		AuthMethod:  domain.AuthMethodBasic,
		ConfigKeys: []domain.ConfigKey{
			{Key: domain.KeyAPIKey, Description: "Service account secret", Required: true, Secret: true},
			{Key: "username", Description: "Service account username", Required: true},
			{Key: "project_id", Description: "Project ID", Required: true},
			{Key: "region", Description: "Data residency: us or eu"},
			{Key: "project_token", Description: "Project token for profile updates", Secret: true},
		},
	}
}

func (r *ConnectorRegistry) registerGoogleDrive() {
	r.connectors[ConnectorGoogleDrive] = domain.ConnectorType{
		ID:          ConnectorGoogleDrive,
		Name:        "Google Drive",
		Description: "Files, changes, push channels, permissions and shared drives",
		EnvPrefix:   "GOOGLEDRIVE",
		AuthMethod:  domain.AuthMethodOAuth,
		ConfigKeys: []domain.ConfigKey{
			{Key: domain.KeyAccessToken, Description: "OAuth access token", Secret: true},
			{Key: domain.KeyRefreshToken, Description: "OAuth refresh token", Secret: true},
			{Key: domain.KeyClientID, Description: "OAuth client ID", Required: true},
			{Key: domain.KeyClientSecret, Description: "OAuth client secret", Required: true, Secret: true},
			{Key: domain.KeyServiceAccountKey, Description: "Path of a service account JSON key, used instead of OAuth"},
			{Key: domain.KeyServiceAccountSubject, Description: "User a service account impersonates"},
			{Key: "webhook_url", Description: "HTTPS address receiving change notifications"},
			{Key: "state_db", Description: "Path of the local state database"},
			baseURLKey(),
		},
	}
}

// List returns all available connector types sorted by ID.
func (r *ConnectorRegistry) List() []domain.ConnectorType {
	result := make([]domain.ConnectorType, 0, len(r.connectors))
	for _, ct := range r.connectors {
		result = append(result, ct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns a connector type by ID.
func (r *ConnectorRegistry) Get(id string) (domain.ConnectorType, error) {
	ct, ok := r.connectors[id]
	if !ok {
		return domain.ConnectorType{}, fmt.Errorf("connector %q: %w", id, domain.ErrUnsupportedType)
	}
	return ct, nil
}
