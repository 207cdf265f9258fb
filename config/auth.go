package config

import (
	"fmt"
	"strings"
)

// AuthMode selects how request identity is established.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC login.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeHeader trusts reverse-proxy identity headers.
	AuthModeHeader AuthMode = "header"
	// AuthModeMock uses a fixed dev identity (development only).
	AuthModeMock AuthMode = "mock"
	// AuthModeNone disables host identity; only simple passwords can
	// grant access.
	AuthModeNone AuthMode = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "header", "mock", "none":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, header, mock, none)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"filegate"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"filegate"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// HeaderAuthConfig names the trusted proxy headers (Mode=header).
type HeaderAuthConfig struct {
	UserHeader   string `env:"USER_HEADER"   envDefault:"X-Forwarded-User"`
	GroupsHeader string `env:"GROUPS_HEADER" envDefault:"X-Forwarded-Groups"`
}

// DevAuthConfig controls the mock identity (Mode=mock).
type DevAuthConfig struct {
	UserID string   `env:"USER_ID" envDefault:"dev-user"`
	Email  string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Groups []string `env:"GROUPS"  envDefault:"administrator"   envSeparator:";"`
}

// AuthConfig groups all identity configuration.
type AuthConfig struct {
	// Mode determines how identity is established.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"none"`

	// OAuth configuration (Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// Header configuration (Mode=header).
	Header HeaderAuthConfig `envPrefix:"HEADER_AUTH_"`

	// DevAuth configuration (Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RoleAliases maps provider group names to gate roles, as
	// "group=role" pairs. Empty means groups pass through verbatim.
	RoleAliases []string `env:"ROLE_ALIASES" envSeparator:";"`

	// AdminRoles may manage policies through the admin API.
	AdminRoles []string `env:"ADMIN_ROLES" envDefault:"administrator" envSeparator:";"`
}

// Sanitize drops malformed role alias entries.
func (a *AuthConfig) Sanitize() {
	valid := a.RoleAliases[:0]
	for _, pair := range a.RoleAliases {
		group, role, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(group) != "" && strings.TrimSpace(role) != "" {
			valid = append(valid, pair)
		}
	}
	a.RoleAliases = valid
}

// RoleAliasMap parses RoleAliases into a lookup table.
func (a *AuthConfig) RoleAliasMap() map[string]string {
	out := map[string]string{}
	for _, pair := range a.RoleAliases {
		group, role, ok := strings.Cut(pair, "=")
		if ok {
			out[strings.TrimSpace(group)] = strings.TrimSpace(role)
		}
	}
	return out
}
