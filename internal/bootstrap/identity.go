package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/filegate/filegate/config"
	"github.com/filegate/filegate/internal/adapters/authroles"
	"github.com/filegate/filegate/internal/adapters/devauth"
	"github.com/filegate/filegate/internal/adapters/hostauth"
	"github.com/filegate/filegate/internal/adapters/oidc"
	"github.com/filegate/filegate/internal/ports"
	"github.com/filegate/filegate/internal/service"
)

// Identity groups the optional identity surfaces: an OAuth login service,
// trusted-header resolution, or neither (password-only gating).
type Identity struct {
	Login        *service.LoginService
	HostIdentity *hostauth.HeaderIdentity
}

// BuildRoleMapper returns the group-to-role mapper for the configured
// aliases. No aliases means groups pass through verbatim.
//
//nolint:ireturn // Returning the port keeps mapper selection behind bootstrap.
func BuildRoleMapper(cfg config.AuthConfig) ports.RoleMapper {
	aliases := cfg.RoleAliasMap()
	if len(aliases) == 0 {
		return authroles.PassThroughRoleMapper{}
	}
	return authroles.StaticRoleMapper{Aliases: aliases}
}

// BuildIdentity constructs the identity surfaces for the configured auth
// mode. Mock mode is refused outside development.
func BuildIdentity(cfg *config.AppConfig, sessions *service.SessionService, logger *slog.Logger) (Identity, error) {
	roles := BuildRoleMapper(cfg.Auth)

	switch cfg.Auth.Mode {
	case config.AuthModeNone:
		return Identity{}, nil

	case config.AuthModeHeader:
		host := hostauth.New(roles)
		if h := cfg.Auth.Header.UserHeader; h != "" {
			host.UserHeader = h
		}
		if h := cfg.Auth.Header.GroupsHeader; h != "" {
			host.GroupsHeader = h
		}
		if logger != nil {
			logger.Info("identity from trusted proxy headers",
				"user_header", host.UserHeader,
				"groups_header", host.GroupsHeader,
			)
		}
		return Identity{HostIdentity: host}, nil

	case config.AuthModeOAuth:
		provider, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.Auth.OAuth.ClientID,
			ClientSecret: cfg.Auth.OAuth.ClientSecret,
			RedirectURL:  cfg.Auth.OAuth.RedirectURL,
			Scope:        cfg.Auth.OAuth.Scope,
			DiscoveryURL: cfg.Auth.OAuth.DiscoveryURL,
			LogoutURL:    cfg.Auth.OAuth.LogoutURL,
		})
		if err != nil {
			return Identity{}, fmt.Errorf("create oidc provider: %w", err)
		}
		login, err := service.NewLoginService(service.LoginServiceOptions{
			Provider: provider,
			Roles:    roles,
			Sessions: sessions,
		})
		if err != nil {
			return Identity{}, fmt.Errorf("create login service: %w", err)
		}
		return Identity{Login: login}, nil

	case config.AuthModeMock:
		if !cfg.IsDev {
			return Identity{}, fmt.Errorf("auth mode %q is only allowed in development", cfg.Auth.Mode)
		}
		provider, err := devauth.NewProvider(devauth.Config{
			UserID: cfg.Auth.DevAuth.UserID,
			Email:  cfg.Auth.DevAuth.Email,
			Groups: cfg.Auth.DevAuth.Groups,
		})
		if err != nil {
			return Identity{}, fmt.Errorf("create dev provider: %w", err)
		}
		login, err := service.NewLoginService(service.LoginServiceOptions{
			Provider: provider,
			Roles:    roles,
			Sessions: sessions,
		})
		if err != nil {
			return Identity{}, fmt.Errorf("create login service: %w", err)
		}
		if logger != nil {
			logger.Warn("mock identity enabled", "user_id", cfg.Auth.DevAuth.UserID)
		}
		return Identity{Login: login}, nil

	default:
		return Identity{}, fmt.Errorf("unsupported auth mode: %q", cfg.Auth.Mode)
	}
}
