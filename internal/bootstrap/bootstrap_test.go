package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/filegate/filegate/config"
	"github.com/filegate/filegate/internal/adapters/authroles"
)

func memoryConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		FilesRoot:     t.TempDir(),
		ServerSecrets: []string{"test-secret"},
		Storage:       config.StorageConfig{Policies: config.BackendMemory},
		Auth: config.AuthConfig{
			Mode:       config.AuthModeNone,
			AdminRoles: []string{"administrator"},
			// Hand-built config skips env.Parse, so mirror the DEV_AUTH_
			// env defaults the mock-mode provider requires.
			DevAuth: config.DevAuthConfig{
				UserID: "dev-user",
				Email:  "dev@example.com",
				Groups: []string{"administrator"},
			},
		},
	}
}

func TestCreateCipherWithSecrets(t *testing.T) {
	cipher := CreateCipher([]string{"alpha", "beta"}, nil)

	ct, err := cipher.Encrypt([]byte("hunter2"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(ct, "v1:") {
		t.Errorf("ciphertext = %q, want v1: prefix", ct)
	}
	pt, err := cipher.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hunter2" {
		t.Errorf("round trip = %q", pt)
	}
}

func TestCreateCipherDegradedWithoutSecrets(t *testing.T) {
	cipher := CreateCipher(nil, nil)

	ct, err := cipher.Encrypt([]byte("hunter2"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(ct, "plain:") {
		t.Errorf("ciphertext = %q, want plain: prefix", ct)
	}
}

func TestBuildRoleMapper(t *testing.T) {
	passthrough := BuildRoleMapper(config.AuthConfig{})
	if _, ok := passthrough.(authroles.PassThroughRoleMapper); !ok {
		t.Errorf("no aliases should yield PassThroughRoleMapper, got %T", passthrough)
	}

	mapped := BuildRoleMapper(config.AuthConfig{RoleAliases: []string{"wp-admins=administrator"}})
	roles := mapped.Map([]string{"wp-admins", "other"})
	found := false
	for _, r := range roles {
		if r == "administrator" {
			found = true
		}
	}
	if !found {
		t.Errorf("Map(wp-admins) = %v, want administrator present", roles)
	}
}

func TestNewServicesMemoryBackend(t *testing.T) {
	cfg := memoryConfig(t)
	services, err := NewServices(context.Background(), &ServiceDeps{Config: cfg})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	if services.Gate == nil || services.Policies == nil || services.Sessions == nil || services.Resolver == nil {
		t.Fatalf("incomplete container: %+v", services)
	}
	if services.Identity.Login != nil || services.Identity.HostIdentity != nil {
		t.Errorf("auth mode none should have no identity surfaces")
	}
}

func TestNewServicesHeaderMode(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Auth.Mode = config.AuthModeHeader
	cfg.Auth.Header.UserHeader = "X-Auth-User"

	services, err := NewServices(context.Background(), &ServiceDeps{Config: cfg})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	host := services.Identity.HostIdentity
	if host == nil {
		t.Fatal("header mode should build host identity")
	}
	if host.UserHeader != "X-Auth-User" {
		t.Errorf("UserHeader = %q", host.UserHeader)
	}
}

func TestNewServicesMockModeRequiresDev(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Auth.Mode = config.AuthModeMock

	if _, err := NewServices(context.Background(), &ServiceDeps{Config: cfg}); err == nil {
		t.Fatal("mock mode outside dev should be refused")
	}

	cfg.IsDev = true
	services, err := NewServices(context.Background(), &ServiceDeps{Config: cfg})
	if err != nil {
		t.Fatalf("NewServices dev mock: %v", err)
	}
	if services.Identity.Login == nil {
		t.Error("mock mode should build a login service")
	}
}

func TestNewHTTPServerDefaultsAddr(t *testing.T) {
	cfg := memoryConfig(t)
	services, err := NewServices(context.Background(), &ServiceDeps{Config: cfg})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	server := NewHTTPServer(cfg, services, nil)
	if server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", server.Addr)
	}
	if server.Handler == nil {
		t.Error("Handler is nil")
	}
}
