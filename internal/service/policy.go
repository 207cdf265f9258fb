package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/filegate/filegate/internal/data/cryptoutil"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/ports"
)

// PolicyServiceOptions groups dependencies for PolicyService.
type PolicyServiceOptions struct {
	Store  ports.PolicyStore    // Required: policy store
	Cipher cryptoutil.Encryptor // Required: credential cipher
	Logger *slog.Logger         // Optional: structured logger
}

// PolicyService is the admin-facing surface over the policy store. It owns
// the plaintext-to-ciphertext boundary: passwords arrive in plaintext from
// the admin API and are encrypted here, so the store never sees them.
type PolicyService struct {
	store  ports.PolicyStore
	cipher cryptoutil.Encryptor
	logger *slog.Logger
}

// NewPolicyService constructs a new PolicyService.
func NewPolicyService(opts PolicyServiceOptions) (*PolicyService, error) {
	if opts.Store == nil {
		return nil, errors.New("PolicyStore is required")
	}
	if opts.Cipher == nil {
		return nil, errors.New("Encryptor is required")
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "policy_service")
	}
	return &PolicyService{store: opts.Store, cipher: opts.Cipher, logger: logger}, nil
}

// PolicyInput is an admin-submitted policy. Password is plaintext; empty
// means "keep the stored password unchanged".
type PolicyInput struct {
	Methods      []policy.Method
	AllowedRoles []string
	Password     string
}

// PolicyView is a policy as reported back to admins. The ciphertext never
// leaves the service; only its presence is exposed.
type PolicyView struct {
	Methods      []policy.Method `json:"methods"`
	AllowedRoles []string        `json:"allowed_roles"`
	HasPassword  bool            `json:"has_password"`
}

func viewOf(p policy.Policy) PolicyView {
	return PolicyView{
		Methods:      p.Methods,
		AllowedRoles: p.AllowedRoles,
		HasPassword:  p.PasswordCiphertext != "",
	}
}

func (s *PolicyService) toPolicy(in PolicyInput) (policy.Policy, error) {
	p := policy.Policy{
		Methods:      policy.NormalizeMethods(in.Methods),
		AllowedRoles: in.AllowedRoles,
	}
	if in.Password != "" {
		ct, err := s.cipher.Encrypt([]byte(in.Password))
		if err != nil {
			return policy.Policy{}, fmt.Errorf("encrypt password: %w", err)
		}
		p.PasswordCiphertext = ct
	}
	return p, nil
}

// Global returns the current global policy.
func (s *PolicyService) Global(ctx context.Context) (PolicyView, error) {
	p, err := s.store.Global(ctx)
	if err != nil {
		return PolicyView{}, err
	}
	return viewOf(p), nil
}

// SetGlobal replaces the global policy.
func (s *PolicyService) SetGlobal(ctx context.Context, in PolicyInput) error {
	p, err := s.toPolicy(in)
	if err != nil {
		return err
	}
	if err := s.store.SetGlobal(ctx, p); err != nil {
		return err
	}
	s.info(ctx, "global policy updated", "methods", p.Methods)
	return nil
}

// Directory returns the override for the exact directory key, if any.
func (s *PolicyService) Directory(ctx context.Context, dir string) (PolicyView, bool, error) {
	p, ok, err := s.store.Directory(ctx, dir)
	if err != nil || !ok {
		return PolicyView{}, false, err
	}
	return viewOf(p), true, nil
}

// Directories returns all directory overrides keyed by normalized path.
func (s *PolicyService) Directories(ctx context.Context) (map[string]PolicyView, error) {
	all, err := s.store.Directories(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]PolicyView, len(all))
	for dir, p := range all {
		out[dir] = viewOf(p)
	}
	return out, nil
}

// SetDirectory upserts a directory override.
func (s *PolicyService) SetDirectory(ctx context.Context, dir string, in PolicyInput) error {
	p, err := s.toPolicy(in)
	if err != nil {
		return err
	}
	key := policy.NormalizeDirKey(dir)
	if err := s.store.SetDirectory(ctx, key, p); err != nil {
		return err
	}
	s.info(ctx, "directory policy updated", "directory", key, "methods", p.Methods)
	return nil
}

// RemoveDirectory deletes a directory override. The watermark bump that
// accompanies an actual removal invalidates every open session.
func (s *PolicyService) RemoveDirectory(ctx context.Context, dir string) error {
	key := policy.NormalizeDirKey(dir)
	if err := s.store.RemoveDirectory(ctx, key); err != nil {
		return err
	}
	s.info(ctx, "directory policy removed", "directory", key)
	return nil
}

func (s *PolicyService) info(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
