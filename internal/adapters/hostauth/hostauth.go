// Package hostauth derives the request identity from trusted
// reverse-proxy headers. It is meant for deployments where an auth proxy
// in front of the gate has already authenticated the user; the headers
// must be stripped from client traffic at the edge.
package hostauth

import (
	"net/http"
	"strings"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
)

// Default header names, compatible with common auth proxies.
const (
	DefaultUserHeader   = "X-Forwarded-User"
	DefaultGroupsHeader = "X-Forwarded-Groups"
)

// HeaderIdentity reads the authenticated user and group list from request
// headers and maps groups to gate roles.
type HeaderIdentity struct {
	UserHeader   string
	GroupsHeader string
	Roles        ports.RoleMapper
}

// New creates a HeaderIdentity with the default header names.
func New(roles ports.RoleMapper) *HeaderIdentity {
	return &HeaderIdentity{
		UserHeader:   DefaultUserHeader,
		GroupsHeader: DefaultGroupsHeader,
		Roles:        roles,
	}
}

// Identify returns the identity asserted by the proxy headers. A missing
// or empty user header yields the anonymous identity.
func (h *HeaderIdentity) Identify(r *http.Request) domainauth.Identity {
	user := strings.TrimSpace(r.Header.Get(h.UserHeader))
	if user == "" {
		return domainauth.Identity{}
	}

	var groups []string
	for _, g := range strings.Split(r.Header.Get(h.GroupsHeader), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	var roles []string
	if h.Roles != nil {
		roles = h.Roles.Map(groups)
	}

	return domainauth.Identity{
		LoggedIn: true,
		UserID:   user,
		Roles:    roles,
	}
}
