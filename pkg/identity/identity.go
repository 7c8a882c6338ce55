// Package identity provides authenticated identity management for requests.
//
// This package separates the concept of an authenticated identity from the
// raw token parsing. An Identity combines token claims (user id, email)
// with the user row loaded at authentication time and request context such
// as the client IP.
//
// # Basic Usage
//
//	id := identity.FromUser(user).WithRemoteIP(clientIP)
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Key is the context key for Identity.
const Key ContextKey = "identity"

// Identity represents the authenticated identity for a request.
type Identity struct {
	UserID    uint
	Email     string
	FullName  string
	Specialty string
	License   string
	Clinician bool

	// RemoteIP is the client address the request arrived from.
	RemoteIP net.IP

	// User is the account row loaded during authentication.
	User *model.User
}

// FromUser creates an Identity from a user row.
func FromUser(user *model.User) *Identity {
	return &Identity{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName(),
		Specialty: user.Specialty(),
		License:   user.LicenseNumber(),
		Clinician: user.IsClinician(),
		User:      user,
	}
}

// WithRemoteIP sets the client IP and returns the identity for chaining.
func (id *Identity) WithRemoteIP(ip net.IP) *Identity {
	id.RemoteIP = ip
	return id
}

// Set stores the identity in the context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

// Get retrieves the identity from the context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// ClientIP extracts the client address from a request, preferring the
// X-Forwarded-For header set by reverse proxies.
func ClientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}
