// Package role derives the admin/user role of an identity.
package role

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"weddingsite/internal/metrics"
	"weddingsite/internal/model"
)

// Role is the binary authorization level of an identity.
type Role string

const (
	Admin Role = "admin"
	User  Role = "user"
)

// DefaultTimeout bounds the profile lookup. A stalled lookup resolves to User.
const DefaultTimeout = 4 * time.Second

// ProfileFinder reads the profile row of an identity. It returns
// gorm.ErrRecordNotFound when there is none.
type ProfileFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
}

// Resolver maps identities to roles. It holds no per-identity state, so
// concurrent resolutions for different identities are independent.
type Resolver struct {
	profiles ProfileFinder
	timeout  time.Duration
	log      zerolog.Logger
	group    singleflight.Group
}

// NewResolver creates a resolver. A non-positive timeout uses DefaultTimeout.
func NewResolver(profiles ProfileFinder, timeout time.Duration, log zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{profiles: profiles, timeout: timeout, log: log}
}

type lookup struct {
	flag *bool
	err  error
}

// Resolve returns the role of identity. A nil identity, a missing profile and
// a failed or stalled lookup all resolve to User unless the identity's own
// metadata grants admin.
func (r *Resolver) Resolve(ctx context.Context, identity *model.Identity) Role {
	if identity == nil {
		metrics.RoleResolutions.WithLabelValues("anonymous").Inc()
		return User
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	result := r.group.DoChan(identity.ID.String(), func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		p, err := r.profiles.FindByUserID(qctx, identity.ID)
		if err != nil {
			return lookup{err: err}, nil
		}
		return lookup{flag: p.IsAdmin}, nil
	})

	select {
	case res := <-result:
		l := res.Val.(lookup)
		return r.decide(identity, l)
	case <-timer.C:
		r.log.Warn().Str("user_id", identity.ID.String()).Dur("timeout", r.timeout).Msg("role lookup timed out, defaulting to user")
		metrics.RoleResolutions.WithLabelValues("timeout").Inc()
		return User
	case <-ctx.Done():
		metrics.RoleResolutions.WithLabelValues("cancelled").Inc()
		return User
	}
}

func (r *Resolver) decide(identity *model.Identity, l lookup) Role {
	switch {
	case l.err != nil && !errors.Is(l.err, gorm.ErrRecordNotFound):
		r.log.Warn().Err(l.err).Str("user_id", identity.ID.String()).Msg("role lookup failed, defaulting to user")
		metrics.RoleResolutions.WithLabelValues("error").Inc()
		return User
	case l.flag != nil:
		return r.count(roleOf(*l.flag))
	default:
		return r.count(roleOf(MetadataAdmin(identity.Metadata)))
	}
}

func (r *Resolver) count(role Role) Role {
	metrics.RoleResolutions.WithLabelValues(string(role)).Inc()
	return role
}

// MetadataAdmin reports whether sign-up metadata marks the identity as admin.
func MetadataAdmin(m model.Metadata) bool {
	if v, ok := m.Bool("is_admin"); ok {
		return v
	}
	return m.String("role") == string(Admin)
}

func roleOf(admin bool) Role {
	if admin {
		return Admin
	}
	return User
}
