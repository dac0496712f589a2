package guard

import (
	"context"

	"weddingsite/internal/role"
	"weddingsite/internal/session"
)

// Watch emits a decision for location now and again on every session change
// until ctx ends or emit fails. The first decision is always Checking.
func Watch(ctx context.Context, resolver *session.Resolver, roles RoleSource, paths Paths, location string, requireAdmin bool, emit func(Decision) error) error {
	if err := emit(paths.Evaluate(Input{Loading: true, Location: location})); err != nil {
		return err
	}

	resolver.Init(ctx)
	changes, unsubscribe := resolver.Subscribe()
	defer unsubscribe()
	go resolver.Run(ctx)

	evaluate := func() error {
		in := Input{
			Identity:     resolver.CurrentUser(),
			RequireAdmin: requireAdmin,
			Role:         role.User,
			Location:     location,
		}
		if in.Identity != nil && requireAdmin {
			in.RoleLoading = true
			if err := emit(paths.Evaluate(in)); err != nil {
				return err
			}
			in.Role = roles.Resolve(ctx, in.Identity)
			in.RoleLoading = false
		}
		return emit(paths.Evaluate(in))
	}

	if err := evaluate(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := evaluate(); err != nil {
				return err
			}
		}
	}
}
