// Package guard gates routes on authentication and role.
package guard

import (
	"context"
	"net/url"

	"weddingsite/internal/model"
	"weddingsite/internal/role"
)

// State is the guard's position in checking -> {allowed, redirected}.
type State string

const (
	Checking   State = "checking"
	Allowed    State = "allowed"
	Redirected State = "redirected"
)

// Input is everything a decision depends on.
type Input struct {
	Loading      bool
	Identity     *model.Identity
	RequireAdmin bool
	RoleLoading  bool
	Role         role.Role
	Location     string
}

// Decision is the outcome for one evaluation.
type Decision struct {
	State State  `json:"state"`
	To    string `json:"redirect_to,omitempty"`
	From  string `json:"from,omitempty"`
}

// Paths are the redirect targets.
type Paths struct {
	Login   string
	Default string
}

// RoleSource resolves the role of an identity.
type RoleSource interface {
	Resolve(ctx context.Context, identity *model.Identity) role.Role
}

// Evaluate decides what to do with a request for in.Location.
func (p Paths) Evaluate(in Input) Decision {
	if in.Loading {
		return Decision{State: Checking}
	}
	if in.Identity == nil {
		return Decision{State: Redirected, To: p.loginURL(in.Location), From: in.Location}
	}
	if !in.RequireAdmin {
		return Decision{State: Allowed}
	}
	if in.RoleLoading {
		return Decision{State: Checking}
	}
	if in.Role != role.Admin {
		return Decision{State: Redirected, To: p.Default, From: in.Location}
	}
	return Decision{State: Allowed}
}

func (p Paths) loginURL(from string) string {
	if from == "" {
		return p.Login
	}
	return p.Login + "?next=" + url.QueryEscape(from)
}
