// Package authctx declares the narrow seam between the gateway and whatever
// authentication provider fronts it (OAuth/password, session cookie, reverse-proxy
// header injection). spec.md §1 treats authentication as an external black box that
// yields an actor context; this package names that boundary without implementing it.
package authctx

import "context"

// Actor is the authenticated identity an external auth collaborator resolves a
// request to. The gateway itself never issues or validates credentials.
type Actor struct {
	ID    string
	Email string
	Roles []string
}

// Resolver resolves the actor bound to ctx, set by whatever auth middleware or
// reverse proxy sits in front of ashfoxd. No implementation lives in this module.
type Resolver interface {
	Actor(ctx context.Context) (Actor, error)
}
