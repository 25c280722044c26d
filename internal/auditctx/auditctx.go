// Package auditctx carries the acting user and their active organization from
// the HTTP layer down to the audit log.
package auditctx

import "context"

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID         string
	Email          string
	OrganizationID string
	IPAddress      string
	UserAgent      string
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// WithOrganization scopes the actor on ctx to organizationID, overriding the
// organization selected by the request. An empty id leaves ctx unchanged.
func WithOrganization(ctx context.Context, organizationID string) context.Context {
	if organizationID == "" {
		return ctx
	}
	actor, _ := FromContext(ctx)
	actor.OrganizationID = organizationID
	return WithActor(ctx, actor)
}
