package panel

import (
	"context"

	"google.golang.org/grpc/metadata"

	domain "github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// Metadata keys carrying the caller identity.
const (
	MetadataHostname = "x-actor-hostname"
	MetadataUsername = "x-actor-username"
)

// WithActor returns an outgoing context that identifies actor to the server.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		MetadataHostname, actor.Hostname,
		MetadataUsername, actor.Username,
	)
}

// actorFromContext reads the caller identity from incoming metadata.
// It returns nil when the caller did not identify itself.
func actorFromContext(ctx context.Context) *domain.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	actor := &domain.Actor{
		Hostname: firstValue(md, MetadataHostname),
		Username: firstValue(md, MetadataUsername),
	}

	if actor.Hostname == "" && actor.Username == "" {
		return nil
	}

	return actor
}

func firstValue(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
