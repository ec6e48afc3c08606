package directory

import (
	"context"
	"net"
	"strings"

	"chat-node/internal/apperrors"
)

// Resolver maps a node identity to a dialable host:port.
type Resolver interface {
	Resolve(ctx context.Context, identity string) (string, error)
}

// StaticResolver serves configured addresses. Unknown identities are assumed
// to be resolvable host names listening on the default peer port.
type StaticResolver struct {
	peers       map[string]string
	defaultPort string
}

func NewStaticResolver(peers map[string]string, defaultPort string) *StaticResolver {
	copied := make(map[string]string, len(peers))
	for k, v := range peers {
		copied[k] = v
	}
	return &StaticResolver{peers: copied, defaultPort: defaultPort}
}

func (r *StaticResolver) Resolve(_ context.Context, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", apperrors.ErrInvalidRecipient
	}
	if addr, ok := r.peers[identity]; ok {
		return addr, nil
	}
	if r.defaultPort == "" {
		return "", apperrors.NotFound("no address known for peer " + identity)
	}
	return net.JoinHostPort(identity, r.defaultPort), nil
}
