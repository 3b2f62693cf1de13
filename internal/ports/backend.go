package ports

import (
	"context"
	"encoding/json"

	"github.com/customk9/booking-gateway/internal/domain"
)

// Backend is the raw RPC transport to the remote calendar backend. It is
// stateless: the session to ride on is passed explicitly per call.
type Backend interface {
	// Authenticate performs the remote handshake and returns a fresh session.
	Authenticate(ctx context.Context, cred domain.Credential) (domain.Session, error)

	// Execute sends one model-method call under the given session and returns
	// the raw result payload. Errors are classified (domain.Kind).
	Execute(ctx context.Context, sess domain.Session, req domain.RPCRequest) (json.RawMessage, error)

	// Logout destroys the remote session. Best-effort; an already-dead
	// session is not an error worth surfacing.
	Logout(ctx context.Context, sess domain.Session) error
}

// Caller dispatches an RPC request with session handling (attach, refresh,
// retry) applied. Implemented by the application dispatcher.
type Caller interface {
	Call(ctx context.Context, req domain.RPCRequest, level domain.PrivilegeLevel) (json.RawMessage, error)
}
