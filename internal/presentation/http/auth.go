package httppresentation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
)

const headerUserID = "X-User-ID"

// Authenticator resolves the caller. A request without credentials yields the zero Principal;
// the use cases decide whether that is acceptable.
type Authenticator interface {
	Authenticate(r *http.Request) (user.Principal, error)
}

// HeaderAuthenticator trusts an upstream gateway that has already verified the session and
// forwards the user id. The role always comes from the user store.
type HeaderAuthenticator struct {
	users user.Repository
}

func NewHeaderAuthenticator(users user.Repository) *HeaderAuthenticator {
	return &HeaderAuthenticator{users: users}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (user.Principal, error) {
	id := strings.TrimSpace(r.Header.Get(headerUserID))
	if id == "" {
		return user.Principal{}, nil
	}
	u, err := a.users.Get(r.Context(), id)
	if errors.Is(err, user.ErrNotFound) {
		return user.Principal{}, user.ErrUnauthenticated
	}
	if err != nil {
		return user.Principal{}, err
	}
	return user.Principal{UserID: u.ID, Role: u.Role}, nil
}
