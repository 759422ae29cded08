package kilonova

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/relvacode/iso8601"

	"github.com/kiloprojects/go-client/pkg/request"
)

type UserBrief struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Admin    bool   `json:"admin"`
	Proposer bool   `json:"proposer"`
	Bio      string `json:"bio,omitempty"`
}

type UserFull struct {
	UserBrief
	Email             string       `json:"email,omitempty"`
	VerifiedEmail     bool         `json:"verified_email"`
	PreferredLanguage string       `json:"preferred_language"`
	CreatedAt         iso8601.Time `json:"created_at"`
}

func (u *UserFull) Brief() *UserBrief {
	if u == nil {
		return nil
	}
	return &u.UserBrief
}

// Users maps user ID to the user.
type Users map[int]*UserBrief

// UserRequest gets the user by ID.
func (a *API) UserRequest(id int) request.APIRequest[*UserBrief] {
	return newAPIRequest[UserBrief](a, RequestParams{
		Method:     http.MethodGet,
		URL:        "user/byID/{id}",
		PathParams: map[string]string{"id": strconv.Itoa(id)},
	})
}

// UsersRequest gets multiple users concurrently.
// The first user that cannot be loaded cancels the remaining requests and its error is returned.
func (a *API) UsersRequest(ids ...int) request.APIRequest[Users] {
	result := make(Users)
	lock := &sync.Mutex{}

	var reqs []request.Sendable
	seen := make(map[int]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		reqs = append(reqs, a.UserRequest(id).WithOnSuccess(func(_ context.Context, user *UserBrief) error {
			lock.Lock()
			defer lock.Unlock()
			result[id] = user
			return nil
		}))
	}

	if len(reqs) == 0 {
		return request.NewNoOperationAPIRequest(result)
	}
	return request.NewAPIRequest(result, request.FailFast(reqs...))
}
