package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
)

// Credentials are validated before being sent.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Tokens
	Token string   `json:"token"` // older backends
	User  *Profile `json:"user"`
}

// Auth logs users in and out of the backend.
type Auth struct {
	api     *apiclient.Client
	session *Session
	logger  core.Logger
}

func NewAuth(api *apiclient.Client, sess *Session, logger core.Logger) *Auth {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Auth{api: api, session: sess, logger: logger}
}

// Login exchanges credentials for tokens and starts the session.
func (a *Auth) Login(ctx context.Context, creds Credentials) (Profile, error) {
	creds.Email = core.CleanString(creds.Email, true /* lower */)
	if err := core.ValidateStruct(creds); err != nil {
		return Profile{}, err
	}

	res := a.api.Post(ctx, "/api/auth/login", creds)
	if err := res.Err(); err != nil {
		return Profile{}, errors.Wrap(err, "logging in")
	}
	var resp loginResponse
	if err := res.Decode(&resp); err != nil {
		return Profile{}, err
	}
	if resp.AccessToken == "" {
		resp.AccessToken = resp.Token
	}
	if resp.AccessToken == "" {
		return Profile{}, errors.Wrap(ErrInvalidToken, "login response carries no token")
	}

	var prof []Profile
	if resp.User != nil {
		prof = append(prof, *resp.User)
	}
	if err := a.session.Init(ctx, resp.Tokens, prof...); err != nil {
		return Profile{}, err
	}
	p := a.session.Profile()
	a.logger.Info("logged in", p)
	return p, nil
}

// Logout notifies the backend (best effort) and clears the session.
func (a *Auth) Logout(ctx context.Context) error {
	if a.session.IsAuthenticated() {
		res := a.api.Post(ctx, "/api/auth/logout", map[string]string{"refreshToken": a.session.RefreshToken()}, apiclient.Protected())
		if !res.Success {
			a.logger.Warn("logout call failed: "+res.Error, map[string]interface{}{"status": res.Status})
		}
	}
	return a.session.Clear(ctx)
}

// Me fetches the current profile from the backend.
func (a *Auth) Me(ctx context.Context) (Profile, error) {
	res := a.api.Get(ctx, "/api/auth/me", apiclient.Protected())
	if err := res.Err(); err != nil {
		return Profile{}, errors.Wrap(err, "fetching profile")
	}
	var p Profile
	if err := res.Decode(&p); err != nil {
		return Profile{}, err
	}
	p.Role = strings.ToLower(p.Role)
	return p, nil
}
