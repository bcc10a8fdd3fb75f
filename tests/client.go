package testutil

import (
	"github.com/kohkiet/swp-lms/core/apiclient"
)

// StaticToken is a fixed apiclient.TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client returns an api client for the backend authenticated with token ("" for anonymous calls).
func (b *Backend) Client(token string) *apiclient.Client {
	return apiclient.New(apiclient.Options{BaseURL: b.URL, Tokens: StaticToken(token)})
}
