package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// claim names, in order of preference
var (
	userIDClaims   = []string{"userId", "sub", "nameid", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"}
	emailClaims    = []string{"email", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"}
	fullNameClaims = []string{"fullName", "name", "unique_name", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"}
	roleClaims     = []string{"role", "roles", "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"}
)

// parseClaims reads the profile and expiry of an access token. The signature
// is not verified: the backend does that on every call.
func parseClaims(accessToken string) (Profile, time.Time, error) {
	if accessToken == "" {
		return Profile{}, time.Time{}, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims); err != nil {
		return Profile{}, time.Time{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	prof := Profile{
		UserID:   claimString(claims, userIDClaims),
		Email:    claimString(claims, emailClaims),
		FullName: claimString(claims, fullNameClaims),
		Role:     strings.ToLower(claimString(claims, roleClaims)),
	}

	var exp time.Time
	switch v := claims["exp"].(type) {
	case float64:
		exp = time.Unix(int64(v), 0)
	case string:
		var secs int64
		if _, err := fmt.Sscan(v, &secs); err == nil {
			exp = time.Unix(secs, 0)
		}
	}
	return prof, exp, nil
}

func claimString(claims jwt.MapClaims, names []string) string {
	for _, name := range names {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case []interface{}:
			// first role wins
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}
