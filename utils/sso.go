package utils

import (
	"errors"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	ssoJWKS     *keyfunc.JWKS
	ssoJWKSOnce sync.Once
)

// SSOClaims is what the campus identity provider asserts about a caller.
// The core only ever needs the stable email identity; tokens are never
// re-validated past this point.
type SSOClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	jwt.RegisteredClaims
}

func loadSSOJWKS() error {
	var loadErr error
	ssoJWKSOnce.Do(func() {
		url := os.Getenv("SSO_JWKS_URL")
		if url == "" {
			loadErr = errors.New("SSO_JWKS_URL is not configured")
			return
		}
		resp, err := http.Get(url)
		if err != nil {
			loadErr = err
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			loadErr = err
			return
		}
		ssoJWKS, loadErr = keyfunc.NewJSON(body)
	})
	if loadErr != nil {
		return loadErr
	}
	if ssoJWKS == nil {
		return errors.New("SSO JWKS unavailable")
	}
	return nil
}

// VerifySSOToken validates an identity-provider token against the campus
// JWKS and returns its claims.
func VerifySSOToken(tokenString string) (*SSOClaims, error) {
	if err := loadSSOJWKS(); err != nil {
		return nil, err
	}

	claims := &SSOClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ssoJWKS.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Email == "" {
		return nil, errors.New("invalid SSO token")
	}
	return claims, nil
}
