package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCProvider holds the subset of an OpenID Connect discovery document the
// server needs to validate bearer tokens. Only the JWKS URI is required; the
// remaining endpoints are kept for diagnostics.
type OIDCProvider struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint"`
	JWKSURI               string   `json:"jwks_uri"`
	ScopesSupported       []string `json:"scopes_supported"`
}

// NewOIDCProvider resolves the issuer's discovery document from
// <issuer>/.well-known/openid-configuration. Any spec-compliant identity
// provider works; the server only cares where the signing keys live.
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	issuerURL = strings.TrimRight(issuerURL, "/")
	wellKnown := issuerURL + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(wellKnown)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document for %s has no jwks_uri", issuerURL)
	}
	return &provider, nil
}

// JWKSKeyFunc builds a jwt.Keyfunc over the provider's key set. Keys are held
// in memory for five minutes and re-fetched on an unknown key ID so rotation
// does not interrupt token validation.
func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}
