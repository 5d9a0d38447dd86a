package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Identity is the caller information carried by a verified token.
type Identity struct {
	UserID string
	Role   string
}

// Verifier validates bearer tokens issued by the identity service. Token
// issuance lives outside this repository; only validation happens here.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Parse verifies the token signature and registered claims and returns the
// caller identity.
func (v Verifier) Parse(token string) (Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, errors.New("auth: token missing")
	}
	algorithm, err := extractAlgorithm(trimmed)
	if err != nil {
		return Identity{}, err
	}
	if algorithm != jwa.HS256 {
		return Identity{}, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret))
	if err != nil {
		return Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(parsed, options...); err != nil {
		return Identity{}, fmt.Errorf("auth: validate token: %w", err)
	}

	identity := Identity{UserID: parsed.Subject()}
	if raw, ok := parsed.Get("role"); ok {
		if role, ok := raw.(string); ok {
			identity.Role = role
		}
	}
	if identity.UserID == "" {
		return Identity{}, errors.New("auth: token missing subject")
	}
	return identity, nil
}

func extractAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", fmt.Errorf("auth: parse signature: %w", err)
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" || alg == jwa.NoSignature {
		return "", errors.New("auth: token missing algorithm")
	}
	return alg, nil
}
