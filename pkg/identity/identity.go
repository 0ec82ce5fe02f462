package identity

import (
	"context"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/fx"

	"donationhub/pkg/config"
	"donationhub/pkg/errutil"
)

// Kind distinguishes the two principal populations of the platform.
type Kind string

const (
	KindDonor     Kind = "donor"
	KindOrphanage Kind = "orphanage"
)

// Principal is the authenticated actor resolved from a bearer credential.
type Principal struct {
	ID   string
	Kind Kind
}

// Verifier resolves an opaque bearer credential to a principal. It is the
// only contract the rest of the system has with the identity issuer.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Principal, error)
}

var Module = fx.Module("identity",
	fx.Provide(NewJWTVerifier),
)

type jwtVerifier struct {
	secret []byte
	leeway time.Duration
}

type VerifierParams struct {
	fx.In
	Config *config.Config
}

func NewJWTVerifier(p VerifierParams) Verifier {
	leeway := p.Config.Auth.Leeway
	if leeway == 0 {
		leeway = time.Minute
	}
	return &jwtVerifier{
		secret: []byte(p.Config.Auth.TokenSecret),
		leeway: leeway,
	}
}

type tokenClaims struct {
	Kind string `json:"kind"`
}

func (v *jwtVerifier) Verify(ctx context.Context, credential string) (*Principal, error) {
	tok, err := jwt.ParseSigned(credential, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, errutil.Unauthorized("invalid token", err)
	}

	var claims jwt.Claims
	var custom tokenClaims
	if err := tok.Claims(v.secret, &claims, &custom); err != nil {
		return nil, errutil.Unauthorized("invalid token signature", err)
	}

	if err := claims.ValidateWithLeeway(jwt.Expected{Time: time.Now()}, v.leeway); err != nil {
		return nil, errutil.Unauthorized("token expired or not yet valid", err)
	}

	kind := Kind(custom.Kind)
	if claims.Subject == "" || (kind != KindDonor && kind != KindOrphanage) {
		return nil, errutil.Unauthorized("token missing principal claims", nil)
	}

	return &Principal{ID: claims.Subject, Kind: kind}, nil
}

// Sign mints an HS256 token for the given principal. Used by the development
// seeder and by tests; production tokens come from the identity issuer.
func Sign(secret []byte, p Principal, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.Claims{
		Subject:  p.ID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.Signed(signer).
		Claims(claims).
		Claims(tokenClaims{Kind: string(p.Kind)}).
		Serialize()
}
