package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"donationhub/pkg/config"
	"donationhub/pkg/errutil"
)

func newVerifier(secret string) Verifier {
	cfg := &config.Config{}
	cfg.Auth.TokenSecret = secret
	cfg.Auth.Leeway = time.Minute
	return NewJWTVerifier(VerifierParams{Config: cfg})
}

func TestVerifyRoundTrip(t *testing.T) {
	v := newVerifier("test-secret")

	token, err := Sign([]byte("test-secret"), Principal{ID: "donor-1", Kind: KindDonor}, time.Hour)
	require.NoError(t, err)

	p, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "donor-1", p.ID)
	require.Equal(t, KindDonor, p.Kind)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := newVerifier("test-secret")

	token, err := Sign([]byte("other-secret"), Principal{ID: "donor-1", Kind: KindDonor}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusUnauthorized, base.Status())
}

func TestVerifyExpiredToken(t *testing.T) {
	v := newVerifier("test-secret")

	token, err := Sign([]byte("test-secret"), Principal{ID: "donor-1", Kind: KindDonor}, -2*time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusUnauthorized, base.Status())
}

func TestVerifyUnknownKind(t *testing.T) {
	v := newVerifier("test-secret")

	token, err := Sign([]byte("test-secret"), Principal{ID: "donor-1", Kind: Kind("admin")}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusUnauthorized, base.Status())
}

func TestVerifyGarbage(t *testing.T) {
	v := newVerifier("test-secret")

	_, err := v.Verify(context.Background(), "not-a-jwt")
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusUnauthorized, base.Status())
}
