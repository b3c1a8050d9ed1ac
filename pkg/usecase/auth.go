package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// AuthUseCaseInterface resolves a bearer credential to the acting user
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, bearer string) (auth.Principal, error)
	IsNoAuthn() bool
}

// JWTAuthUseCase verifies HS256 tokens whose subject is the user ID
type JWTAuthUseCase struct {
	key    []byte
	issuer string
	cache  *authCache
	clock  func() time.Time
}

var _ AuthUseCaseInterface = &JWTAuthUseCase{}

// AuthOption is a functional option for JWTAuthUseCase
type AuthOption func(*JWTAuthUseCase)

// WithIssuer requires the iss claim to match
func WithIssuer(issuer string) AuthOption {
	return func(uc *JWTAuthUseCase) {
		uc.issuer = issuer
	}
}

// WithAuthClock replaces time.Now for token validation
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(uc *JWTAuthUseCase) {
		uc.clock = clock
	}
}

func NewJWTAuthUseCase(secret auth.Secret, options ...AuthOption) *JWTAuthUseCase {
	uc := &JWTAuthUseCase{
		key:   []byte(secret.Reveal()),
		cache: newAuthCache(),
		clock: time.Now,
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc
}

func (uc *JWTAuthUseCase) Authenticate(ctx context.Context, bearer string) (auth.Principal, error) {
	if bearer == "" {
		return auth.Principal{}, goerr.Wrap(ErrUnauthenticated, "missing bearer token")
	}

	cacheKey := hashToken(bearer)
	if p, ok := uc.cache.get(cacheKey, uc.clock()); ok {
		return p, nil
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, uc.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(uc.clock)),
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}

	token, err := jwt.Parse([]byte(bearer), opts...)
	if err != nil {
		return auth.Principal{}, goerr.Wrap(ErrUnauthenticated, "invalid token", goerr.V("reason", err.Error()))
	}

	p := auth.Principal{UserID: types.UserID(token.Subject())}
	if name, ok := token.Get("name"); ok {
		if s, ok := name.(string); ok {
			p.Name = s
		}
	}
	if err := p.Validate(); err != nil {
		return auth.Principal{}, goerr.Wrap(ErrUnauthenticated, "token has no subject")
	}

	uc.cache.set(cacheKey, p, token.Expiration(), uc.clock())
	return p, nil
}

func (uc *JWTAuthUseCase) IsNoAuthn() bool {
	return false
}

// IssueToken signs a token for the user, used by the CLI to mint development credentials
func (uc *JWTAuthUseCase) IssueToken(userID types.UserID, name string, ttl time.Duration) (string, error) {
	now := uc.clock()
	builder := jwt.NewBuilder().
		Subject(userID.String()).
		IssuedAt(now).
		Expiration(now.Add(ttl))
	if uc.issuer != "" {
		builder = builder.Issuer(uc.issuer)
	}
	if name != "" {
		builder = builder.Claim("name", name)
	}

	token, err := builder.Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token")
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, uc.key))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
