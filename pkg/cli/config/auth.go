package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// minSecretLength is the shortest HS256 key accepted
const minSecretLength = 32

// Auth holds CLI flags for bearer token verification
type Auth struct {
	secret    string
	issuer    string
	noAuthUID string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HS256 key used to verify bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TEAMTASK_JWT_SECRET"),
			Destination: &x.secret,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Required iss claim of bearer tokens (optional)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TEAMTASK_JWT_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run as the specified user ID (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("TEAMTASK_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.secret)),
		slog.String("jwt-issuer", x.issuer),
		slog.String("no-auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// JWT returns the token verifier, also used to mint development tokens
func (x *Auth) JWT() (*usecase.JWTAuthUseCase, error) {
	if len(x.secret) < minSecretLength {
		return nil, goerr.Wrap(ErrInvalidConfig, "jwt-secret must be at least 32 bytes", goerr.V("length", len(x.secret)))
	}

	var opts []usecase.AuthOption
	if x.issuer != "" {
		opts = append(opts, usecase.WithIssuer(x.issuer))
	}
	return usecase.NewJWTAuthUseCase(auth.Secret(x.secret), opts...), nil
}

// Configure returns the authenticator of the server. --no-auth takes precedence.
func (x *Auth) Configure() (usecase.AuthUseCaseInterface, error) {
	if x.noAuthUID != "" {
		uid := types.UserID(x.noAuthUID)
		if err := uid.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid --no-auth user ID")
		}
		return usecase.NewNoAuthnUseCase(uid, "no-auth"), nil
	}
	return x.JWT()
}
