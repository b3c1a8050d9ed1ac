package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdToken() *cli.Command {
	var authCfg config.Auth
	var userID string
	var name string
	var ttl time.Duration

	flags := authCfg.Flags()
	flags = append(flags,
		&cli.StringFlag{
			Name:        "user",
			Usage:       "Subject (user ID) of the token",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Display name claim",
			Destination: &name,
		},
		&cli.DurationFlag{
			Name:        "ttl",
			Usage:       "Token lifetime",
			Value:       24 * time.Hour,
			Destination: &ttl,
		},
	)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token signed with --jwt-secret (development and scripting)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uid := types.UserID(userID)
			if err := uid.Validate(); err != nil {
				return goerr.Wrap(err, "invalid user ID")
			}
			if ttl <= 0 {
				return goerr.New("ttl must be positive", goerr.V("ttl", ttl))
			}

			jwtUC, err := authCfg.JWT()
			if err != nil {
				return err
			}
			token, err := jwtUC.IssueToken(uid, name, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.Root().Writer, token)
			return err
		},
	}
}
