package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
	"github.com/secmon-lab/teamtask/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdTasks() *cli.Command {
	var repoCfg config.Repository
	var userID string
	var orgID string
	var includeCompleted bool

	flags := repoCfg.Flags()
	flags = append(flags,
		&cli.StringFlag{
			Name:        "user",
			Usage:       "List tasks assigned to this user ID",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Only list tasks of this organization",
			Destination: &orgID,
		},
		&cli.BoolFlag{
			Name:        "all",
			Usage:       "Include completed tasks",
			Destination: &includeCompleted,
		},
	)

	return &cli.Command{
		Name:  "tasks",
		Usage: "Print a user's tasks ordered by urgency",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo, "repository")

			actor := auth.Principal{UserID: types.UserID(userID)}
			summaries, err := collectTasks(ctx, usecase.New(repo), actor, types.OrganizationID(orgID), includeCompleted)
			if err != nil {
				return err
			}

			printTasks(c.Root().Writer, summaries, time.Now())
			return nil
		},
	}
}

// collectTasks gathers the actor's tasks over every organization they belong to
func collectTasks(ctx context.Context, uc *usecase.UseCases, actor auth.Principal, orgID types.OrganizationID, includeCompleted bool) ([]*model.TaskSummary, error) {
	var orgIDs []types.OrganizationID
	if orgID != "" {
		orgIDs = []types.OrganizationID{orgID}
	} else {
		orgs, err := uc.Organization.ListMyOrganizations(ctx, actor)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list organizations")
		}
		for _, org := range orgs {
			orgIDs = append(orgIDs, org.ID)
		}
	}

	var result []*model.TaskSummary
	for _, id := range orgIDs {
		tasks, err := uc.Task.ListTasks(ctx, id, actor, usecase.TaskListFilter{AssigneeID: actor.UserID})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list tasks", goerr.V("organization_id", id))
		}
		for _, t := range tasks {
			if !includeCompleted && t.Status == types.TaskStatusCompleted {
				continue
			}
			result = append(result, t)
		}
	}

	model.SortByUrgency(result)
	return result, nil
}

var urgencyColors = map[types.Urgency]*color.Color{
	types.UrgencyOverdue:  color.New(color.FgRed, color.Bold),
	types.UrgencyCritical: color.New(color.FgRed),
	types.UrgencyUrgent:   color.New(color.FgYellow),
	types.UrgencyNormal:   color.New(color.FgGreen),
	types.UrgencyNone:     color.New(color.FgHiBlack),
}

// printTasks writes one line per task. The urgency column is padded before
// coloring so escape codes do not break alignment.
func printTasks(w io.Writer, tasks []*model.TaskSummary, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}

	for _, t := range tasks {
		label := fmt.Sprintf("%-8s", strings.ToUpper(t.Urgency.String()))
		if c, ok := urgencyColors[t.Urgency]; ok {
			label = c.Sprint(label)
		}

		fmt.Fprintf(w, "%s  %-11s  %3d%%  %-16s  %s\n",
			label,
			t.Status,
			t.CompletionPercentage,
			formatDue(t.Deadline, now),
			t.Title,
		)
	}
}

func formatDue(deadline, now time.Time) string {
	d := deadline.Sub(now)
	switch {
	case d < 0:
		return fmt.Sprintf("%s ago", roundDuration(-d))
	default:
		return fmt.Sprintf("in %s", roundDuration(d))
	}
}

func roundDuration(d time.Duration) string {
	if d >= 48*time.Hour {
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	if d >= time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
