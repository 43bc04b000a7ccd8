package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	reconciliationengine "scrutin/contexts/election-operations/reconciliation-engine"
	tallyengine "scrutin/contexts/election-operations/tally-engine"
	"scrutin/internal/app/bootstrap"
	"scrutin/internal/platform/config"
	"scrutin/internal/platform/db"
)

// Admin CLI entrypoint. Commands are thin wrappers over the same module
// handlers the HTTP API uses, rendered as tables for operators.
func main() {
	root := &cobra.Command{
		Use:           "scrutin-admin",
		Short:         "Election operations admin tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMergeCmd(), newResultsCmd(), newRecountCmd(), newQueueCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

type adminApp struct {
	reconciliation reconciliationengine.Module
	tally          tallyengine.Module
	postgres       *db.Postgres
}

func buildApp() (*adminApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "admin")
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	reconciliationModule, tallyModule := bootstrap.BuildModules(pg, cfg, logger)
	return &adminApp{
		reconciliation: reconciliationModule,
		tally:          tallyModule,
		postgres:       pg,
	}, nil
}

func (a *adminApp) close() {
	if a.postgres != nil {
		_ = a.postgres.Close()
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <election-id>",
		Short: "Merge queued offline ballots into the canonical ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			resp, err := app.reconciliation.Handler.MergeHandler(context.Background(), args[0])
			if err != nil {
				return err
			}
			report := resp.Data

			color.Green("merged %d ballot(s) across %d voter(s)", report.MergedCount, report.VoterCount)
			if len(report.Skipped) == 0 {
				return nil
			}
			color.Yellow("%d voter group(s) skipped:", len(report.Skipped))
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"VID", "Reason"})
			for _, skip := range report.Skipped {
				table.Append([]string{skip.VID, skip.Reason})
			}
			table.Render()
			return nil
		},
	}
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <election-id>",
		Short: "Show per-zone ranked winners",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			resp, err := app.tally.Handler.WinnersHandler(context.Background(), args[0])
			if err != nil {
				return err
			}

			for _, zone := range resp.Data {
				color.Cyan("%s (%s): %d seat(s)", zone.ZoneName, zone.ZoneCode, zone.Seats)
				if len(zone.Winners) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "  no candidates")
					continue
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Rank", "Candidate", "Votes", "NOTA"})
				for _, winner := range zone.Winners {
					nota := ""
					if winner.IsNota {
						nota = "yes"
					}
					table.Append([]string{
						fmt.Sprintf("%d", winner.Rank),
						winner.Name,
						fmt.Sprintf("%d", winner.Votes),
						nota,
					})
				}
				table.Render()
			}
			return nil
		},
	}
}

func newRecountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount <election-id>",
		Short: "Realign has_voted flags with the canonical ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			resp, err := app.reconciliation.Handler.RecomputeHasVotedHandler(context.Background(), args[0])
			if err != nil {
				return err
			}
			color.Green("updated %d voter flag(s)", resp.Data.UpdatedCount)
			return nil
		},
	}
}

func newQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue <election-id>",
		Short: "List unmerged offline ballots awaiting reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			resp, err := app.reconciliation.Handler.PendingBallotsHandler(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				color.Green("queue is empty")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Ballot", "VID", "Candidate", "Cast At", "Entered By"})
			for _, ballot := range resp.Data {
				table.Append([]string{
					ballot.BallotID,
					ballot.VID,
					ballot.CandidateID,
					ballot.CastAt,
					ballot.EnteredByAdminID,
				})
			}
			table.Render()
			return nil
		},
	}
}
