package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/painlens-backend/internal/app"
)

func newCachedCmd() *cobra.Command {
	var projectArg string
	cmd := &cobra.Command{
		Use:   "cached",
		Short: "Print a project's cached pain matrix with staleness metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := uuid.Parse(projectArg)
			if err != nil {
				return fmt.Errorf("invalid --project: %w", err)
			}
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			matrix, err := a.Services.PainMatrix.GetCachedPainMatrix(ctx, projectID)
			if err != nil {
				return err
			}
			if matrix == nil {
				return fmt.Errorf("no cached pain matrix for project %s", projectID)
			}
			return writeJSON(cmd.OutOrStdout(), matrix)
		},
	}
	cmd.Flags().StringVar(&projectArg, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
