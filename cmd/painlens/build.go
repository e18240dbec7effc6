package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/painlens-backend/internal/app"
	"github.com/yungbote/painlens-backend/internal/modules/lenses/painmatrix"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
)

type buildOptions struct {
	projectID    string
	segment      string
	segmentID    string
	minEvidence  int
	minGroupSize int
	force        bool
}

func (o buildOptions) input(projectID uuid.UUID) (painmatrix.Input, error) {
	in := painmatrix.Input{
		ProjectID:          projectID,
		SegmentKindSlug:    o.segment,
		MinEvidencePerPain: o.minEvidence,
		MinGroupSize:       o.minGroupSize,
	}
	if o.segmentID != "" {
		id, err := uuid.Parse(o.segmentID)
		if err != nil {
			return in, fmt.Errorf("invalid --segment-id: %w", err)
		}
		in.SegmentID = id
	}
	return in, nil
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build (or reuse the cached) pain matrix for a project and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := uuid.Parse(opts.projectID)
			if err != nil {
				return fmt.Errorf("invalid --project: %w", err)
			}
			in, err := opts.input(projectID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			project, err := a.Repos.Projects.GetByID(dbctx.Context{Ctx: ctx}, projectID)
			if err != nil {
				return fmt.Errorf("load project: %w", err)
			}
			if project == nil {
				return fmt.Errorf("project %s not found", projectID)
			}

			matrix, err := a.Services.PainMatrix.GeneratePainMatrix(ctx, painmatrix.GenerateInput{
				Input:        in,
				AccountID:    project.AccountID,
				ForceRefresh: opts.force,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), matrix)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.projectID, "project", "", "project id (required)")
	f.StringVar(&opts.segment, "segment", "", "segment kind slug (e.g. persona)")
	f.StringVar(&opts.segmentID, "segment-id", "", "restrict groups to one segment value")
	f.IntVar(&opts.minEvidence, "min-evidence", 0, "minimum distinct evidence per pain theme (0 uses config)")
	f.IntVar(&opts.minGroupSize, "min-group-size", 0, "minimum people per user group (0 uses config)")
	f.BoolVar(&opts.force, "force", false, "ignore the cache and rebuild")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
