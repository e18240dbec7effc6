package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/painlens-backend/internal/app"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()

			if port == "" {
				port = a.Cfg.Port
			}
			return a.Run(ctx, ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PORT or 8080)")
	return cmd
}
