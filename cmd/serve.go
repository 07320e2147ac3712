package cmd

import (
	"github.com/spf13/cobra"

	"auto_report_author/publisher"
	"auto_report_author/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the authoring phases over HTTP",
		Long: `Starts an HTTP server for the session:
  GET  /health          liveness
  GET  /api/document    sections and their status
  GET  /report          the document rendered as HTML
  POST /api/draft       draft planned chapters
  POST /api/review      review and write findings
  POST /api/revise      {"all": false}
  POST /api/amend       {"section_id": "...", "instruction": "..."}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			srv, err := server.New(p, publisher.New(a.logger), a.logger, 0)
			if err != nil {
				return err
			}
			listen := a.cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			return srv.Run(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")
	return cmd
}
