package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"auto_report_author/publisher"
)

func newRenderCmd(a *app) *cobra.Command {
	var out, digest string
	var planned bool
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the document as a standalone HTML page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			doc, err := p.Load()
			if err != nil {
				return err
			}
			if out == "" {
				out = strings.TrimSuffix(a.cfg.Document, filepath.Ext(a.cfg.Document)) + ".html"
			}
			err = publisher.New(a.logger).Publish(cmd.Context(), doc, out, publisher.Options{
				Digest:         digest,
				BaseDir:        filepath.Dir(a.cfg.Document),
				IncludePlanned: planned,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Rendered %s\n", color.GreenString("✓"), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: the document path with .html)")
	cmd.Flags().StringVar(&digest, "digest", "", "meta description (default: start of the first section)")
	cmd.Flags().BoolVar(&planned, "include-planned", false, "show placeholders for unwritten sections")
	return cmd
}
