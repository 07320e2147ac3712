package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"auto_report_author/authoring"
	"auto_report_author/document"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where every section stands",
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
			findings, err := p.Findings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Document: %s (%s)\n", color.CyanString(doc.Title), a.cfg.Document)
			budget := a.cfg.ContextBudget()
			for i, sec := range doc.Sections {
				fmt.Fprintf(out, "%2d. %-10s %s %-30s %6d tokens %s\n",
					i+1, sec.ID, statusLabel(sec.Status), preview(sec.Title, 30),
					budget.EstimateCost(sec.Body), findingsNote(findings, sec.ID))
			}
			fmt.Fprintf(out, "Context window: %d tokens, %g chars/token\n", budget.Capacity, budget.CharsPerToken)
			if doc.InstructionDigest != "" && doc.InstructionDigest != document.DigestInstruction(a.cfg.Instruction) {
				fmt.Fprintf(out, "%s %v\n", color.RedString("!"), authoring.ErrInstructionChanged)
			}
			return nil
		},
	}
}

func findingsNote(findings []document.ReviewFinding, id string) string {
	n := len(document.ForSection(findings, id))
	if n == 0 {
		return ""
	}
	note := fmt.Sprintf("%d finding", n)
	if n > 1 {
		note += "s"
	}
	return color.YellowString(note)
}

// preview shortens s to at most n runes for one-line display.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
