package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"auto_report_author/authoring"
	"auto_report_author/document"
)

func newDraftCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "draft",
		Short: "Draft every chapter that is still planned",
		Long: `Drafts the outline chapter by chapter, in order. Each chapter is saved as soon
as it is written, so an interrupted run continues where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			doc, err := p.RunDraft(cmd.Context())
			if doc != nil {
				printSections(cmd.OutOrStdout(), doc)
			}
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Draft saved to %s\n", color.GreenString("✓"), a.cfg.Document)
			return nil
		},
	}
}

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Critique the complete draft and write the findings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			_, findings, err := p.RunReview(cmd.Context())
			if err != nil {
				return explain(err)
			}
			out := cmd.OutOrStdout()
			if len(findings) == 0 {
				fmt.Fprintf(out, "%s No findings\n", color.GreenString("✓"))
				return nil
			}
			for _, f := range findings {
				fmt.Fprintf(out, "%s %s\n", color.CyanString("[%s]", f.SectionID), f.Description)
				if f.SuggestedAction != "" {
					fmt.Fprintf(out, "    => %s\n", f.SuggestedAction)
				}
			}
			fmt.Fprintf(out, "%d findings written to %s\n", len(findings), a.cfg.Findings)
			return nil
		},
	}
}

func newReviseCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "revise",
		Short: "Rewrite the chapters the last review found issues in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			doc, err := p.RunRevise(cmd.Context(), authoring.ReviseOptions{All: all})
			if doc != nil {
				printSections(cmd.OutOrStdout(), doc)
			}
			return explain(err)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "revise every chapter, not only the ones with findings")
	return cmd
}

func newAmendCmd(a *app) *cobra.Command {
	var sectionID, instruction string
	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Rewrite one section from an instruction",
		Long: `Regenerates a single section following a human instruction. Only the sections
directly before and after it are sent along; nothing else in the document changes.

Example:
  report-author amend --section ch3 --instruction "Add a comparison table"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.project()
			if err != nil {
				return err
			}
			doc, err := p.RunAmend(cmd.Context(), sectionID, instruction)
			if err != nil {
				return explain(err)
			}
			printSections(cmd.OutOrStdout(), doc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sectionID, "section", "s", "", "id of the section to amend")
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "what to change")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("instruction")
	return cmd
}

// explain adds the next step to errors an operator can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authoring.ErrNothingToReview), errors.Is(err, authoring.ErrNoDocument):
		return fmt.Errorf("%w (run `draft` first)", err)
	case errors.Is(err, authoring.ErrDraftIncomplete), errors.Is(err, authoring.ErrChapterDraftFailed):
		return fmt.Errorf("%w (run `draft` again to finish the remaining chapters)", err)
	case errors.Is(err, authoring.ErrInstructionChanged):
		return fmt.Errorf("%w (restore the instruction or start a new document)", err)
	case errors.Is(err, authoring.ErrOutlineMismatch):
		return fmt.Errorf("%w (the outline was edited after drafting started)", err)
	}
	return err
}

func printSections(w io.Writer, doc *document.Document) {
	for i, sec := range doc.Sections {
		fmt.Fprintf(w, "%2d. %-10s %s %s\n", i+1, sec.ID, statusLabel(sec.Status), sec.Title)
	}
}

func statusLabel(s document.Status) string {
	label := fmt.Sprintf("%-8s", s)
	switch s {
	case document.StatusPlanned:
		return color.HiBlackString(label)
	case document.StatusDrafted:
		return color.YellowString(label)
	case document.StatusReviewed:
		return color.MagentaString(label)
	case document.StatusRevised:
		return color.GreenString(label)
	case document.StatusAmended:
		return color.CyanString(label)
	}
	return label
}
