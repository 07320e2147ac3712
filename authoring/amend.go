package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"auto_report_author/document"
	"auto_report_author/generator"
)

// Amend regenerates one section from a human instruction. Only the section's
// immediate neighbors are attached, and no other section changes.
func (s *Session) Amend(ctx context.Context, doc *document.Document, sectionID, humanInstruction string) (*document.Document, error) {
	if strings.TrimSpace(humanInstruction) == "" {
		return doc, errors.New("amendment instruction is required")
	}
	sec, err := doc.Section(sectionID)
	if err != nil {
		return doc, err
	}
	if !sec.Status.CanTransition(document.StatusAmended) {
		return doc, fmt.Errorf("%w: section %s is %s", document.ErrInvalidTransition, sec.ID, sec.Status)
	}
	out := doc.Clone()
	if err := s.bindInstruction(out); err != nil {
		return doc, err
	}

	neighbors, err := doc.Neighbors(sectionID)
	if err != nil {
		return doc, err
	}
	var prior []document.Section
	for _, n := range neighbors {
		if n.Status.Generated() {
			prior = append(prior, n)
		}
	}

	log := s.runLogger(PhaseAmend)
	res, err := s.agent.Generate(ctx, generator.Call{
		Instruction: s.instruction,
		Prior:       prior,
		Task:        generator.AmendmentTask(sec, humanInstruction),
		Post: func(raw string) (string, error) {
			return generator.CleanBody(raw, sec.Title)
		},
	})
	if err != nil {
		log.Error("amendment failed", zap.String("section", sectionID), zap.Error(err))
		return doc, &StepError{Phase: PhaseAmend, SectionID: sectionID, Err: err}
	}
	if err := out.SetBody(sectionID, res.Text, document.StatusAmended); err != nil {
		return doc, err
	}
	if err := s.checkpoint(out); err != nil {
		return doc, err
	}
	log.Info("section amended", zap.String("section", sectionID), zap.Int("attempts", res.Attempts))
	return out, nil
}
