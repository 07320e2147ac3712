package authoring

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"auto_report_author/document"
	"auto_report_author/generator"
)

// Review asks the generator to critique a complete draft. It never modifies doc.
// When the whole draft fits in one request it is reviewed at once; otherwise each
// section is reviewed on its own with its neighbors attached.
func (s *Session) Review(ctx context.Context, doc *document.Document) ([]document.ReviewFinding, error) {
	if doc == nil || len(doc.Sections) == 0 || doc.Count(document.StatusPlanned) == len(doc.Sections) {
		return nil, ErrNothingToReview
	}
	for _, sec := range doc.Sections {
		if sec.Status == document.StatusPlanned {
			return nil, fmt.Errorf("%w: section %s is not drafted", ErrDraftIncomplete, sec.ID)
		}
	}
	if err := s.bindInstruction(doc.Clone()); err != nil {
		return nil, err
	}

	log := s.runLogger(PhaseReview)
	ids := sectionIDs(doc)
	schema := generator.FindingsSchema()

	whole := generator.Call{
		Instruction: s.instruction,
		Prior:       doc.Sections,
		Task:        generator.CritiqueTask(ids, schema),
		Post:        generator.CheckFindings,
	}
	asm, err := s.agent.Plan(whole)
	switch {
	case err == nil && len(asm.Omitted) == 0:
		log.Info("reviewing whole draft", zap.Int("sections", len(ids)), zap.Int("cost", asm.Cost))
		res, err := s.agent.Generate(ctx, whole)
		if err != nil {
			return nil, &StepError{Phase: PhaseReview, SectionID: "*", Err: err}
		}
		findings, dropped := generator.ParseFindings(res.Text, ids, "")
		s.logDropped(log, dropped)
		log.Info("review complete", zap.Int("findings", len(findings)))
		return findings, nil
	case err != nil && !errors.Is(err, generator.ErrBudgetExceeded):
		return nil, err
	}

	log.Info("draft exceeds context window, reviewing section by section", zap.Int("sections", len(ids)))
	var findings []document.ReviewFinding
	for _, sec := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors, err := doc.Neighbors(sec.ID)
		if err != nil {
			return nil, err
		}
		res, err := s.agent.Generate(ctx, generator.Call{
			Instruction: s.instruction,
			Prior:       neighbors,
			Task:        generator.SectionCritiqueTask(sec, schema),
			Post:        generator.CheckFindings,
		})
		if err != nil {
			return nil, &StepError{Phase: PhaseReview, SectionID: sec.ID, Err: err}
		}
		found, dropped := generator.ParseFindings(res.Text, ids, sec.ID)
		s.logDropped(log, dropped)
		findings = append(findings, found...)
		log.Debug("section reviewed", zap.String("section", sec.ID), zap.Int("findings", len(found)))
	}
	log.Info("review complete", zap.Int("findings", len(findings)))
	return findings, nil
}

func (s *Session) logDropped(log *zap.Logger, dropped []document.ReviewFinding) {
	for _, f := range dropped {
		log.Warn("finding targets unknown section, dropped", zap.String("section", f.SectionID), zap.String("description", f.Description))
	}
}

// MarkReviewed returns a copy of doc in which every drafted section targeted by a
// finding is marked reviewed. The review itself stays read-only; callers apply this
// when they accept the findings.
func MarkReviewed(doc *document.Document, findings []document.ReviewFinding) (*document.Document, error) {
	out := doc.Clone()
	for _, f := range findings {
		if err := out.MarkReviewed(f.SectionID); err != nil {
			return doc, err
		}
	}
	return out, nil
}
