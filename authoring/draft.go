package authoring

import (
	"context"

	"go.uber.org/zap"

	"auto_report_author/document"
	"auto_report_author/generator"
)

// Draft writes every planned chapter of the outline, strictly in outline order.
// Passing the persisted document as existing resumes a run: chapters that were
// already generated are kept. On failure the partial document is returned with the
// error; every chapter in it was checkpointed.
func (s *Session) Draft(ctx context.Context, title string, outline []document.ChapterSpec, existing *document.Document) (*document.Document, error) {
	log := s.runLogger(PhaseDraft)

	var doc *document.Document
	if existing == nil {
		fresh, err := document.New(title, outline)
		if err != nil {
			return nil, err
		}
		doc = fresh
	} else {
		if !existing.MatchesOutline(outline) {
			return existing, ErrOutlineMismatch
		}
		doc = existing.Clone()
	}
	if err := s.bindInstruction(doc); err != nil {
		return existing, err
	}

	for i := range doc.Sections {
		sec := doc.Sections[i]
		if sec.Status.Generated() {
			log.Debug("chapter already drafted", zap.String("section", sec.ID), zap.String("status", string(sec.Status)))
			continue
		}
		if err := ctx.Err(); err != nil {
			return doc, err
		}

		res, err := s.agent.Generate(ctx, generator.Call{
			Instruction: s.instruction,
			Prior:       doc.Before(i),
			Task:        generator.DraftTask(outline, i),
			Post: func(raw string) (string, error) {
				return generator.CleanBody(raw, sec.Title)
			},
		})
		if err != nil {
			log.Error("chapter draft failed", zap.String("section", sec.ID), zap.Error(err))
			return doc, &StepError{Phase: PhaseDraft, SectionID: sec.ID, Err: err}
		}
		if err := doc.SetBody(sec.ID, res.Text, document.StatusDrafted); err != nil {
			return doc, err
		}
		if err := s.checkpoint(doc); err != nil {
			return doc, err
		}
		log.Info("chapter drafted",
			zap.String("section", sec.ID),
			zap.Int("attempts", res.Attempts),
			zap.Strings("prior", res.Included),
			zap.String("fingerprint", res.Fingerprint))
	}

	if err := s.checkpoint(doc); err != nil {
		return doc, err
	}
	log.Info("draft complete", zap.Int("sections", len(doc.Sections)))
	return doc, nil
}
