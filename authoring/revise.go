package authoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"auto_report_author/document"
	"auto_report_author/generator"
)

// ReviseOptions tunes a revision run.
type ReviseOptions struct {
	// All regenerates every chapter, not only the ones a finding targets.
	All bool
}

// Revise regenerates chapters in document order from the review findings. Each
// request asks for action items, then an outline, then the chapter; only the
// chapter is kept. Chapters left alone keep their body and status.
func (s *Session) Revise(ctx context.Context, doc *document.Document, findings []document.ReviewFinding, opts ReviseOptions) (*document.Document, error) {
	for _, sec := range doc.Sections {
		if sec.Status == document.StatusPlanned {
			return doc, fmt.Errorf("%w: section %s is not drafted", ErrDraftIncomplete, sec.ID)
		}
	}
	out := doc.Clone()
	if err := s.bindInstruction(out); err != nil {
		return doc, err
	}

	log := s.runLogger(PhaseRevise)
	for _, f := range findings {
		if out.Index(f.SectionID) < 0 {
			log.Warn("finding targets unknown section, ignored", zap.String("section", f.SectionID))
		}
	}

	outline := outlineOf(out)
	revised := 0
	for i := range out.Sections {
		sec := out.Sections[i]
		targeted := document.ForSection(findings, sec.ID)
		if len(targeted) == 0 && !opts.All {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		res, err := s.agent.Generate(ctx, generator.Call{
			Instruction: s.instruction,
			Prior:       out.Before(i),
			Task:        generator.RevisionTask(outline, i, sec, targeted),
			Post: func(raw string) (string, error) {
				body, err := generator.ExtractRevisedChapter(raw)
				if err != nil {
					return "", err
				}
				return generator.CleanBody(body, sec.Title)
			},
		})
		if err != nil {
			log.Error("chapter revision failed", zap.String("section", sec.ID), zap.Error(err))
			return out, &StepError{Phase: PhaseRevise, SectionID: sec.ID, Err: err}
		}
		if err := out.SetBody(sec.ID, res.Text, document.StatusRevised); err != nil {
			return out, &StepError{Phase: PhaseRevise, SectionID: sec.ID, Err: err}
		}
		if err := s.checkpoint(out); err != nil {
			return out, err
		}
		revised++
		log.Info("chapter revised",
			zap.String("section", sec.ID),
			zap.Int("findings", len(targeted)),
			zap.Int("attempts", res.Attempts),
			zap.String("fingerprint", res.Fingerprint))
	}

	log.Info("revision complete", zap.Int("revised", revised), zap.Int("sections", len(out.Sections)))
	return out, nil
}

func outlineOf(doc *document.Document) []document.ChapterSpec {
	outline := make([]document.ChapterSpec, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		outline = append(outline, document.ChapterSpec{ID: sec.ID, Title: sec.Title, Brief: sec.Brief})
	}
	return outline
}
