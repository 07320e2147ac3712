package authoring

import (
	"context"
	"errors"
	"fmt"

	"auto_report_author/document"
)

// ErrNoDocument means a phase that needs a draft ran before any was written.
var ErrNoDocument = errors.New("no document yet, run draft first")

// Project binds a session to its files on disk: the document, the findings
// hand-off and the outline it was planned from. The CLI and the HTTP server both
// drive the workflow through it.
type Project struct {
	Session      *Session
	Store        *document.Store
	FindingsPath string
	Title        string
	Outline      []document.ChapterSpec
}

// Load returns the persisted document, or a freshly planned one when nothing has
// been written yet.
func (p *Project) Load() (*document.Document, error) {
	if !p.Store.Exists() {
		return document.New(p.Title, p.Outline)
	}
	return p.Store.Load()
}

// Findings returns the findings left by the last review, if any.
func (p *Project) Findings() ([]document.ReviewFinding, error) {
	return document.LoadFindings(p.FindingsPath)
}

func (p *Project) RunDraft(ctx context.Context) (*document.Document, error) {
	var existing *document.Document
	if p.Store.Exists() {
		doc, err := p.Store.Load()
		if err != nil {
			return nil, err
		}
		existing = doc
	}
	return p.Session.Draft(ctx, p.Title, p.Outline, existing)
}

// RunReview reviews the persisted draft, writes the findings file and marks the
// targeted sections reviewed.
func (p *Project) RunReview(ctx context.Context) (*document.Document, []document.ReviewFinding, error) {
	doc, err := p.persisted()
	if errors.Is(err, ErrNoDocument) {
		return nil, nil, ErrNothingToReview
	}
	if err != nil {
		return nil, nil, err
	}
	findings, err := p.Session.Review(ctx, doc)
	if err != nil {
		return doc, nil, err
	}
	if err := document.SaveFindings(p.FindingsPath, findings); err != nil {
		return doc, findings, fmt.Errorf("save findings: %w", err)
	}
	marked, err := MarkReviewed(doc, findings)
	if err != nil {
		return doc, findings, err
	}
	if err := p.Store.Save(marked); err != nil {
		return doc, findings, err
	}
	return marked, findings, nil
}

func (p *Project) RunRevise(ctx context.Context, opts ReviseOptions) (*document.Document, error) {
	doc, err := p.persisted()
	if err != nil {
		return nil, err
	}
	findings, err := p.Findings()
	if err != nil {
		return doc, err
	}
	return p.Session.Revise(ctx, doc, findings, opts)
}

func (p *Project) RunAmend(ctx context.Context, sectionID, instruction string) (*document.Document, error) {
	doc, err := p.persisted()
	if err != nil {
		return nil, err
	}
	return p.Session.Amend(ctx, doc, sectionID, instruction)
}

func (p *Project) persisted() (*document.Document, error) {
	if !p.Store.Exists() {
		return nil, ErrNoDocument
	}
	return p.Store.Load()
}
