package authoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auto_report_author/document"
	"auto_report_author/generator"
)

var (
	ErrChapterDraftFailed = errors.New("chapter draft failed")
	ErrRevisionFailed     = errors.New("chapter revision failed")
	ErrAmendmentFailed    = errors.New("amendment failed")
	ErrNothingToReview    = errors.New("nothing to review")
	ErrDraftIncomplete    = errors.New("draft incomplete")
	ErrOutlineMismatch    = errors.New("outline does not match document")
	ErrInstructionChanged = errors.New("instruction changed since the session started")
)

// Phase names the operation a StepError came from.
type Phase string

const (
	PhaseDraft  Phase = "draft"
	PhaseReview Phase = "review"
	PhaseRevise Phase = "revise"
	PhaseAmend  Phase = "amend"
)

// StepError reports which section halted a phase. The cause stays reachable
// through errors.Is / errors.As.
type StepError struct {
	Phase     Phase
	SectionID string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.SectionID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool {
	switch target {
	case ErrChapterDraftFailed:
		return e.Phase == PhaseDraft
	case ErrRevisionFailed:
		return e.Phase == PhaseRevise
	case ErrAmendmentFailed:
		return e.Phase == PhaseAmend
	}
	return false
}

// Checkpointer persists the document after every successful step.
type Checkpointer interface {
	Save(doc *document.Document) error
}

type discard struct{}

func (discard) Save(*document.Document) error { return nil }

// Session holds what every phase of one authoring session shares: the generator,
// the immutable instruction and where to checkpoint.
type Session struct {
	agent       *generator.Agent
	instruction string
	digest      string
	store       Checkpointer
	logger      *zap.Logger
}

func NewSession(agent *generator.Agent, instruction string, store Checkpointer, logger *zap.Logger) (*Session, error) {
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, errors.New("instruction is required")
	}
	if store == nil {
		store = discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		agent:       agent,
		instruction: instruction,
		digest:      document.DigestInstruction(instruction),
		store:       store,
		logger:      logger,
	}, nil
}

// bindInstruction stamps a fresh document with the instruction digest, or checks
// that a persisted one was produced under the same instruction.
func (s *Session) bindInstruction(doc *document.Document) error {
	switch doc.InstructionDigest {
	case "":
		doc.InstructionDigest = s.digest
		return nil
	case s.digest:
		return nil
	default:
		return ErrInstructionChanged
	}
}

func (s *Session) runLogger(phase Phase) *zap.Logger {
	return s.logger.With(zap.String("phase", string(phase)), zap.String("run", uuid.NewString()))
}

func (s *Session) checkpoint(doc *document.Document) error {
	if err := s.store.Save(doc); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func sectionIDs(doc *document.Document) []string {
	ids := make([]string, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		ids = append(ids, sec.ID)
	}
	return ids
}
