package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Status is the lifecycle stage of a Section.
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusDrafted  Status = "drafted"
	StatusReviewed Status = "reviewed"
	StatusRevised  Status = "revised"
	StatusAmended  Status = "amended"
)

var (
	ErrSectionNotFound   = errors.New("section not found")
	ErrDuplicateSection  = errors.New("duplicate section id")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusDrafted, StatusReviewed, StatusRevised, StatusAmended:
		return true
	}
	return false
}

// Generated reports whether a body has been produced for the section at least once.
func (s Status) Generated() bool {
	return s.Valid() && s != StatusPlanned
}

// CanTransition reports whether a section in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch next {
	case StatusDrafted:
		return s == StatusPlanned
	case StatusReviewed:
		return s == StatusDrafted
	case StatusRevised, StatusAmended:
		return s.Generated()
	}
	return false
}

// Section is one chapter of the document.
type Section struct {
	ID     string
	Title  string
	Brief  string
	Body   string
	Status Status
}

// ChapterSpec is one outline entry: what to write, in which order.
type ChapterSpec struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Brief string `yaml:"brief,omitempty" json:"brief,omitempty"`
}

// Document is the evolving report. Section order is rendering order.
type Document struct {
	Title             string
	InstructionDigest string
	Sections          []Section
}

// New builds a document with every outline entry in the planned state.
func New(title string, outline []ChapterSpec) (*Document, error) {
	doc := &Document{Title: title}
	for _, ch := range outline {
		if err := doc.Append(Section{ID: ch.ID, Title: ch.Title, Brief: ch.Brief, Status: StatusPlanned}); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Append adds a section at the end. IDs must be unique and non-empty.
func (d *Document) Append(s Section) error {
	if s.ID == "" {
		return errors.New("section id is required")
	}
	if d.Index(s.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSection, s.ID)
	}
	if s.Status == "" {
		s.Status = StatusPlanned
	}
	d.Sections = append(d.Sections, s)
	return nil
}

// Index returns the position of the section with the given id, or -1.
func (d *Document) Index(id string) int {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// Section returns a copy of the section with the given id.
func (d *Document) Section(id string) (Section, error) {
	i := d.Index(id)
	if i < 0 {
		return Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	return d.Sections[i], nil
}

// Neighbors returns the sections immediately before and after id, in document order.
func (d *Document) Neighbors(id string) ([]Section, error) {
	i := d.Index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	var out []Section
	if i > 0 {
		out = append(out, d.Sections[i-1])
	}
	if i+1 < len(d.Sections) {
		out = append(out, d.Sections[i+1])
	}
	return out, nil
}

// Before returns the generated sections that precede index i.
func (d *Document) Before(i int) []Section {
	var out []Section
	for _, s := range d.Sections[:i] {
		if s.Status.Generated() {
			out = append(out, s)
		}
	}
	return out
}

// SetBody replaces the body of a section wholesale and moves it to next.
func (d *Document) SetBody(id, body string, next Status) error {
	i := d.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	cur := d.Sections[i].Status
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: section %s %s -> %s", ErrInvalidTransition, id, cur, next)
	}
	d.Sections[i].Body = body
	d.Sections[i].Status = next
	return nil
}

// MarkReviewed moves a drafted section to reviewed. Sections already past review are left alone.
func (d *Document) MarkReviewed(id string) error {
	i := d.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	if d.Sections[i].Status == StatusDrafted {
		d.Sections[i].Status = StatusReviewed
	}
	return nil
}

// Count returns how many sections are in status s.
func (d *Document) Count(s Status) int {
	n := 0
	for _, sec := range d.Sections {
		if sec.Status == s {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Sections = append([]Section(nil), d.Sections...)
	return &out
}

// MatchesOutline reports whether the document holds exactly the outline ids in outline order.
func (d *Document) MatchesOutline(outline []ChapterSpec) bool {
	if len(d.Sections) != len(outline) {
		return false
	}
	for i, ch := range outline {
		if d.Sections[i].ID != ch.ID {
			return false
		}
	}
	return true
}

// DigestInstruction fingerprints the persistent instruction so later phases can detect edits to it.
func DigestInstruction(instruction string) string {
	sum := sha256.Sum256([]byte(instruction))
	return hex.EncodeToString(sum[:])
}
