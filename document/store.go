package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var sectionMarker = regexp.MustCompile(`(?m)^<!-- section:(\S+) -->[ \t]*\r?\n?`)

// frontmatter is the YAML header of a document file. It carries everything
// except the section bodies, which stay plain markdown so a human can edit them.
type frontmatter struct {
	Title             string         `yaml:"title"`
	InstructionDigest string         `yaml:"instruction_digest,omitempty"`
	Sections          []sectionEntry `yaml:"sections"`
}

type sectionEntry struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Brief  string `yaml:"brief,omitempty"`
	Status Status `yaml:"status"`
}

// Store persists one document as a single markdown file.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Exists reports whether the document file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads and parses the document file.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", s.Path, err)
	}
	return doc, nil
}

// Save writes the document atomically: a failed write leaves the previous file intact.
func (s *Store) Save(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.Path, data)
}

// Marshal renders a document into its on-disk form.
func Marshal(doc *Document) ([]byte, error) {
	fm := frontmatter{Title: doc.Title, InstructionDigest: doc.InstructionDigest}
	for _, sec := range doc.Sections {
		fm.Sections = append(fm.Sections, sectionEntry{ID: sec.ID, Title: sec.Title, Brief: sec.Brief, Status: sec.Status})
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	for _, sec := range doc.Sections {
		fmt.Fprintf(&buf, "\n<!-- section:%s -->\n", sec.ID)
		fmt.Fprintf(&buf, "## %s\n", sec.Title)
		if body := strings.TrimSpace(sec.Body); body != "" {
			buf.WriteString("\n")
			buf.WriteString(body)
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// Parse reads the on-disk form produced by Marshal, tolerating human edits to the bodies.
func Parse(data []byte) (*Document, error) {
	header, rest, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	var fm frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	doc := &Document{Title: fm.Title, InstructionDigest: fm.InstructionDigest}
	for _, e := range fm.Sections {
		if !e.Status.Valid() {
			return nil, fmt.Errorf("section %s: invalid status %q", e.ID, e.Status)
		}
		if err := doc.Append(Section{ID: e.ID, Title: e.Title, Brief: e.Brief, Status: e.Status}); err != nil {
			return nil, err
		}
	}

	bodies, err := splitBodies(rest)
	if err != nil {
		return nil, err
	}
	for id, body := range bodies {
		i := doc.Index(id)
		if i < 0 {
			return nil, fmt.Errorf("body for %s has no entry in frontmatter: %w", id, ErrSectionNotFound)
		}
		doc.Sections[i].Body = stripHeading(body, doc.Sections[i].Title)
	}
	return doc, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, nil, errors.New("document has no frontmatter")
	}
	text = text[len("---\n"):]
	end := strings.Index(text, "\n---\n")
	if end < 0 {
		if strings.HasSuffix(text, "\n---") {
			return []byte(text[:len(text)-len("\n---")]), nil, nil
		}
		return nil, nil, errors.New("unterminated frontmatter")
	}
	return []byte(text[:end]), []byte(text[end+len("\n---\n"):]), nil
}

func splitBodies(rest []byte) (map[string]string, error) {
	text := string(rest)
	locs := sectionMarker.FindAllStringSubmatchIndex(text, -1)
	bodies := make(map[string]string, len(locs))
	for i, loc := range locs {
		id := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, dup := bodies[id]; dup {
			return nil, fmt.Errorf("%w: marker for %s appears twice", ErrDuplicateSection, id)
		}
		bodies[id] = text[loc[1]:end]
	}
	return bodies, nil
}

// stripHeading removes the "## Title" line Marshal writes in front of every body.
func stripHeading(body, title string) string {
	body = strings.TrimSpace(body)
	first, remainder, _ := strings.Cut(body, "\n")
	if strings.HasPrefix(first, "## ") {
		title = strings.TrimSpace(title)
		if heading := strings.TrimSpace(strings.TrimPrefix(first, "## ")); heading == title || title == "" {
			return strings.TrimSpace(remainder)
		}
	}
	return body
}

// WriteFileAtomic replaces path with data through a temp file in the same directory,
// so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
