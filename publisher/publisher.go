package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"auto_report_author/document"
)

const digestLimit = 160

// Options tunes one rendering.
type Options struct {
	// Digest overrides the meta description; by default it is cut from the first written section.
	Digest string
	// BaseDir resolves relative image paths. Images found there are inlined as data URIs
	// so the page is self-contained.
	BaseDir string
	// IncludePlanned renders a placeholder for sections that have no body yet.
	IncludePlanned bool
}

// Publisher turns a document into a standalone HTML page.
type Publisher struct {
	md     goldmark.Markdown
	logger *zap.Logger
}

func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	return &Publisher{md: md, logger: logger}
}

// Markdown assembles the document into one Markdown text: the title, then every
// section as a second-level heading in document order.
func (p *Publisher) Markdown(doc *document.Document, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	for _, s := range doc.Sections {
		if !s.Status.Generated() {
			if opts.IncludePlanned {
				fmt.Fprintf(&b, "## %s\n\n*Not written yet.*\n\n", s.Title)
			}
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Title, strings.TrimSpace(s.Body))
	}
	return b.String()
}

// RenderHTML converts the document to a complete HTML page.
func (p *Publisher) RenderHTML(ctx context.Context, doc *document.Document, opts Options) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}
	md := p.Markdown(doc, opts)
	if opts.BaseDir != "" {
		var err error
		md, err = p.inlineImages(ctx, md, opts.BaseDir)
		if err != nil {
			return nil, err
		}
	}

	var body bytes.Buffer
	if err := p.md.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	digest := opts.Digest
	if digest == "" {
		digest = defaultDigest(firstBody(doc), digestLimit)
	}
	var out bytes.Buffer
	err := page.Execute(&out, pageData{
		Title:   doc.Title,
		Digest:  digest,
		Content: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

// Publish renders the document and replaces outPath with the page.
func (p *Publisher) Publish(ctx context.Context, doc *document.Document, outPath string, opts Options) error {
	if outPath == "" {
		return errors.New("output path is required")
	}
	html, err := p.RenderHTML(ctx, doc, opts)
	if err != nil {
		return err
	}
	if err := document.WriteFileAtomic(outPath, html); err != nil {
		return err
	}
	p.logger.Info("report published",
		zap.String("path", outPath),
		zap.Int("bytes", len(html)),
		zap.Int("sections", len(doc.Sections)-doc.Count(document.StatusPlanned)))
	return nil
}

var imgPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// inlineImages swaps local image references for data URIs. Remote and already
// inlined images are left as they are; a missing local file is an error.
func (p *Publisher) inlineImages(ctx context.Context, md, baseDir string) (string, error) {
	matches := imgPattern.FindAllStringSubmatchIndex(md, -1)
	if len(matches) == 0 {
		return md, nil
	}

	var builder strings.Builder
	last := 0
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		start, end := match[2], match[3]
		builder.WriteString(md[last:start])
		last = end

		ref := strings.TrimSpace(md[start:end])
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
			builder.WriteString(ref)
			continue
		}
		localPath := ref
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(baseDir, ref)
		}
		uri, err := dataURI(localPath)
		if err != nil {
			return "", err
		}
		p.logger.Debug("inlined image", zap.String("path", localPath))
		builder.WriteString(uri)
	}
	builder.WriteString(md[last:])
	return builder.String(), nil
}

func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(typ, "image/") {
		return "", fmt.Errorf("unsupported image type %q for %s", filepath.Ext(path), path)
	}
	typ, _, _ = strings.Cut(typ, ";")
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func firstBody(doc *document.Document) string {
	for _, s := range doc.Sections {
		if s.Status.Generated() && strings.TrimSpace(s.Body) != "" {
			return s.Body
		}
	}
	return ""
}

// defaultDigest collapses whitespace and cuts md to at most limit runes.
func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}
