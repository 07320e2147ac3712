package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"auto_report_author/document"
)

// Prompt is one request to the generator. System carries the persistent
// instruction; User carries the reattached material followed by the task.
type Prompt struct {
	System string
	User   string
}

// Fingerprint is a short stable id of the request, used to key responses in logs.
func (p Prompt) Fingerprint() string {
	sum := sha256.Sum256([]byte(p.System + "\x00" + p.User))
	return hex.EncodeToString(sum[:6])
}

// Headings of the three-part revision answer, in the order they must appear.
const (
	HeadingActionItems = "Action Items"
	HeadingOutline     = "Outline"
	HeadingRevised     = "Revised Chapter"
)

const priorMaterialHeader = "Previously written sections, attached for continuity. Do not repeat them.\n\n"

func renderUser(prior []document.Section, task string) string {
	if len(prior) == 0 {
		return task
	}
	var sb strings.Builder
	sb.WriteString(priorMaterialHeader)
	for _, s := range prior {
		sb.WriteString(renderSection(s))
	}
	sb.WriteString("---\n\n")
	sb.WriteString(task)
	return sb.String()
}

func renderSection(s document.Section) string {
	return fmt.Sprintf("<<< %s: %s >>>\n%s\n<<< end %s >>>\n\n", s.ID, s.Title, strings.TrimSpace(s.Body), s.ID)
}

func writeOutline(sb *strings.Builder, outline []document.ChapterSpec, current int) {
	sb.WriteString("Document outline:\n")
	for i, ch := range outline {
		marker := ""
		if i == current {
			marker = "  <- current"
		}
		fmt.Fprintf(sb, "%d. %s (%s)%s\n", i+1, ch.Title, ch.ID, marker)
	}
	sb.WriteString("\n")
}

// DraftTask asks for the first version of outline[index].
func DraftTask(outline []document.ChapterSpec, index int) string {
	ch := outline[index]
	var sb strings.Builder
	writeOutline(&sb, outline, index)
	fmt.Fprintf(&sb, "Write chapter %d of %d, %q.\n", index+1, len(outline), ch.Title)
	if ch.Brief != "" {
		fmt.Fprintf(&sb, "Brief: %s\n", ch.Brief)
	}
	sb.WriteString("Stay consistent with the earlier chapters. Output only the chapter body in Markdown, without the chapter title.\n")
	return sb.String()
}

// CritiqueTask asks for findings over the whole draft, which is attached as prior material.
func CritiqueTask(ids []string, schema string) string {
	var sb strings.Builder
	sb.WriteString("Act as a critical editor and review the complete draft above.\n")
	sb.WriteString("Report every concrete issue as one finding bound to the id of the section it is in.\n")
	fmt.Fprintf(&sb, "Valid section ids: %s.\n", strings.Join(ids, ", "))
	writeFindingFormat(&sb, schema)
	return sb.String()
}

// SectionCritiqueTask reviews one section when the whole draft does not fit the window.
func SectionCritiqueTask(s document.Section, schema string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Act as a critical editor and review section %q (id %s) below. Neighboring sections are attached above for context only.\n\n", s.Title, s.ID)
	sb.WriteString(renderSection(s))
	fmt.Fprintf(&sb, "Bind every finding to section id %s.\n", s.ID)
	writeFindingFormat(&sb, schema)
	return sb.String()
}

func writeFindingFormat(sb *strings.Builder, schema string) {
	sb.WriteString("Respond with a JSON array matching this schema and nothing else:\n")
	sb.WriteString(schema)
	sb.WriteString("\nIf there is nothing to fix respond with [].\n")
}

// RevisionTask asks for action items, then an outline, then the rewritten chapter.
// Writing the plan first makes the model do the thinking before the prose.
func RevisionTask(outline []document.ChapterSpec, index int, s document.Section, findings []document.ReviewFinding) string {
	var sb strings.Builder
	writeOutline(&sb, outline, index)
	fmt.Fprintf(&sb, "Revise chapter %d, %q. Its current text:\n\n", index+1, s.Title)
	sb.WriteString(renderSection(s))
	if len(findings) == 0 {
		sb.WriteString("There are no specific review findings. Improve clarity, depth and continuity with the earlier chapters.\n\n")
	} else {
		sb.WriteString("Review findings for this chapter:\n")
		for i, f := range findings {
			fmt.Fprintf(&sb, "%d. %s", i+1, f.Description)
			if f.SuggestedAction != "" {
				fmt.Fprintf(&sb, " (suggested: %s)", f.SuggestedAction)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Answer in exactly three parts, in this order:\n")
	fmt.Fprintf(&sb, "# %s\nA numbered list of concrete changes derived from the findings.\n", HeadingActionItems)
	fmt.Fprintf(&sb, "# %s\nA short outline of the revised chapter.\n", HeadingOutline)
	fmt.Fprintf(&sb, "# %s\nThe complete revised chapter body in Markdown, without the chapter title.\n", HeadingRevised)
	return sb.String()
}

// AmendmentTask applies one human instruction to one section.
func AmendmentTask(s document.Section, instruction string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Amend section %q (id %s) following this instruction from the author:\n%s\n\n", s.Title, s.ID, strings.TrimSpace(instruction))
	sb.WriteString("Current text:\n\n")
	sb.WriteString(renderSection(s))
	sb.WriteString("Change only what the instruction asks for. Output the complete amended section body in Markdown, without the section title.\n")
	return sb.String()
}
