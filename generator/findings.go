package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"auto_report_author/document"
)

var findingLine = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s*\[([^\]]+)\]\s*(.+?)\s*(?:=>\s*(.+?)\s*)?$`)

// FindingsSchema is the JSON schema of the critique answer, shown to the model in the prompt.
func FindingsSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect([]document.ReviewFinding{})
	schema.Version = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return `[{"section_id": "...", "description": "...", "suggested_action": "..."}]`
	}
	return string(data)
}

// ParseFindings reads critique output. The generator is not trusted to produce
// valid JSON, so a JSON array is tried first and a "- [id] description => action"
// line format second. Findings without a section id get fallbackID. Findings whose
// section is not in known are returned separately as dropped.
func ParseFindings(raw string, known []string, fallbackID string) (findings, dropped []document.ReviewFinding) {
	all, _ := parseFindings(raw)

	valid := make(map[string]bool, len(known))
	for _, id := range known {
		valid[id] = true
	}
	for _, f := range all {
		if strings.TrimSpace(f.Description) == "" {
			continue
		}
		if f.SectionID == "" {
			f.SectionID = fallbackID
		}
		if valid[f.SectionID] {
			findings = append(findings, f)
		} else {
			dropped = append(dropped, f)
		}
	}
	return findings, dropped
}

// CheckFindings is the post-processing hook for critique calls. An answer that is
// neither a findings array (an empty one included) nor finding lines fails with
// ErrMalformedOutput so the call is retried.
func CheckFindings(raw string) (string, error) {
	out := strings.TrimSpace(raw)
	if _, ok := parseFindings(out); !ok {
		return "", fmt.Errorf("%w: no findings array or finding lines in critique", ErrMalformedOutput)
	}
	return out, nil
}

func parseFindings(raw string) ([]document.ReviewFinding, bool) {
	var all []document.ReviewFinding
	if arr, ok := jsonArray(raw); ok {
		arr.ForEach(func(_, item gjson.Result) bool {
			all = append(all, document.ReviewFinding{
				SectionID:       firstString(item, "section_id", "section", "target", "id"),
				Description:     firstString(item, "description", "issue", "problem"),
				SuggestedAction: firstString(item, "suggested_action", "action", "suggestion", "fix"),
			})
			return true
		})
		return all, true
	}
	matched := false
	for _, line := range strings.Split(raw, "\n") {
		m := findingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		matched = true
		all = append(all, document.ReviewFinding{SectionID: strings.TrimSpace(m[1]), Description: m[2], SuggestedAction: m[3]})
	}
	return all, matched
}

// jsonArray finds the first findings array in text. Every '[' is tried as a start,
// so brackets in a preamble do not hide the array that follows. An array only
// counts when it is empty or holds objects.
func jsonArray(raw string) (gjson.Result, bool) {
	text := unfence(strings.TrimSpace(raw))
	for off := 0; off < len(text); {
		i := strings.IndexByte(text[off:], '[')
		if i < 0 {
			break
		}
		start := off + i
		off = start + 1

		var msg json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&msg); err != nil {
			continue
		}
		res := gjson.ParseBytes(msg)
		if !res.IsArray() {
			continue
		}
		items := res.Array()
		if len(items) == 0 || items[0].IsObject() {
			return res, true
		}
	}
	return gjson.Result{}, false
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}
