package snippet

import (
	"regexp"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Ellipsis is appended when a snippet is truncated.
const Ellipsis = "..."

// DefaultMaxLen bounds snippet length when the caller does not specify one.
const DefaultMaxLen = 500

var footnoteMarkers = regexp.MustCompile(`\[\d+\]`)

// contentRegionClass marks the primary content region of a parsed wiki page.
const contentRegionClass = "mw-parser-output"

// dataTableClass marks structured data tables on wiki pages.
const dataTableClass = "wikitable"

// minLeadLength is the normalized length a paragraph needs to qualify as
// the lead paragraph.
const minLeadLength = 80

// Clean normalizes extracted text: footnote markers like [1] are removed,
// whitespace runs collapse to a single space, and the result is trimmed.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = footnoteMarkers.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens s to at most maxLen characters, breaking on the last
// whitespace boundary before the limit and appending the ellipsis marker.
// Words are never split.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	prefix := string(runes[:maxLen])
	if idx := strings.LastIndex(prefix, " "); idx > 0 {
		prefix = prefix[:idx]
	}
	return prefix + Ellipsis
}

// Extract pulls a citation snippet out of parsed page HTML. A table row
// reference is attempted first when supplied; the lead paragraph serves as
// fallback when the reference is absent or cannot be satisfied. It returns
// the snippet and the name of the strategy that produced it, or empty
// strings when the document yields nothing.
func Extract(pageHTML string, ref *Ref, maxLen int) (text string, source string) {
	if strings.TrimSpace(pageHTML) == "" {
		return "", ""
	}
	root, err := dom.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", ""
	}
	if ref != nil && ref.Kind == KindTableRow {
		if s := extractTableRow(root, *ref, maxLen); s != "" {
			return s, string(KindTableRow)
		}
	}
	if s := extractLeadParagraph(root, maxLen); s != "" {
		return s, string(KindLeadParagraph)
	}
	return "", ""
}

// extractLeadParagraph picks the first paragraph of the content region
// whose normalized text reaches minLeadLength, falling back to the first
// non-empty paragraph.
func extractLeadParagraph(root *html.Node, maxLen int) string {
	region := contentRegion(root)
	if region == nil {
		return ""
	}
	paragraphs := dom.GetElementsByTagName(region, "p")
	for _, p := range paragraphs {
		cleaned := Clean(dom.TextContent(p))
		if len([]rune(cleaned)) >= minLeadLength {
			return Truncate(cleaned, maxLen)
		}
	}
	for _, p := range paragraphs {
		if cleaned := Clean(dom.TextContent(p)); cleaned != "" {
			return Truncate(cleaned, maxLen)
		}
	}
	return ""
}

// extractTableRow addresses one data row of one table. The header row is
// skipped; RowIndex counts data rows from zero. Cell texts are joined with
// " | ".
func extractTableRow(root *html.Node, ref Ref, maxLen int) string {
	tables := dataTables(root)
	if ref.TableIndex < 0 || ref.TableIndex >= len(tables) {
		return ""
	}
	rows := dom.GetElementsByTagName(tables[ref.TableIndex], "tr")
	if len(rows) > 1 {
		rows = rows[1:]
	}
	if ref.RowIndex < 0 || ref.RowIndex >= len(rows) {
		return ""
	}
	var cells []string
	for c := rows[ref.RowIndex].FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data != "td" && c.Data != "th" {
			continue
		}
		if text := strings.TrimSpace(dom.TextContent(c)); text != "" {
			cells = append(cells, text)
		}
	}
	if len(cells) == 0 {
		return ""
	}
	cleaned := Clean(strings.Join(cells, " | "))
	if cleaned == "" {
		return ""
	}
	return Truncate(cleaned, maxLen)
}

func contentRegion(root *html.Node) *html.Node {
	for _, node := range dom.GetElementsByClassName(root, contentRegionClass) {
		if dom.TagName(node) == "div" {
			return node
		}
	}
	return nil
}

// dataTables returns tables carrying the structured-data class, or every
// table when none is marked.
func dataTables(root *html.Node) []*html.Node {
	all := dom.GetElementsByTagName(root, "table")
	var marked []*html.Node
	for _, tbl := range all {
		for _, class := range strings.Fields(dom.ClassName(tbl)) {
			if class == dataTableClass {
				marked = append(marked, tbl)
				break
			}
		}
	}
	if len(marked) > 0 {
		return marked
	}
	return all
}
