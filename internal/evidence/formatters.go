package evidence

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
)

// FormatJSON renders resolved evidence as an indented JSON array.
func FormatJSON(resolved []ResolvedEvidence) (string, error) {
	data, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}
	return string(data), nil
}

// FormatYAML renders resolved evidence as a YAML document list.
func FormatYAML(resolved []ResolvedEvidence) (string, error) {
	data, err := yaml.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("format yaml: %w", err)
	}
	return string(data), nil
}

// FormatMarkdown renders a citation-style listing, one bullet block per
// evidence record. Empty optional fields are left out.
func FormatMarkdown(resolved []ResolvedEvidence) string {
	var b strings.Builder
	for _, e := range resolved {
		fmt.Fprintf(&b, "- Evidence `%s`\n", e.EvidenceID)
		fmt.Fprintf(&b, "  - **Source**: %s\n", e.SourceKind)
		if e.PageTitle != "" {
			fmt.Fprintf(&b, "  - **Page**: %s\n", e.PageTitle)
		}
		if e.RevisionID != 0 {
			fmt.Fprintf(&b, "  - **Revision**: %d\n", e.RevisionID)
		}
		fmt.Fprintf(&b, "  - **URL**: %s\n", e.CanonicalURL)
		if e.RetrievedAtUTC != "" {
			fmt.Fprintf(&b, "  - **Retrieved**: %s\n", e.RetrievedAtUTC)
		}
		if e.SHA256 != "" {
			fmt.Fprintf(&b, "  - **SHA256**: `%s...`\n", truncateHash(e.SHA256))
		}
		if e.Snippet != "" {
			fmt.Fprintf(&b, "  - **Snippet**: %q\n", e.Snippet)
		}
		if e.SnippetSource != "" {
			fmt.Fprintf(&b, "  - **Snippet Source**: %s\n", e.SnippetSource)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FormatTable renders a flattened tab-aligned table, one row per record.
func FormatTable(resolved []ResolvedEvidence) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVIDENCE ID\tSOURCE\tPAGE\tREVISION\tURL\tSNIPPET")
	for _, e := range resolved {
		revision := ""
		if e.RevisionID != 0 {
			revision = fmt.Sprintf("%d", e.RevisionID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.EvidenceID, e.SourceKind, e.PageTitle, revision, e.CanonicalURL, e.Snippet)
	}
	w.Flush()
	return b.String()
}

func truncateHash(sha string) string {
	if len(sha) <= 16 {
		return sha
	}
	return sha[:16]
}
