// Package snippet locates and extracts short citation strings from cached
// documents: either the lead paragraph of a page or one specific row of a
// data table.
package snippet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the snippet reference variant.
type Kind string

const (
	KindLeadParagraph Kind = "lead_paragraph"
	KindTableRow      Kind = "table_row"
)

// RefVersion is the current snippet reference schema version.
const RefVersion = 1

// Ref is a typed, versioned coordinate describing where inside a document
// a citation should be extracted from. The zero value (or a nil *Ref)
// means "lead paragraph".
type Ref struct {
	Version    int               `json:"version,omitempty"`
	Kind       Kind              `json:"type"`
	TableIndex int               `json:"table_index,omitempty"`
	RowIndex   int               `json:"row_index,omitempty"`
	RowKind    string            `json:"row_kind,omitempty"`
	TitleHint  string            `json:"title_hint,omitempty"`
	Match      map[string]string `json:"match,omitempty"`
}

// TableRowRef builds a current-version table row coordinate.
func TableRowRef(tableIndex, rowIndex int) Ref {
	return Ref{
		Version:    RefVersion,
		Kind:       KindTableRow,
		TableIndex: tableIndex,
		RowIndex:   rowIndex,
		RowKind:    "data",
	}
}

// ParseLegacy decodes the historical colon-delimited string encoding
// "table_row:<tableIndex>:<rowIndex>" into the typed variant. Omitted
// indices default to zero.
func ParseLegacy(s string) (Ref, error) {
	if !strings.HasPrefix(s, string(KindTableRow)+":") && s != string(KindTableRow) {
		return Ref{}, fmt.Errorf("snippet: unrecognized legacy reference %q", s)
	}
	parts := strings.Split(s, ":")
	ref := TableRowRef(0, 0)
	if len(parts) > 1 && parts[1] != "" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Ref{}, fmt.Errorf("snippet: bad table index in %q: %w", s, err)
		}
		ref.TableIndex = n
	}
	if len(parts) > 2 && parts[2] != "" {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Ref{}, fmt.Errorf("snippet: bad row index in %q: %w", s, err)
		}
		ref.RowIndex = n
	}
	return ref, nil
}

// UnmarshalJSON accepts both the typed object form and the legacy string
// form, so old export files keep decoding at the boundary. Deeper layers
// only ever see the typed variant. An unrecognized legacy string degrades
// to the zero Ref (lead paragraph) rather than poisoning the batch it
// arrived in.
func (r *Ref) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseLegacy(s)
		if err != nil {
			*r = Ref{}
			return nil
		}
		*r = parsed
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}
