package domain

import "encoding/json"

// EvidenceIDsOf projects typed evidence refs onto the legacy flat id list:
// the deduplicated union of the refs' evidence ids, in first-seen order.
// The flat list on entities is always recomputed from the refs through
// this projection, never maintained as a second source of truth.
func EvidenceIDsOf(refs []EvidenceRef) []string {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.EvidenceID == "" {
			continue
		}
		if _, ok := seen[ref.EvidenceID]; ok {
			continue
		}
		seen[ref.EvidenceID] = struct{}{}
		out = append(out, ref.EvidenceID)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeEvidenceRefs appends incoming refs onto existing ones, dropping
// duplicates. Two refs are the same when evidence id, purpose and snippet
// coordinate all match; enrichment passes can therefore re-run safely.
func MergeEvidenceRefs(existing, incoming []EvidenceRef) []EvidenceRef {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]EvidenceRef, 0, len(existing)+len(incoming))
	add := func(ref EvidenceRef) {
		key := refKey(ref)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	for _, ref := range existing {
		add(ref)
	}
	for _, ref := range incoming {
		add(ref)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UnionEvidenceIDs merges two flat id lists preserving first-seen order.
func UnionEvidenceIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func refKey(ref EvidenceRef) string {
	key := ref.EvidenceID + "|" + ref.Purpose
	if ref.SnippetRef != nil {
		if encoded, err := json.Marshal(ref.SnippetRef); err == nil {
			key += "|" + string(encoded)
		}
	}
	return key
}
