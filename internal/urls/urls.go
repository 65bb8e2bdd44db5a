// Package urls builds canonical, reproducible source URLs for cached
// documents. Base URLs are supplied by the caller; nothing here reads
// ambient configuration.
package urls

import (
	"fmt"
	"net/url"
	"strings"
)

// WikipediaCanonical returns the permalink for a wiki page at a specific
// revision: <base>/w/index.php?title=<encoded>&oldid=<revision>. Without a
// revision it falls back to the plain <base>/wiki/<title> form, which is
// not stable across edits.
func WikipediaCanonical(baseURL, pageTitle string, revisionID int64) string {
	base := strings.TrimRight(baseURL, "/")
	title := strings.ReplaceAll(pageTitle, "_", " ")
	encoded := strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
	if revisionID > 0 {
		return fmt.Sprintf("%s/w/index.php?title=%s&oldid=%d", base, encoded, revisionID)
	}
	return fmt.Sprintf("%s/wiki/%s", base, encoded)
}

// DIPCanonical composes <base>/<endpoint>?<encoded params> from the query
// parameters actually used for the fetch. url.Values.Encode sorts keys, so
// the result is deterministic for a given parameter set.
func DIPCanonical(baseURL, endpoint string, params url.Values) string {
	base := strings.TrimRight(baseURL, "/")
	ep := strings.TrimLeft(endpoint, "/")
	out := base + "/" + ep
	if len(params) > 0 {
		out += "?" + params.Encode()
	}
	return out
}

// ParamsValues converts the loosely typed request-parameter map kept in
// cache metadata into url.Values. Slice values become repeated keys.
func ParamsValues(params map[string]any) url.Values {
	values := url.Values{}
	for key, raw := range params {
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				values.Add(key, fmt.Sprintf("%v", item))
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		case nil:
			// skip
		default:
			values.Add(key, fmt.Sprintf("%v", v))
		}
	}
	return values
}

// Normalize re-encodes a URL so that path and query are consistently
// escaped. Anything unparsable is returned trimmed but otherwise as-is.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = parsed.Query().Encode()
	return parsed.String()
}
