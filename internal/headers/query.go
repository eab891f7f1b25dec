package headers

import (
	"net/url"
	"strings"

	"github.com/artpar/requst/internal/core"
)

// BuildQueryString encodes enabled parameters with a non-empty key as
// key=value pairs joined by '&'. It returns "" when nothing qualifies.
func BuildQueryString(params []core.QueryEntry) string {
	var parts []string
	for _, p := range params {
		if !p.Enabled || p.Key == "" {
			continue
		}
		parts = append(parts, EncodeComponent(p.Key)+"="+EncodeComponent(p.Value))
	}
	return strings.Join(parts, "&")
}

// AppendQuery appends "?qs" to base when qs is non-empty.
func AppendQuery(base, qs string) string {
	if qs == "" {
		return base
	}
	return base + "?" + qs
}

// EncodeComponent percent-encodes s for use as a query key or value.
// Spaces become %20 rather than '+'.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
