// Package headers assembles the effective header set and query string of an
// outgoing request.
package headers

import (
	"net/textproto"
	"slices"
	"strings"

	"github.com/artpar/requst/internal/core"
)

// UnsafeHeaders are header names a browser-style transport refuses to let
// callers set.
var UnsafeHeaders = []string{
	"Accept-Charset", "Accept-Encoding", "Access-Control-Request-Headers",
	"Access-Control-Request-Method", "Connection", "Content-Length", "Cookie",
	"Cookie2", "Date", "DNT", "Expect", "Host", "Keep-Alive", "Origin", "Referer",
	"TE", "Trailer", "Transfer-Encoding", "Upgrade", "Via", "User-Agent",
}

// Policy decides which header names are stripped from the effective set.
type Policy struct {
	denied map[string]struct{}
}

// NewPolicy builds a policy denying the given names, compared case-insensitively.
func NewPolicy(denied []string) Policy {
	p := Policy{denied: make(map[string]struct{}, len(denied))}
	for _, name := range denied {
		p.denied[strings.ToLower(name)] = struct{}{}
	}
	return p
}

// DefaultPolicy denies UnsafeHeaders.
func DefaultPolicy() Policy {
	return NewPolicy(UnsafeHeaders)
}

// Allows reports whether name may be sent.
func (p Policy) Allows(name string) bool {
	_, denied := p.denied[strings.ToLower(name)]
	return !denied
}

// Denied returns the number of denied names.
func (p Policy) Denied() int {
	return len(p.denied)
}

// Merge combines global and local headers using the default policy.
func Merge(global, local []core.HeaderEntry, bearerToken string) map[string]string {
	return DefaultPolicy().Merge(global, local, bearerToken)
}

// Merge is Assemble as a map keyed by the exact header keys.
func (p Policy) Merge(global, local []core.HeaderEntry, bearerToken string) map[string]string {
	rows := p.Assemble(global, local, bearerToken)
	combined := make(map[string]string, len(rows))
	for _, h := range rows {
		combined[h.Key] = h.Value
	}
	return combined
}

// Assemble combines global then local headers, skipping disabled rows and
// rows with an empty key. A later row overwrites an earlier row with the same
// key and takes its position, so rows stay in the order they were last
// written. A non-empty bearer token replaces every Authorization row, whatever
// its case, and comes last. Names denied by the policy are removed.
func (p Policy) Assemble(global, local []core.HeaderEntry, bearerToken string) []core.HeaderEntry {
	var rows []core.HeaderEntry
	apply := func(entries []core.HeaderEntry) {
		for _, h := range entries {
			if !h.Enabled || h.Key == "" {
				continue
			}
			rows = slices.DeleteFunc(rows, func(r core.HeaderEntry) bool { return r.Key == h.Key })
			rows = append(rows, core.HeaderEntry{Key: h.Key, Value: h.Value, Enabled: true})
		}
	}
	apply(global)
	apply(local)

	if bearerToken != "" {
		rows = slices.DeleteFunc(rows, func(h core.HeaderEntry) bool {
			return strings.EqualFold(h.Key, "Authorization")
		})
		rows = append(rows, core.HeaderEntry{Key: "Authorization", Value: "Bearer " + bearerToken, Enabled: true})
	}

	return slices.DeleteFunc(rows, func(h core.HeaderEntry) bool {
		return !p.Allows(h.Key)
	})
}

// Wire maps assembled rows to the headers sent on the wire. Keys that name
// the same header in different case collapse into one, the later row winning.
func Wire(rows []core.HeaderEntry) map[string]string {
	out := make(map[string]string, len(rows))
	for _, h := range rows {
		out[textproto.CanonicalMIMEHeaderKey(h.Key)] = h.Value
	}
	return out
}

// FromGlobal strips store ids from global header records.
func FromGlobal(global []core.GlobalHeader) []core.HeaderEntry {
	out := make([]core.HeaderEntry, 0, len(global))
	for _, g := range global {
		out = append(out, g.KeyValue)
	}
	return out
}
