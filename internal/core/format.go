package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/pretty"
)

// FormatTimestamp renders t as "YYYY-MM-DD HH:MM:SS" in local time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatJSON indents a JSON document with two spaces. Invalid JSON is returned as is.
func FormatJSON(s string) string {
	if !json.Valid([]byte(s)) {
		return s
	}
	out := pretty.Pretty([]byte(s))
	return strings.TrimRight(string(out), "\n")
}

// FormatBody renders a decoded response body for display.
func FormatBody(body any) string {
	switch b := body.(type) {
	case nil:
		return ""
	case string:
		return FormatJSON(b)
	case []byte:
		return FormatJSON(string(b))
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return FormatJSON(string(data))
}
