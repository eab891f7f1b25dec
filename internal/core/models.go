package core

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// KeyValue is an ordered header or query parameter row.
type KeyValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// UnmarshalJSON decodes a row, treating a missing "enabled" as true.
func (kv *KeyValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key     string `json:"key"`
		Value   string `json:"value"`
		Enabled *bool  `json:"enabled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kv.Key = raw.Key
	kv.Value = raw.Value
	kv.Enabled = raw.Enabled == nil || *raw.Enabled
	return nil
}

// HeaderEntry is a request header row.
type HeaderEntry = KeyValue

// QueryEntry is a query parameter row.
type QueryEntry = KeyValue

// GlobalHeader is a header applied to every outgoing request.
// ID is assigned by the store and is not used when merging.
type GlobalHeader struct {
	ID int64 `json:"id,omitempty"`
	KeyValue
}

// UnmarshalJSON keeps the store id alongside the embedded row.
func (g *GlobalHeader) UnmarshalJSON(data []byte) error {
	var id struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if err := g.KeyValue.UnmarshalJSON(data); err != nil {
		return err
	}
	g.ID = id.ID
	return nil
}

// EmptyRow returns the blank row editors start with.
func EmptyRow() KeyValue {
	return KeyValue{Enabled: true}
}

// HistoryItem is a request that was actually sent.
type HistoryItem struct {
	ID          int64         `json:"id,omitempty"`
	Name        string        `json:"name"`
	Method      string        `json:"method"`
	URL         string        `json:"url"`
	Body        string        `json:"body,omitempty"`
	Headers     []HeaderEntry `json:"headers,omitempty"`
	QueryParams []QueryEntry  `json:"queryParams,omitempty"`
	BearerToken string        `json:"bearerToken,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// SameRequest reports whether two history items describe the same request.
// Timestamp and ID are ignored; nil and empty lists are equal.
func (h HistoryItem) SameRequest(other HistoryItem) bool {
	return h.URL == other.URL &&
		h.Method == other.Method &&
		h.Body == other.Body &&
		h.Name == other.Name &&
		h.BearerToken == other.BearerToken &&
		slices.Equal(h.Headers, other.Headers) &&
		slices.Equal(h.QueryParams, other.QueryParams)
}

// ItemType distinguishes collection leaves from groups.
type ItemType string

const (
	ItemRequest ItemType = "request"
	ItemGroup   ItemType = "group"
)

// CollectionItem is a node of the collection tree. Hierarchy is expressed only
// through ParentID; a nil ParentID marks a root.
type CollectionItem struct {
	ID          int64         `json:"id,omitempty"`
	Name        string        `json:"name"`
	Method      string        `json:"method,omitempty"`
	URL         string        `json:"url,omitempty"`
	Body        string        `json:"body,omitempty"`
	Headers     []HeaderEntry `json:"headers,omitempty"`
	QueryParams []QueryEntry  `json:"queryParams,omitempty"`
	BearerToken string        `json:"bearerToken,omitempty"`
	Type        ItemType      `json:"type"`
	ParentID    *int64        `json:"parentId"`
}

// IsGroup reports whether the item is a group node.
func (c CollectionItem) IsGroup() bool {
	return c.Type == ItemGroup
}

// HasParent reports whether the item is attached under parent.
func (c CollectionItem) HasParent(parent int64) bool {
	return c.ParentID != nil && *c.ParentID == parent
}

// ParentRef returns a pointer suitable for CollectionItem.ParentID.
// Zero means root.
func ParentRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// Draft is the request currently being composed.
type Draft struct {
	Name        string
	Method      string
	URL         string
	Body        string
	Headers     []HeaderEntry
	QueryParams []QueryEntry
	BearerToken string
}

// NewDraft returns an empty GET draft with one blank header and query row.
func NewDraft() Draft {
	return Draft{
		Method:      "GET",
		Headers:     []HeaderEntry{EmptyRow()},
		QueryParams: []QueryEntry{EmptyRow()},
	}
}

// NormalizeMethod upper-cases method, defaulting to GET.
func NormalizeMethod(method string) string {
	if method == "" {
		return "GET"
	}
	return strings.ToUpper(method)
}

// ToHistory converts the draft into a history candidate stamped with ts.
// An empty name falls back to the URL. The method is stored as sent.
func (d Draft) ToHistory(ts time.Time) HistoryItem {
	name := d.Name
	if name == "" {
		name = d.URL
	}
	return HistoryItem{
		Name:        name,
		Method:      NormalizeMethod(d.Method),
		URL:         d.URL,
		Body:        d.Body,
		Headers:     slices.Clone(d.Headers),
		QueryParams: slices.Clone(d.QueryParams),
		BearerToken: d.BearerToken,
		Timestamp:   ts,
	}
}

// MethodCarriesBody reports whether requests with method send a body.
func MethodCarriesBody(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT":
		return true
	}
	return false
}

// NormalizeRows replaces an empty list with one blank row, as editors expect.
// Decoded rows already default enabled to true.
func NormalizeRows(rows []KeyValue) []KeyValue {
	if len(rows) == 0 {
		return []KeyValue{EmptyRow()}
	}
	out := make([]KeyValue, len(rows))
	copy(out, rows)
	return out
}
