package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const (
	// DefaultPageSize is the number of presets per page when none is requested.
	DefaultPageSize = 15
	// MaxPageSize caps client-requested page sizes.
	MaxPageSize = 100
)

// Scope selects which presets a listing covers.
type Scope string

const (
	ScopeOwned  Scope = "owned"
	ScopePublic Scope = "public"
)

// PresetFilter holds criteria for listing presets. Listings always exclude
// soft-deleted presets and are ordered by created_at DESC, id DESC.
type PresetFilter struct {
	Scope    Scope  `json:"scope"`
	ToolID   string `json:"tool_id"`
	OwnerID  string `json:"owner_id,omitempty"`  // required for ScopeOwned
	ViewerID string `json:"viewer_id,omitempty"` // annotates UserReaction when set

	// Page is the zero-based page index for offset paging. Ignored when After is set.
	Page     int     `json:"page,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
	After    *Cursor `json:"after,omitempty"`
}

// Limit returns the effective page size.
func (f PresetFilter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return DefaultPageSize
	case f.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return f.PageSize
}

// Offset returns the row offset for offset paging.
func (f PresetFilter) Offset() int {
	if f.Page <= 0 || f.After != nil {
		return 0
	}
	return f.Page * f.Limit()
}

// Cursor is a seek position in the (created_at DESC, id DESC) ordering: the
// next page starts strictly after this key.
type Cursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

// CursorAfter returns the cursor positioned after p.
func CursorAfter(p *Preset) *Cursor {
	return &Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

var errBadCursor = errors.New("malformed cursor")

// Encode returns the opaque, URL-safe form of the cursor.
func (c *Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// ParseCursor decodes a cursor produced by Encode.
func ParseCursor(s string) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "cursor", Message: errBadCursor.Error()}}}
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil || c.ID == "" {
		return nil, &ValidationError{Errors: []FieldError{{Field: "cursor", Message: errBadCursor.Error()}}}
	}
	return &c, nil
}

// Page is one window of a listing. A page shorter than the requested size
// is the only end-of-list signal; no total is exposed.
type Page struct {
	Presets    []*Preset `json:"presets"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// NewPage builds a Page, attaching a seek cursor when the page is full.
func NewPage(presets []*Preset, limit int) *Page {
	if presets == nil {
		presets = []*Preset{}
	}
	p := &Page{Presets: presets}
	if len(presets) > 0 && len(presets) >= limit {
		p.NextCursor = CursorAfter(presets[len(presets)-1]).Encode()
	}
	return p
}
