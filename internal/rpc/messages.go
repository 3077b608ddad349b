package rpc

import "github.com/alfredjeanlab/presets/internal/model"

// Messages mirror proto/presets/v1/presets.proto field for field; the JSON
// tags are the proto field names. The caller's identity never travels in a
// message body; it is taken from the "authorization" or "x-user-id" metadata.

type SavePresetRequest struct {
	ToolID     string         `json:"tool_id"`
	Name       string         `json:"name"`
	Parameters model.Document `json:"parameters"`
	IsPublic   bool           `json:"is_public"`
}

type SavePresetResponse struct {
	Preset *model.Preset `json:"preset"`
}

type GetPresetRequest struct {
	ID string `json:"id"`
}

type GetPresetResponse struct {
	Preset *model.Preset `json:"preset"`
}

type SetVisibilityRequest struct {
	ID       string `json:"id"`
	IsPublic bool   `json:"is_public"`
}

type SetVisibilityResponse struct {
	Visibility model.Visibility `json:"visibility"`
	Changed    bool             `json:"changed"`
}

type DeletePresetRequest struct {
	ID string `json:"id"`
}

type DeletePresetResponse struct{}

// ListPresetsRequest serves both ListOwned and ListPublic. Cursor, when set,
// takes precedence over Page.
type ListPresetsRequest struct {
	ToolID   string `json:"tool_id"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	Cursor   string `json:"cursor,omitempty"`
}

type ListPresetsResponse struct {
	Presets    []*model.Preset `json:"presets"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type ToggleReactionRequest struct {
	PresetID string `json:"preset_id"`
	Symbol   string `json:"symbol"`
}

type ToggleReactionResponse struct {
	Result *model.ToggleResult `json:"result"`
}
