package models

// SubmitAssetRequest registers a media payload with a session slot. Exactly
// one source must be set: a fetchable URL, an Azure blob URL, or inline
// base64 bytes.
type SubmitAssetRequest struct {
	URL         string `json:"url,omitempty"`
	BlobURL     string `json:"blob_url,omitempty"`
	DataBase64  string `json:"data_base64,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// AssetResponse reports the lifecycle state of a session's current asset
type AssetResponse struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	RemoteID    string `json:"remote_id,omitempty"`
	RemoteURI   string `json:"remote_uri,omitempty"`
	SizeBytes   int    `json:"size_bytes"`
	MIMEType    string `json:"mime_type"`
}

// AnalyzeRequest runs one analysis against the session's ready asset
type AnalyzeRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Mode   string `json:"mode" binding:"required,oneof=descriptive structured"`
	// SystemPrompt overrides the mode's default instruction when set
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// AnnotationItem is one detected point or box in the API response
type AnnotationItem struct {
	Label string `json:"label"`
	Point []int  `json:"point,omitempty"`
	Box   []int  `json:"box_2d,omitempty"`
}

// AnalyzeResponse carries either structured annotations or the model's raw
// text, never both
type AnalyzeResponse struct {
	SessionID   string           `json:"session_id"`
	Mode        string           `json:"mode"`
	Items       []AnnotationItem `json:"items,omitempty"`
	RawText     string           `json:"raw_text,omitempty"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
	Cached      bool             `json:"cached"`
}
