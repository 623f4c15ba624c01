package models

import (
	"time"
)

// Comment snapshot models

// Vector is a 2D offset within a node's coordinate space.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClientMeta carries the pin/region anchor a comment was attached with.
// All fields are optional; a comment with no client meta is a plain
// file-level comment with no visual anchor.
type ClientMeta struct {
	NodeID           string  `json:"node_id,omitempty"`
	NodeOffset       *Vector `json:"node_offset,omitempty"`
	RegionWidth      float64 `json:"region_width,omitempty"`
	RegionHeight     float64 `json:"region_height,omitempty"`
	CommentPinCorner string  `json:"comment_pin_corner,omitempty"` // top-left | top-right | bottom-left | bottom-right
}

// Comment is one comment from the design file's thread, as fetched at the
// start of a batch. The snapshot is immutable for the duration of a run.
type Comment struct {
	ID         string      `json:"id"`
	Message    string      `json:"message"`
	Text       string      `json:"text,omitempty"` // alternate text field some API versions use
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	ParentID   string      `json:"parent_id,omitempty"`
	Author     User        `json:"user"`
	ClientMeta *ClientMeta `json:"client_meta,omitempty"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
}

// User identifies a comment author.
type User struct {
	ID     string `json:"id"`
	Handle string `json:"handle,omitempty"`
}

// Body returns the comment text, preferring Message and falling back to
// the alternate field. Empty when neither is set.
func (c Comment) Body() string {
	if c.Message != "" {
		return c.Message
	}
	return c.Text
}

// Node models

// BoundingBox is a node's absolute bounding box in file coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is the read-only metadata for one design node.
type Node struct {
	ID                  string       `json:"id"`
	Type                string       `json:"type"`
	Name                string       `json:"name"`
	AbsoluteBoundingBox *BoundingBox `json:"absoluteBoundingBox,omitempty"`
}

// Crop & context models

// CropRegion is an integer rectangle in image pixel coordinates. A valid
// region always satisfies X+Width <= imageWidth and Y+Height <= imageHeight.
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DesignContext is the visual and structural context assembled for one
// comment. Any subset of fields may be empty; partial population is a
// valid, non-error state.
type DesignContext struct {
	NodeID         string            `json:"node_id,omitempty"`
	NodeName       string            `json:"node_name,omitempty"`
	NodeType       string            `json:"node_type,omitempty"`
	NodeProperties map[string]string `json:"node_properties,omitempty"`
	ImageURL       string            `json:"image_url,omitempty"`
	ImageBase64    string            `json:"image_base64,omitempty"`
}

// HasImage reports whether an inline image payload was materialized.
func (d DesignContext) HasImage() bool {
	return d.ImageBase64 != ""
}

// Outcome models

// AnalysisStatus classifies how the generative step ended for a comment.
type AnalysisStatus string

const (
	AnalysisSuccess AnalysisStatus = "success"
	AnalysisError   AnalysisStatus = "error"
)

// AnalysisOutcome is the result of the generative-analysis step for one
// comment. On exhausted retries ReplyMessage carries the user-facing
// apology and ErrorDetail the underlying cause.
type AnalysisOutcome struct {
	ReplyMessage string         `json:"reply_message"`
	Status       AnalysisStatus `json:"status"`
	ErrorDetail  string         `json:"error_detail,omitempty"`
}

// AuditRecord is one append-only log entry per processed comment. Records
// are written once and never updated or deleted by the pipeline.
type AuditRecord struct {
	ID          string            `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	FileKey     string            `json:"file_key" db:"file_key"`
	CommentID   string            `json:"comment_id" db:"comment_id"`
	CommentText string            `json:"comment_text" db:"comment_text"`
	NodeID      string            `json:"node_id,omitempty" db:"node_id"`
	NodeImage   string            `json:"node_image,omitempty" db:"node_image"`
	LLMResponse string            `json:"llm_response" db:"llm_response"`
	Status      string            `json:"status" db:"status"`
	ErrorMsg    string            `json:"error_message,omitempty" db:"error_message"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// SkippedComment records a comment the run could not complete, with the
// reason. Skips never abort the batch.
type SkippedComment struct {
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason"`
}

// SentReply records one successfully posted reply.
type SentReply struct {
	CommentID string `json:"comment_id"`
	ReplyID   string `json:"reply_id,omitempty"`
	Message   string `json:"message"`
}

// RunSummary is the ephemeral result of one batch pass over one file.
type RunSummary struct {
	FileKey       string           `json:"file_key"`
	TotalComments int              `json:"total_comments"`
	MentionsFound int              `json:"mentions_found"`
	RepliesSent   int              `json:"replies_sent"`
	Skipped       []SkippedComment `json:"skipped"`
	Replies       []SentReply      `json:"replies"`
}
