package model

// MessageSummary is a single row of an inbox listing.
type MessageSummary struct {
	ID              string `json:"id" db:"id"`
	From            string `json:"from" db:"from_address"`
	Subject         string `json:"subject" db:"subject"`
	ReceivedAt      int64  `json:"received_at" db:"received_at"`
	HasHTML         bool   `json:"has_html" db:"has_html"`
	AttachmentCount int    `json:"attachment_count" db:"attachment_count"`
}

// MessageList is a complete listing of an inbox at one point in time.
type MessageList struct {
	Count    int
	Messages []MessageSummary
}

// Attachment describes one file attached to a message.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size"`
}

// MessageDetail is the full read-only projection of a received message.
type MessageDetail struct {
	ID         string
	InboxID    string
	From       string
	Subject    string
	ReceivedAt int64
	TextBody   string
	HTMLBody   string

	// LargeBodyURL points at the raw body when it was too large to inline.
	LargeBodyURL string

	// Attachments keeps the order returned by the backend.
	Attachments []Attachment
}

// AttachmentLink is a pre-signed, time-limited download location.
type AttachmentLink struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
}
