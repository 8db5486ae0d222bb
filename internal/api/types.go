package api

import "encoding/json"

// createInboxRequest is the body of POST /api/inbox.
type createInboxRequest struct {
	TTL int `json:"ttl"`
}

// inboxResponse is returned by mailbox creation.
type inboxResponse struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	ExpiresAt int64  `json:"expires_at"`
}

// emailSummary is one element of the listing's emails array.
type emailSummary struct {
	EmailID         string `json:"email_id"`
	FromAddress     string `json:"from_address"`
	Subject         string `json:"subject"`
	ReceivedAt      int64  `json:"received_at"`
	HasHTML         bool   `json:"has_html"`
	AttachmentCount int    `json:"attachment_count"`
}

// emailListResponse is one page of GET /api/inbox/{id}/emails.
type emailListResponse struct {
	Emails  []emailSummary `json:"emails"`
	Count   int            `json:"count"`
	LastKey *string        `json:"last_key"`
}

// statusResponse is returned by GET /api/inbox/{id}/status.
type statusResponse struct {
	ID         string `json:"id"`
	Exists     bool   `json:"exists"`
	ExpiresAt  int64  `json:"expires_at"`
	EmailCount int    `json:"email_count"`
}

type attachmentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// emailDetailResponse is returned by GET /api/email/{inboxId}/{emailId}.
type emailDetailResponse struct {
	EmailID      string           `json:"email_id"`
	FromAddress  string           `json:"from_address"`
	Subject      string           `json:"subject"`
	TextBody     string           `json:"text_body"`
	HTMLBody     string           `json:"html_body"`
	ReceivedAt   int64            `json:"received_at"`
	LargeBodyURL string           `json:"large_body_url"`
	Attachments  []attachmentInfo `json:"attachments"`
}

// attachmentLinkResponse is returned by the attachment endpoint.
type attachmentLinkResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// errorResponse is the FastAPI error envelope. Detail is either a string or
// a list of validation entries.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationEntry struct {
	Msg string `json:"msg"`
}
