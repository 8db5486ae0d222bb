package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/tempinbox/internal/model"
)

const (
	// pageSize is the largest page the listing endpoint accepts.
	pageSize = 100

	// maxPages caps a single listing walk.
	maxPages = 10
)

// CreateInbox requests a new mailbox that lives for ttl.
func (c *Client) CreateInbox(ctx context.Context, ttl time.Duration) (*model.Session, error) {
	var resp inboxResponse
	req := createInboxRequest{TTL: int(ttl / time.Second)}
	if err := c.Post(ctx, "/api/inbox", req, &resp); err != nil {
		return nil, fmt.Errorf("creating inbox: %w", err)
	}

	return &model.Session{
		ID:        resp.ID,
		Address:   resp.Address,
		ExpiresAt: resp.ExpiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// ListEmails returns every message in the inbox, newest first, following
// last_key pagination up to maxPages pages. Count is the number of
// messages returned.
func (c *Client) ListEmails(ctx context.Context, inboxID string) (*model.MessageList, error) {
	list := &model.MessageList{Messages: []model.MessageSummary{}}
	lastKey := ""

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		if lastKey != "" {
			q.Set("last_key", lastKey)
		}
		path := "/api/inbox/" + url.PathEscape(inboxID) + "/emails?" + q.Encode()

		var resp emailListResponse
		if err := c.Get(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf("listing emails for %s: %w", inboxID, err)
		}

		for _, e := range resp.Emails {
			list.Messages = append(list.Messages, model.MessageSummary{
				ID:              e.EmailID,
				From:            e.FromAddress,
				Subject:         e.Subject,
				ReceivedAt:      e.ReceivedAt,
				HasHTML:         e.HasHTML,
				AttachmentCount: e.AttachmentCount,
			})
		}

		if resp.LastKey == nil || *resp.LastKey == "" || *resp.LastKey == lastKey {
			break
		}
		lastKey = *resp.LastKey
	}

	list.Count = len(list.Messages)
	return list, nil
}

// Status returns the lightweight existence and count answer. A mailbox that
// no longer exists yields *ExpiredMailboxError.
func (c *Client) Status(ctx context.Context, inboxID string) (*model.InboxStatus, error) {
	var resp statusResponse
	path := "/api/inbox/" + url.PathEscape(inboxID) + "/status"
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("checking status of %s: %w", inboxID, err)
	}

	if !resp.Exists {
		return nil, &ExpiredMailboxError{InboxID: inboxID}
	}

	return &model.InboxStatus{
		Exists:     true,
		EmailCount: resp.EmailCount,
		ExpiresAt:  resp.ExpiresAt,
	}, nil
}

// GetEmail fetches one message with bodies and attachment metadata.
func (c *Client) GetEmail(ctx context.Context, inboxID, emailID string) (*model.MessageDetail, error) {
	var resp emailDetailResponse
	path := "/api/email/" + url.PathEscape(inboxID) + "/" + url.PathEscape(emailID)
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("getting email %s: %w", emailID, err)
	}

	detail := &model.MessageDetail{
		ID:           resp.EmailID,
		InboxID:      inboxID,
		From:         resp.FromAddress,
		Subject:      resp.Subject,
		ReceivedAt:   resp.ReceivedAt,
		TextBody:     resp.TextBody,
		HTMLBody:     resp.HTMLBody,
		LargeBodyURL: resp.LargeBodyURL,
		Attachments:  make([]model.Attachment, 0, len(resp.Attachments)),
	}
	if detail.ID == "" {
		detail.ID = emailID
	}
	for _, a := range resp.Attachments {
		detail.Attachments = append(detail.Attachments, model.Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			SizeBytes:   a.Size,
		})
	}

	return detail, nil
}

// AttachmentLink returns a pre-signed, time-limited download URL.
func (c *Client) AttachmentLink(
	ctx context.Context,
	inboxID, emailID, attachmentID string,
) (*model.AttachmentLink, error) {
	var resp attachmentLinkResponse
	path := "/api/attachment/" + url.PathEscape(inboxID) +
		"/" + url.PathEscape(emailID) +
		"/" + url.PathEscape(attachmentID)
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", attachmentID, err)
	}

	return &model.AttachmentLink{
		URL:         resp.DownloadURL,
		Filename:    resp.Filename,
		ContentType: resp.ContentType,
		Size:        resp.Size,
	}, nil
}

// Download streams a pre-signed URL into w. The URL already carries its
// own authorization, so no bearer token is sent.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &TransportError{Method: http.MethodGet, Path: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Method: http.MethodGet, Path: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			Path:       rawURL,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Method: http.MethodGet, Path: rawURL, Err: err}
	}
	return n, nil
}
