// Package export writes received messages to disk as .eml files and
// downloads their attachments.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/tempinbox/internal/model"
)

// maxParallelDownloads bounds concurrent attachment downloads.
const maxParallelDownloads = 3

// Fetcher resolves and downloads attachments.
type Fetcher interface {
	AttachmentLink(ctx context.Context, inboxID, emailID, attachmentID string) (*model.AttachmentLink, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// File is an attachment held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FetchAttachments downloads every attachment of d, preserving order.
func FetchAttachments(ctx context.Context, f Fetcher, d *model.MessageDetail) ([]File, error) {
	files := make([]File, len(d.Attachments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	for i, att := range d.Attachments {
		g.Go(func() error {
			var buf bytes.Buffer
			link, err := download(ctx, f, d, att, &buf)
			if err != nil {
				return err
			}
			ct := att.ContentType
			if ct == "" {
				ct = link.ContentType
			}
			files[i] = File{Name: att.Filename, ContentType: ct, Data: buf.Bytes()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// BuildEML renders d, addressed to to, as an RFC 5322 message with its
// attachments.
func BuildEML(ctx context.Context, f Fetcher, d *model.MessageDetail, to string) ([]byte, error) {
	files, err := FetchAttachments(ctx, f, d)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteEML(&buf, d, to, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteEML writes d as a multipart message: a text and/or HTML body
// followed by files as attachments.
func WriteEML(w io.Writer, d *model.MessageDetail, to string, files []File) error {
	var h mail.Header
	h.SetDate(time.Unix(d.ReceivedAt, 0))
	h.SetSubject(d.Subject)
	setAddress(&h, "From", d.From)
	setAddress(&h, "To", to)
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline writer: %w", err)
	}
	text := d.TextBody
	if text == "" && d.HTMLBody == "" {
		text = d.LargeBodyURL
	}
	if text != "" {
		if err := writeInline(tw, "text/plain", text); err != nil {
			return err
		}
	}
	if d.HTMLBody != "" {
		if err := writeInline(tw, "text/html", d.HTMLBody); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing inline writer: %w", err)
	}

	for _, file := range files {
		var ah mail.AttachmentHeader
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		ah.Set("Content-Type", ct)
		ah.SetFilename(file.Name)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("creating attachment %s: %w", file.Name, err)
		}
		if _, err := aw.Write(file.Data); err != nil {
			return fmt.Errorf("writing attachment %s: %w", file.Name, err)
		}
		if err := aw.Close(); err != nil {
			return fmt.Errorf("closing attachment %s: %w", file.Name, err)
		}
	}

	return mw.Close()
}

// SaveMessage writes d as an .eml file in dir and returns its path.
func SaveMessage(ctx context.Context, f Fetcher, d *model.MessageDetail, to, dir string) (string, error) {
	data, err := BuildEML(ctx, f, d, to)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	name := SanitizeFilename(d.Subject)
	if name == "" {
		name = "message"
	}
	path := filepath.Join(dir, name+"-"+SanitizeFilename(d.ID)+".eml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// SaveAttachments downloads every attachment of d into dir and returns the
// written paths in attachment order.
func SaveAttachments(ctx context.Context, f Fetcher, d *model.MessageDetail, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	paths := make([]string, len(d.Attachments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	taken := make(map[string]bool, len(d.Attachments))
	for i, att := range d.Attachments {
		name := SanitizeFilename(att.Filename)
		if name == "" {
			name = "attachment-" + SanitizeFilename(att.ID)
		}
		name = uniqueName(name, taken)
		path := filepath.Join(dir, name)
		paths[i] = path

		g.Go(func() error {
			out, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			if _, err := download(ctx, f, d, att, out); err != nil {
				out.Close()
				_ = os.Remove(path)
				return err
			}
			return out.Close()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// uniqueName returns name, or name with a -N suffix before the extension
// when an earlier attachment of the same message already claimed it.
func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	taken[candidate] = true
	return candidate
}

func download(ctx context.Context, f Fetcher, d *model.MessageDetail, att model.Attachment, w io.Writer) (*model.AttachmentLink, error) {
	link, err := f.AttachmentLink(ctx, d.InboxID, d.ID, att.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving attachment %s: %w", att.Filename, err)
	}
	if _, err := f.Download(ctx, link.URL, w); err != nil {
		return nil, fmt.Errorf("downloading attachment %s: %w", att.Filename, err)
	}
	return link, nil
}

func writeInline(tw *mail.InlineWriter, contentType, body string) error {
	var ih mail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	pw, err := tw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return pw.Close()
}

func setAddress(h *mail.Header, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if addr, err := mail.ParseAddress(value); err == nil {
		h.SetAddressList(field, []*mail.Address{addr})
		return
	}
	h.SetText(field, value)
}

var unsafeChars = regexp.MustCompile(`[^\w.\-]+`)

// SanitizeFilename reduces name to a safe single path element.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_.")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
