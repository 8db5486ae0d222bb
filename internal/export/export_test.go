package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempinbox/internal/model"
)

type fakeFetcher struct {
	mu    sync.Mutex
	blobs map[string]string
	fail  string
	calls int
}

func (f *fakeFetcher) AttachmentLink(_ context.Context, _, _, attachmentID string) (*model.AttachmentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if attachmentID == f.fail {
		return nil, errors.New("link expired")
	}
	return &model.AttachmentLink{URL: "blob://" + attachmentID, ContentType: "application/octet-stream"}, nil
}

func (f *fakeFetcher) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.blobs[url])
	return int64(n), err
}

func sampleDetail() *model.MessageDetail {
	return &model.MessageDetail{
		ID:         "e1",
		InboxID:    "abc",
		From:       "Service <noreply@service.test>",
		Subject:    "Welcome aboard",
		ReceivedAt: 1_700_000_000,
		TextBody:   "Hello in text",
		HTMLBody:   "<p>Hello in html</p>",
		Attachments: []model.Attachment{
			{ID: "a1", Filename: "notes.txt", ContentType: "text/plain", SizeBytes: 5},
			{ID: "a2", Filename: "../../etc/passwd", SizeBytes: 4},
		},
	}
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{blobs: map[string]string{"blob://a1": "notes", "blob://a2": "data"}}
}

func TestBuildEML_RoundTrip(t *testing.T) {
	data, err := BuildEML(context.Background(), newFetcher(), sampleDetail(), "abc@mail.test")
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(data))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "noreply@service.test", from[0].Address)

	var bodies []string
	attachments := map[string]string{}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		b, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			bodies = append(bodies, string(b))
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			require.NoError(t, err)
			attachments[name] = string(b)
		}
	}

	assert.Equal(t, []string{"Hello in text", "<p>Hello in html</p>"}, bodies)
	assert.Equal(t, "notes", attachments["notes.txt"])
	assert.Len(t, attachments, 2)
}

func TestBuildEML_AttachmentFailure(t *testing.T) {
	f := newFetcher()
	f.fail = "a2"

	_, err := BuildEML(context.Background(), f, sampleDetail(), "abc@mail.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link expired")
}

func TestSaveMessage(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveMessage(context.Background(), newFetcher(), sampleDetail(), "abc@mail.test", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Welcome_aboard-e1.eml"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSaveAttachments_SanitizesNames(t *testing.T) {
	dir := t.TempDir()
	paths, err := SaveAttachments(context.Background(), newFetcher(), sampleDetail(), dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, filepath.Join(dir, "notes.txt"), paths[0])
	assert.Equal(t, filepath.Join(dir, "passwd"), paths[1])

	b, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func TestSaveAttachments_DuplicateNames(t *testing.T) {
	d := sampleDetail()
	d.Attachments = []model.Attachment{
		{ID: "a1", Filename: "image.png"},
		{ID: "a2", Filename: "image.png"},
		{ID: "a3", Filename: "image.png"},
	}
	f := &fakeFetcher{blobs: map[string]string{
		"blob://a1": "first",
		"blob://a2": "second",
		"blob://a3": "third",
	}}

	dir := t.TempDir()
	paths, err := SaveAttachments(context.Background(), f, d, dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "image.png"),
		filepath.Join(dir, "image-2.png"),
		filepath.Join(dir, "image-3.png"),
	}, paths)

	for i, want := range []string{"first", "second", "third"} {
		b, err := os.ReadFile(paths[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_2024.pdf", SanitizeFilename("report 2024.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "", SanitizeFilename(".."))
	assert.Equal(t, "", SanitizeFilename("   "))
}
