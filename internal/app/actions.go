package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/archive"
	"github.com/nhle/tempinbox/internal/export"
	"github.com/nhle/tempinbox/internal/ui/message"
)

// exportTimeout bounds a save, download or archive run.
const exportTimeout = 2 * time.Minute

// runAction performs a message action off the update loop and reports the
// outcome as a notice.
func (m Model) runAction(msg message.ActionMsg) tea.Cmd {
	d := m.detail
	sess := m.ctrl.Session()
	if d == nil || sess == nil || d.ID != msg.EmailID {
		return nil
	}

	f := m.backend
	log := m.log.With(zap.String("email_id", d.ID), zap.String("action", msg.Action))
	dir := m.cfg.DownloadDir
	to := sess.Address

	switch msg.Action {
	case message.ActionSave:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()

			path, err := export.SaveMessage(ctx, f, d, to, dir)
			if err != nil {
				log.Warn("saving message failed", zap.Error(err))
				return errorNotice("Save failed", err)
			}
			log.Info("message saved", zap.String("path", path))
			return noticeMsg{text: "Saved to " + path}
		}

	case message.ActionDownload:
		target := filepath.Join(dir, export.SanitizeFilename(d.ID))
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()

			paths, err := export.SaveAttachments(ctx, f, d, target)
			if err != nil {
				log.Warn("downloading attachments failed", zap.Error(err))
				return errorNotice("Download failed", err)
			}
			return noticeMsg{text: fmt.Sprintf("Downloaded %d file(s) to %s", len(paths), target)}
		}

	case message.ActionArchive:
		a := m.archiver
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()

			data, err := export.BuildEML(ctx, f, d, to)
			if err != nil {
				return errorNotice("Archive failed", err)
			}
			if err := a.Append(ctx, data, time.Unix(d.ReceivedAt, 0)); err != nil {
				if errors.Is(err, archive.ErrDisabled) {
					return errorNotice("Archive unavailable", err)
				}
				log.Warn("archiving message failed", zap.Error(err))
				return errorNotice("Archive failed", err)
			}
			return noticeMsg{text: "Archived to " + a.Folder()}
		}

	case message.ActionCopyCode:
		codes := m.messageView.Detail()
		if codes == nil || len(codes.Codes) == 0 {
			return nil
		}
		return m.copy(codes.Codes[0], "Copied code "+codes.Codes[0])
	}

	return nil
}

// copyAddress puts the live mailbox address on the clipboard.
func (m Model) copyAddress() tea.Cmd {
	sess := m.ctrl.Session()
	if sess == nil {
		return nil
	}
	return m.copy(sess.Address, "Copied "+sess.Address)
}

func (m Model) copy(text, done string) tea.Cmd {
	copyText := m.copyText
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			return errorNotice("Copy failed", err)
		}
		return noticeMsg{text: done}
	}
}
