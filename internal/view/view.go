// Package view projects session state into display-ready values. Nothing
// here touches the network, timers or the terminal.
package view

import (
	"strconv"
	"time"

	"github.com/nhle/tempinbox/internal/countdown"
	"github.com/nhle/tempinbox/internal/extract"
	"github.com/nhle/tempinbox/internal/model"
)

const (
	EmptyTitle = "No emails yet"
	EmptyHint  = "Emails sent to your temporary address will appear here"
	NoSubject  = "(no subject)"
)

// Phase mirrors the session lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCreating
	PhaseActive
	PhaseExpired
)

// State is everything Render needs.
type State struct {
	Phase     Phase
	Session   *model.Session
	Countdown string
	Count     int
	Messages  []model.MessageSummary
	Detail    *model.MessageDetail

	// LastExpired is shown as a notice after expiry returns to idle.
	LastExpired *model.Session
	Err         error
	Now         time.Time
	Location    *time.Location
}

// ListItem is one row of the inbox.
type ListItem struct {
	ID          string
	From        string
	Subject     string
	Received    string
	Attachments int
}

// AttachmentItem is one attachment row of the detail view.
type AttachmentItem struct {
	ID       string
	Filename string
	Size     string
}

// DetailView is an opened message.
type DetailView struct {
	ID           string
	Subject      string
	From         string
	Received     string
	Body         string
	IsHTML       bool
	LargeBodyURL string
	Attachments  []AttachmentItem
	Codes        []string
	Links        []string
}

// ViewModel is the projected screen.
type ViewModel struct {
	Address    string
	Countdown  string
	CountLabel string

	// ShowCreate is true when the user can only request a mailbox.
	ShowCreate bool
	Loading    bool
	ShowInbox  bool

	Items     []ListItem
	Empty     bool
	EmptyText string
	EmptyHint string

	Detail *DetailView
	Notice string
}

// Render projects s. It is a pure function of its input.
func Render(s State) ViewModel {
	vm := ViewModel{
		Countdown:  s.Countdown,
		CountLabel: strconv.Itoa(s.Count),
	}
	if vm.Countdown == "" {
		vm.Countdown = countdown.IdleLabel
	}

	switch s.Phase {
	case PhaseIdle:
		vm.ShowCreate = true
		vm.CountLabel = "0"
		if s.LastExpired != nil {
			vm.Notice = "Your inbox " + s.LastExpired.Address + " has expired"
		}
		if s.Err != nil {
			vm.Notice = "Failed to create inbox: " + s.Err.Error()
		}
		return vm

	case PhaseCreating:
		vm.Loading = true
		vm.CountLabel = "0"
		return vm

	case PhaseExpired:
		vm.Countdown = countdown.ExpiredLabel
		if s.Session != nil {
			vm.Address = s.Session.Address
			vm.Notice = "Your inbox " + s.Session.Address + " has expired"
		}
		return vm
	}

	if s.Session != nil {
		vm.Address = s.Session.Address
	}
	vm.ShowInbox = true

	if s.Detail != nil {
		vm.Detail = renderDetail(s.Detail, s.Location)
		return vm
	}

	if len(s.Messages) == 0 {
		vm.Empty = true
		vm.EmptyText = EmptyTitle
		vm.EmptyHint = EmptyHint
		return vm
	}

	vm.Items = make([]ListItem, 0, len(s.Messages))
	for _, m := range s.Messages {
		vm.Items = append(vm.Items, ListItem{
			ID:          m.ID,
			From:        m.From,
			Subject:     subjectOrDefault(m.Subject),
			Received:    RelativeTime(m.ReceivedAt, s.Now),
			Attachments: m.AttachmentCount,
		})
	}
	return vm
}

func renderDetail(d *model.MessageDetail, loc *time.Location) *DetailView {
	dv := &DetailView{
		ID:           d.ID,
		Subject:      subjectOrDefault(d.Subject),
		From:         d.From,
		Received:     DateTime(d.ReceivedAt, loc),
		LargeBodyURL: d.LargeBodyURL,
	}

	// HTML wins when present, rendered down to text.
	if d.HTMLBody != "" {
		dv.IsHTML = true
		dv.Body = HTMLToText(d.HTMLBody)
	} else {
		dv.Body = d.TextBody
	}

	for _, a := range d.Attachments {
		dv.Attachments = append(dv.Attachments, AttachmentItem{
			ID:       a.ID,
			Filename: a.Filename,
			Size:     FileSize(a.SizeBytes),
		})
	}

	source := d.TextBody
	if source == "" {
		source = dv.Body
	}
	dv.Codes = extract.Codes(d.Subject, source)
	dv.Links = extract.Links(d.TextBody + "\n" + d.HTMLBody)
	return dv
}

func subjectOrDefault(s string) string {
	if s == "" {
		return NoSubject
	}
	return s
}
