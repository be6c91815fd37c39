package service

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/noah-isme/tutoring-orchestrator/internal/catalog"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

// Notification template names.
const (
	TemplateSessionConfirmed   = "session_confirmed"
	TemplateSessionCancelled   = "session_cancelled"
	TemplateClassApproved      = "class_approved"
	TemplateClassPendingReview = "class_pending_review"
	TemplateClassRejected      = "class_rejected"
	TemplateTutoringMatch      = "tutoring_match"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var notificationTemplates = template.Must(template.New("notifications").ParseFS(templateFS, "templates/*.tmpl"))

// ComposerConfig carries the values shared by every message.
type ComposerConfig struct {
	OrgName    string
	AdminEmail string
}

// NotificationComposer turns lifecycle records into addressed notifications.
type NotificationComposer struct {
	cfg    ComposerConfig
	blocks *catalog.Blocks
}

// NewNotificationComposer constructs a composer. A nil catalog leaves block codes unresolved.
func NewNotificationComposer(cfg ComposerConfig, blocks *catalog.Blocks) *NotificationComposer {
	return &NotificationComposer{cfg: cfg, blocks: blocks}
}

type sessionView struct {
	OrgName   string
	Name      string
	Date      string
	Block     string
	Class     string
	Subject   string
	Location  string
	TutorName string
}

type classRequestView struct {
	OrgName      string
	UserName     string
	UserEmail    string
	Class        string
	Subject      string
	AutoApproved bool
}

type tutoringMatchView struct {
	OrgName     string
	TutorName   string
	StudentName string
	Grade       string
	Class       string
	Subject     string
	Topic       string
	Location    string
	Slots       []slotView
}

type slotView struct {
	Date     string
	CycleDay string
	Block    string
}

func (c *NotificationComposer) sessionView(s models.Session) sessionView {
	block := ""
	if s.Slot.Block != "" {
		block = c.blocks.Name(s.Slot.Block)
	}
	return sessionView{
		OrgName:   c.cfg.OrgName,
		Name:      s.Name,
		Date:      s.Slot.Date,
		Block:     block,
		Class:     s.Class,
		Subject:   s.Subject,
		Location:  s.Location,
		TutorName: s.TutorName,
	}
}

func (c *NotificationComposer) classRequestView(r models.ClassRequest) classRequestView {
	return classRequestView{
		OrgName:      c.cfg.OrgName,
		UserName:     r.UserName,
		UserEmail:    r.UserEmail,
		Class:        r.Class,
		Subject:      r.Subject,
		AutoApproved: r.AutoApproved,
	}
}

// SessionConfirmed addresses the student, the tutor and the admin.
func (c *NotificationComposer) SessionConfirmed(s models.Session) (models.Notification, error) {
	subject := fmt.Sprintf("Session Confirmation: %s", orDefault(s.Subject, "Tutoring"))
	return c.compose(TemplateSessionConfirmed, "session_confirmed:"+s.ID, subject, c.sessionView(s),
		s.Email, s.TutorEmail, c.cfg.AdminEmail)
}

// SessionCancelled addresses the student and the admin.
func (c *NotificationComposer) SessionCancelled(s models.Session) (models.Notification, error) {
	subject := fmt.Sprintf("Session Cancelled: %s", orDefault(s.Subject, "Tutoring"))
	return c.compose(TemplateSessionCancelled, "session_cancelled:"+s.ID, subject, c.sessionView(s),
		s.Email, c.cfg.AdminEmail)
}

// ClassApproved addresses the requester and the admin. Both approval paths share the key.
func (c *NotificationComposer) ClassApproved(r models.ClassRequest) (models.Notification, error) {
	subject := fmt.Sprintf("Class Request Approved: %s", r.Class)
	return c.compose(TemplateClassApproved, "class_approved:"+r.ID, subject, c.classRequestView(r),
		r.UserEmail, c.cfg.AdminEmail)
}

// ClassPendingReview addresses the admin and every subject lead.
func (c *NotificationComposer) ClassPendingReview(r models.ClassRequest, leads []models.User) (models.Notification, error) {
	subject := fmt.Sprintf("Class Request Pending Review: %s", r.Class)
	recipients := []string{c.cfg.AdminEmail}
	for _, lead := range leads {
		recipients = append(recipients, lead.Email)
	}
	return c.compose(TemplateClassPendingReview, "class_pending_review:"+r.ID, subject, c.classRequestView(r), recipients...)
}

// ClassRejected addresses the requester.
func (c *NotificationComposer) ClassRejected(r models.ClassRequest) (models.Notification, error) {
	subject := fmt.Sprintf("Class Request Not Approved: %s", r.Class)
	return c.compose(TemplateClassRejected, "class_rejected:"+r.ID, subject, c.classRequestView(r), r.UserEmail)
}

// TutoringMatch sends each matched tutor the requested slots they can cover.
func (c *NotificationComposer) TutoringMatch(r models.TutoringRequest, matches []TutorMatch) (models.Notification, error) {
	n := models.Notification{Key: "tutoring_match:" + r.ID, Template: TemplateTutoringMatch}
	subject := fmt.Sprintf("Tutoring Request: %s", orDefault(r.Class, r.Subject))
	for _, m := range matches {
		if m.Tutor.Email == "" {
			continue
		}
		view := tutoringMatchView{
			OrgName:     c.cfg.OrgName,
			TutorName:   m.Tutor.Name,
			StudentName: r.Name,
			Grade:       r.Grade,
			Class:       r.Class,
			Subject:     r.Subject,
			Topic:       r.Topic,
			Location:    r.Location,
		}
		for _, slot := range m.Slots {
			view.Slots = append(view.Slots, slotView{Date: slot.Date, CycleDay: slot.CycleDay, Block: c.blocks.Name(slot.Block)})
		}
		body, err := render(TemplateTutoringMatch, view)
		if err != nil {
			return models.Notification{}, err
		}
		n.Messages = append(n.Messages, models.Message{To: m.Tutor.Email, Subject: subject, Body: body})
	}
	return n, nil
}

func (c *NotificationComposer) compose(name, key, subject string, view interface{}, recipients ...string) (models.Notification, error) {
	body, err := render(name, view)
	if err != nil {
		return models.Notification{}, err
	}
	n := models.Notification{Key: key, Template: name}
	for _, to := range uniqueRecipients(recipients) {
		n.Messages = append(n.Messages, models.Message{To: to, Subject: subject, Body: body})
	}
	return n, nil
}

func render(name string, view interface{}) (string, error) {
	var buf bytes.Buffer
	if err := notificationTemplates.ExecuteTemplate(&buf, name+".tmpl", view); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+name)
	}
	return buf.String(), nil
}

// uniqueRecipients drops empty addresses and case-insensitive duplicates, keeping first-seen order.
func uniqueRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		k := strings.ToLower(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Recipients lists the addresses of n in sorted order.
func Recipients(n models.Notification) []string {
	out := make([]string, 0, len(n.Messages))
	for _, m := range n.Messages {
		out = append(out, m.To)
	}
	sort.Strings(out)
	return out
}
