package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/validation"
)

// TargetRef — ссылка на объект жалобы. Заполнено должно быть ровно одно поле,
// соответствующее типу жалобы.
type TargetRef struct {
	UserID     *uuid.UUID
	PostID     *uuid.UUID
	DocumentID *uuid.UUID
}

// Report — жалоба пользователя. Жалобы не удаляются физически и служат журналом аудита.
type Report struct {
	ID                 uuid.UUID
	ReporterID         uuid.UUID
	ReportType         valueobject.ReportType
	ReportedUserID     *uuid.UUID
	ReportedPostID     *uuid.UUID
	ReportedDocumentID *uuid.UUID
	Reason             valueobject.ReportReason
	Description        *string
	Status             valueobject.ReportStatus
	IsFalseReport      bool
	AdminNote          *string
	ReviewedBy         *uuid.UUID
	CreatedAt          time.Time
	ReviewedAt         *time.Time
}

func NewReport(reporterID uuid.UUID, reportType string, target TargetRef, reason string, description *string, now time.Time) (*Report, error) {
	fields := make(map[string]string)

	t, err := valueobject.NewReportType(reportType)
	if err != nil {
		fields["report_type"] = messageOf(err)
	}
	rs, err := valueobject.NewReportReason(reason)
	if err != nil {
		fields["reason"] = messageOf(err)
	}

	description = validation.NormalizeOptional(description)
	if err := validation.ValidateReportDescription(description); err != nil {
		fields["description"] = err.Error()
	}

	if t.IsValid() {
		validateTarget(t, target, reporterID, fields)
	} else if target.UserID == nil && target.PostID == nil && target.DocumentID == nil {
		fields["target"] = "не указан объект жалобы"
	}

	if len(fields) > 0 {
		return nil, apperror.ValidationFields(fields)
	}

	return &Report{
		ID:                 uuid.New(),
		ReporterID:         reporterID,
		ReportType:         t,
		ReportedUserID:     target.UserID,
		ReportedPostID:     target.PostID,
		ReportedDocumentID: target.DocumentID,
		Reason:             rs,
		Description:        description,
		Status:             valueobject.ReportStatusPending,
		CreatedAt:          now,
	}, nil
}

func validateTarget(t valueobject.ReportType, target TargetRef, reporterID uuid.UUID, fields map[string]string) {
	refs := map[valueobject.ReportType]*uuid.UUID{
		valueobject.ReportTypeUser:     target.UserID,
		valueobject.ReportTypePost:     target.PostID,
		valueobject.ReportTypeDocument: target.DocumentID,
	}

	for refType, ref := range refs {
		field := targetField(refType)
		switch {
		case refType == t && ref == nil:
			fields[field] = "обязателен для типа жалобы " + string(t)
		case refType != t && ref != nil:
			fields[field] = "не должен быть указан для типа жалобы " + string(t)
		}
	}

	if t == valueobject.ReportTypeUser && target.UserID != nil && *target.UserID == reporterID {
		fields["reported_user_id"] = "нельзя пожаловаться на самого себя"
	}
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func targetField(t valueobject.ReportType) string {
	return "reported_" + string(t) + "_id"
}

// TargetID возвращает идентификатор объекта жалобы согласно её типу.
func (r *Report) TargetID() uuid.UUID {
	var ref *uuid.UUID
	switch r.ReportType {
	case valueobject.ReportTypeUser:
		ref = r.ReportedUserID
	case valueobject.ReportTypePost:
		ref = r.ReportedPostID
	case valueobject.ReportTypeDocument:
		ref = r.ReportedDocumentID
	}
	if ref == nil {
		return uuid.Nil
	}
	return *ref
}

func (r *Report) IsPending() bool {
	return r.Status == valueobject.ReportStatusPending
}

// Decision — решение администратора по жалобе.
type Decision struct {
	AdminID       uuid.UUID
	Status        string
	AdminNote     *string
	IsFalseReport bool
	// AllowRedecision разрешает повторное решение по уже закрытой жалобе.
	AllowRedecision bool
}

// Decide применяет решение и сообщает, перешёл ли флаг ложной жалобы из false в true.
// Флаг ложной жалобы не снимается повторным решением, поэтому штраф
// начисляется не более одного раза на жалобу.
func (r *Report) Decide(d Decision, now time.Time) (bool, error) {
	status, err := valueobject.NewDecisionStatus(d.Status)
	if err != nil {
		return false, err
	}

	note := validation.NormalizeOptional(d.AdminNote)
	if err := validation.ValidateAdminNote(note); err != nil {
		return false, apperror.Validation("admin_note", err.Error())
	}

	if !r.Status.CanTransitionTo(status) && !(d.AllowRedecision && r.Status.IsTerminal()) {
		return false, apperror.ErrAlreadyDecided
	}

	flagged := !r.IsFalseReport && d.IsFalseReport

	r.Status = status
	r.AdminNote = note
	r.IsFalseReport = r.IsFalseReport || d.IsFalseReport
	adminID := d.AdminID
	r.ReviewedBy = &adminID
	if r.ReviewedAt == nil {
		reviewedAt := now
		r.ReviewedAt = &reviewedAt
	}

	return flagged, nil
}

// Clone возвращает независимую копию жалобы.
func (r *Report) Clone() *Report {
	c := *r
	c.ReportedUserID = cloneUUID(r.ReportedUserID)
	c.ReportedPostID = cloneUUID(r.ReportedPostID)
	c.ReportedDocumentID = cloneUUID(r.ReportedDocumentID)
	c.ReviewedBy = cloneUUID(r.ReviewedBy)
	if r.Description != nil {
		v := *r.Description
		c.Description = &v
	}
	if r.AdminNote != nil {
		v := *r.AdminNote
		c.AdminNote = &v
	}
	if r.ReviewedAt != nil {
		v := *r.ReviewedAt
		c.ReviewedAt = &v
	}
	return &c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
