package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
	"github.com/ignatzorin/report-moderation/internal/validation"
)

// CreateReportRequest — тело POST /api/reports. Ссылки на объекты принимаются
// строками, чтобы некорректный UUID вернул ошибку поля, а не общий 400.
type CreateReportRequest struct {
	ReportType         string  `json:"report_type"`
	ReportedUserID     *string `json:"reported_user_id"`
	ReportedPostID     *string `json:"reported_post_id"`
	ReportedDocumentID *string `json:"reported_document_id"`
	Reason             string  `json:"reason"`
	Description        *string `json:"description"`
}

// TargetRef разбирает ссылки на объект жалобы.
func (r CreateReportRequest) TargetRef() (entity.TargetRef, error) {
	fields := make(map[string]string)
	ref := entity.TargetRef{
		UserID:     parseOptionalUUID(r.ReportedUserID, "reported_user_id", fields),
		PostID:     parseOptionalUUID(r.ReportedPostID, "reported_post_id", fields),
		DocumentID: parseOptionalUUID(r.ReportedDocumentID, "reported_document_id", fields),
	}
	if len(fields) > 0 {
		return entity.TargetRef{}, apperror.ValidationFields(fields)
	}
	return ref, nil
}

func parseOptionalUUID(raw *string, field string, fields map[string]string) *uuid.UUID {
	id, err := validation.ParseOptionalUUID(field, raw)
	if err != nil {
		fields[field] = err.Error()
		return nil
	}
	return id
}

type CreateReportResponse struct {
	ID uuid.UUID `json:"id"`
}

type ReportResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ReporterID         uuid.UUID  `json:"reporter_id"`
	ReportType         string     `json:"report_type"`
	ReportedUserID     *uuid.UUID `json:"reported_user_id"`
	ReportedPostID     *uuid.UUID `json:"reported_post_id"`
	ReportedDocumentID *uuid.UUID `json:"reported_document_id"`
	Reason             string     `json:"reason"`
	Description        *string    `json:"description"`
	Status             string     `json:"status"`
	IsFalseReport      bool       `json:"is_false_report"`
	AdminNote          *string    `json:"admin_note"`
	ReviewedBy         *uuid.UUID `json:"reviewed_by"`
	CreatedAt          time.Time  `json:"created_at"`
	ReviewedAt         *time.Time `json:"reviewed_at"`
}

func ToReportResponse(r *entity.Report) ReportResponse {
	return ReportResponse{
		ID:                 r.ID,
		ReporterID:         r.ReporterID,
		ReportType:         string(r.ReportType),
		ReportedUserID:     r.ReportedUserID,
		ReportedPostID:     r.ReportedPostID,
		ReportedDocumentID: r.ReportedDocumentID,
		Reason:             string(r.Reason),
		Description:        r.Description,
		Status:             string(r.Status),
		IsFalseReport:      r.IsFalseReport,
		AdminNote:          r.AdminNote,
		ReviewedBy:         r.ReviewedBy,
		CreatedAt:          r.CreatedAt,
		ReviewedAt:         r.ReviewedAt,
	}
}

func ToReportResponses(reports []*entity.Report) []ReportResponse {
	result := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		result = append(result, ToReportResponse(r))
	}
	return result
}

type ReporterInfo struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

// TargetInfo содержит display_name и url объекта; для удалённого объекта
// display_name равен DELETED, а url пуст.
type TargetInfo struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	URL         string    `json:"url,omitempty"`
	Deleted     bool      `json:"deleted"`
}

type EnrichedReportResponse struct {
	ReportResponse
	Reporter ReporterInfo `json:"reporter"`
	Target   TargetInfo   `json:"target"`
}

func ToEnrichedReportResponse(e report.EnrichedReport) EnrichedReportResponse {
	return EnrichedReportResponse{
		ReportResponse: ToReportResponse(e.Report),
		Reporter: ReporterInfo{
			ID:          e.Reporter.ID,
			DisplayName: e.Reporter.DisplayName,
		},
		Target: TargetInfo{
			ID:          e.Report.TargetID(),
			DisplayName: e.Target.DisplayName,
			URL:         e.Target.URL,
			Deleted:     e.Target.Deleted,
		},
	}
}

func ToEnrichedReportResponses(items []report.EnrichedReport) []EnrichedReportResponse {
	result := make([]EnrichedReportResponse, 0, len(items))
	for _, item := range items {
		result = append(result, ToEnrichedReportResponse(item))
	}
	return result
}

type ReporterStatusResponse struct {
	WarningCount        int              `json:"warning_count"`
	BanUntil            *time.Time       `json:"ban_until"`
	IsBanned            bool             `json:"is_banned"`
	IsPermanentlyBanned bool             `json:"is_permanently_banned"`
	PendingReportsCount int              `json:"pending_reports_count"`
	CanReport           bool             `json:"can_report"`
	ReasonCode          *string          `json:"reason_code"`
	RecentReports       []ReportResponse `json:"recent_reports"`
}

func ToReporterStatusResponse(s *report.ReporterStatus) ReporterStatusResponse {
	var reasonCode *string
	if s.ReasonCode != "" {
		code := string(s.ReasonCode)
		reasonCode = &code
	}
	return ReporterStatusResponse{
		WarningCount:        s.WarningCount,
		BanUntil:            s.BanUntil,
		IsBanned:            s.IsBanned,
		IsPermanentlyBanned: s.IsPermanentlyBanned,
		PendingReportsCount: s.PendingReportsCount,
		CanReport:           s.CanReport,
		ReasonCode:          reasonCode,
		RecentReports:       ToReportResponses(s.RecentReports),
	}
}

// DecideReportRequest — тело PUT /api/admin/reports/:id/decision.
type DecideReportRequest struct {
	Status        string  `json:"status" binding:"required"`
	AdminNote     *string `json:"admin_note"`
	IsFalseReport bool    `json:"is_false_report"`
}

type PenaltyStateResponse struct {
	UserID              uuid.UUID  `json:"user_id"`
	WarningCount        int        `json:"warning_count"`
	BanUntil            *time.Time `json:"ban_until"`
	IsBanned            bool       `json:"is_banned"`
	IsPermanentlyBanned bool       `json:"is_permanently_banned"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

func ToPenaltyStateResponse(s *entity.PenaltyState, now time.Time) PenaltyStateResponse {
	resp := PenaltyStateResponse{
		UserID:              s.UserID,
		WarningCount:        s.WarningCount,
		BanUntil:            s.BanUntil,
		IsBanned:            s.IsBanned(now),
		IsPermanentlyBanned: s.IsPermanentlyBanned,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

type DecideReportResponse struct {
	Report  ReportResponse        `json:"report"`
	Penalty *PenaltyStateResponse `json:"penalty,omitempty"`
}

// ReducePenaltyRequest — тело POST /api/admin/users/:id/penalty/reduce.
type ReducePenaltyRequest struct {
	Amount int `json:"amount"`
}

type PenaltyEventResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                string     `json:"kind"`
	Delta               int        `json:"delta"`
	WarningCount        int        `json:"warning_count"`
	BanUntil            *time.Time `json:"ban_until"`
	IsPermanentlyBanned bool       `json:"is_permanently_banned"`
	ReportID            *uuid.UUID `json:"report_id"`
	AdminID             *uuid.UUID `json:"admin_id"`
	CreatedAt           time.Time  `json:"created_at"`
}

func ToPenaltyEventResponses(events []*entity.PenaltyEvent) []PenaltyEventResponse {
	result := make([]PenaltyEventResponse, 0, len(events))
	for _, e := range events {
		result = append(result, PenaltyEventResponse{
			ID:                  e.ID,
			Kind:                string(e.Kind),
			Delta:               e.Delta,
			WarningCount:        e.WarningCount,
			BanUntil:            e.BanUntil,
			IsPermanentlyBanned: e.IsPermanentlyBanned,
			ReportID:            e.ReportID,
			AdminID:             e.AdminID,
			CreatedAt:           e.CreatedAt,
		})
	}
	return result
}

// UserPenaltyResponse — административный вид штрафов пользователя.
type UserPenaltyResponse struct {
	Penalty PenaltyStateResponse   `json:"penalty"`
	Status  ReporterStatusResponse `json:"status"`
	History []PenaltyEventResponse `json:"history"`
}
