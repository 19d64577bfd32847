package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/report-moderation/internal/interface/http/dto"
	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
)

// ReportHandler обслуживает пользовательские маршруты жалоб.
type ReportHandler struct {
	submitUC    *report.SubmitReportUseCase
	listUC      *report.ListReportsUseCase
	guard       *report.EligibilityGuard
	recentLimit int
}

func NewReportHandler(submitUC *report.SubmitReportUseCase, listUC *report.ListReportsUseCase, guard *report.EligibilityGuard, recentLimit int) *ReportHandler {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &ReportHandler{
		submitUC:    submitUC,
		listUC:      listUC,
		guard:       guard,
		recentLimit: recentLimit,
	}
}

// CreateReport обрабатывает POST /api/reports.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	target, err := req.TargetRef()
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.submitUC.Execute(c.Request.Context(), report.SubmitReportInput{
		ReporterID:  userID,
		ReportType:  req.ReportType,
		Target:      target,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreateReportResponse{ID: created.ID})
}

// GetMyStatus обрабатывает GET /api/reports/me/status.
func (h *ReportHandler) GetMyStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.guard.GetStatus(c.Request.Context(), userID, h.recentLimit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReporterStatusResponse(status))
}

// ListMyReports обрабатывает GET /api/reports/me?limit=.
func (h *ReportHandler) ListMyReports(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", h.recentLimit)
	reports, err := h.listUC.ListByReporter(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponses(reports))
}
