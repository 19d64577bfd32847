package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/report-moderation/internal/interface/http/dto"
	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
	"github.com/ignatzorin/report-moderation/internal/usecase/moderation"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
)

const defaultHistoryLimit = 50

// ModerationHandler обслуживает административные маршруты.
type ModerationHandler struct {
	listUC      *report.ListReportsUseCase
	decideUC    *moderation.DecideReportUseCase
	ledger      *moderation.PenaltyLedger
	guard       *report.EligibilityGuard
	recentLimit int
	now         func() time.Time
}

func NewModerationHandler(
	listUC *report.ListReportsUseCase,
	decideUC *moderation.DecideReportUseCase,
	ledger *moderation.PenaltyLedger,
	guard *report.EligibilityGuard,
	recentLimit int,
) *ModerationHandler {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &ModerationHandler{
		listUC:      listUC,
		decideUC:    decideUC,
		ledger:      ledger,
		guard:       guard,
		recentLimit: recentLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListReports обрабатывает GET /api/admin/reports?status=&report_type=.
func (h *ModerationHandler) ListReports(c *gin.Context) {
	items, err := h.listUC.Execute(c.Request.Context(), report.ListReportsInput{
		Status:     c.Query("status"),
		ReportType: c.Query("report_type"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEnrichedReportResponses(items))
}

// GetReport обрабатывает GET /api/admin/reports/:id.
func (h *ModerationHandler) GetReport(c *gin.Context) {
	item, err := h.listUC.Get(c.Request.Context(), pathUUID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEnrichedReportResponse(*item))
}

// DecideReport обрабатывает PUT /api/admin/reports/:id/decision.
func (h *ModerationHandler) DecideReport(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.DecideReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	result, err := h.decideUC.Execute(c.Request.Context(), moderation.DecideReportInput{
		ReportID:      pathUUID(c, "id"),
		AdminID:       adminID,
		Status:        req.Status,
		AdminNote:     req.AdminNote,
		IsFalseReport: req.IsFalseReport,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.DecideReportResponse{Report: dto.ToReportResponse(result.Report)}
	if result.Penalty != nil {
		penalty := dto.ToPenaltyStateResponse(result.Penalty.State, h.now())
		resp.Penalty = &penalty
	}
	response.Success(c, resp)
}

// GetUserPenalty обрабатывает GET /api/admin/users/:id/penalty.
func (h *ModerationHandler) GetUserPenalty(c *gin.Context) {
	ctx := c.Request.Context()
	userID := pathUUID(c, "id")

	state, err := h.ledger.GetState(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.guard.GetStatus(ctx, userID, h.recentLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.ledger.History(ctx, userID, parseIntQuery(c, "history_limit", defaultHistoryLimit))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.UserPenaltyResponse{
		Penalty: dto.ToPenaltyStateResponse(state, h.now()),
		Status:  dto.ToReporterStatusResponse(status),
		History: dto.ToPenaltyEventResponses(history),
	})
}

// ReducePenalty обрабатывает POST /api/admin/users/:id/penalty/reduce.
func (h *ModerationHandler) ReducePenalty(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ReducePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	out, err := h.ledger.ReducePenalty(c.Request.Context(), pathUUID(c, "id"), req.Amount, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToPenaltyStateResponse(out.State, h.now()))
}
