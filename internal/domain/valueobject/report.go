package valueobject

import "github.com/ignatzorin/report-moderation/internal/pkg/apperror"

type ReportType string

const (
	ReportTypeUser     ReportType = "user"
	ReportTypePost     ReportType = "post"
	ReportTypeDocument ReportType = "document"
)

func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeUser, ReportTypePost, ReportTypeDocument:
		return true
	}
	return false
}

func NewReportType(value string) (ReportType, error) {
	t := ReportType(value)
	if !t.IsValid() {
		return "", apperror.Validation("report_type", "тип жалобы должен быть одним из: user, post, document")
	}
	return t, nil
}

type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonHarassment    ReportReason = "harassment"
	ReportReasonFakeInfo      ReportReason = "fake_info"
	ReportReasonCopyright     ReportReason = "copyright"
	ReportReasonOther         ReportReason = "other"
)

func (r ReportReason) IsValid() bool {
	switch r {
	case ReportReasonSpam, ReportReasonInappropriate, ReportReasonHarassment,
		ReportReasonFakeInfo, ReportReasonCopyright, ReportReasonOther:
		return true
	}
	return false
}

func NewReportReason(value string) (ReportReason, error) {
	r := ReportReason(value)
	if !r.IsValid() {
		return "", apperror.Validation("reason", "неизвестная причина жалобы")
	}
	return r, nil
}

// ReportStatus — состояние жалобы. pending — единственное начальное,
// остальные терминальные.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusPending:   {ReportStatusReviewed, ReportStatusResolved, ReportStatusDismissed},
	ReportStatusReviewed:  {},
	ReportStatusResolved:  {},
	ReportStatusDismissed: {},
}

func (s ReportStatus) IsValid() bool {
	_, ok := reportTransitions[s]
	return ok
}

func (s ReportStatus) IsTerminal() bool {
	return s.IsValid() && s != ReportStatusPending
}

func (s ReportStatus) CanTransitionTo(newStatus ReportStatus) bool {
	for _, status := range reportTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewReportStatus(value string) (ReportStatus, error) {
	s := ReportStatus(value)
	if !s.IsValid() {
		return "", apperror.Validation("status", "некорректный статус жалобы")
	}
	return s, nil
}

// NewDecisionStatus принимает только терминальные статусы.
func NewDecisionStatus(value string) (ReportStatus, error) {
	s := ReportStatus(value)
	if !s.IsTerminal() {
		return "", apperror.Validation("status", "статус решения должен быть одним из: reviewed, resolved, dismissed")
	}
	return s, nil
}

// DenialCode — машиночитаемая причина, по которой пользователь не может подать жалобу.
type DenialCode string

const (
	DenialNone         DenialCode = ""
	DenialPermanentBan DenialCode = "PERMANENT_BAN"
	DenialTempBan      DenialCode = "TEMP_BAN"
	DenialPendingCap   DenialCode = "PENDING_CAP"
)

// BanWindowMode задаёт, как новая ложная жалоба влияет на действующий временный бан.
type BanWindowMode string

const (
	// BanWindowReset начинает новое окно от момента события.
	BanWindowReset BanWindowMode = "reset"
	// BanWindowExtend добавляет окно к оставшемуся сроку.
	BanWindowExtend BanWindowMode = "extend"
)

func (m BanWindowMode) IsValid() bool {
	return m == BanWindowReset || m == BanWindowExtend
}
