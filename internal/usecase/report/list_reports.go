package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/metrics"
)

// DeletedSentinel подставляется вместо имени объекта, который больше не существует
// или не может быть получен.
const DeletedSentinel = "DELETED"

const unknownUserName = "неизвестный пользователь"

const defaultEnrichConcurrency = 8

type TargetView struct {
	DisplayName string
	URL         string
	Deleted     bool
}

type EnrichedReport struct {
	Report   *entity.Report
	Reporter repository.UserInfo
	Target   TargetView
}

type ListReportsInput struct {
	Status     string
	ReportType string
}

type ListReportsUseCase struct {
	store       repository.Store
	resolver    repository.ContentResolver
	concurrency int
}

func NewListReportsUseCase(store repository.Store, resolver repository.ContentResolver) *ListReportsUseCase {
	return &ListReportsUseCase{
		store:       store,
		resolver:    resolver,
		concurrency: defaultEnrichConcurrency,
	}
}

// Execute возвращает жалобы от новых к старым, дополненные сведениями о репортере и объекте.
func (uc *ListReportsUseCase) Execute(ctx context.Context, input ListReportsInput) ([]EnrichedReport, error) {
	filter := repository.ReportFilter{}
	if input.Status != "" {
		status, err := valueobject.NewReportStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if input.ReportType != "" {
		reportType, err := valueobject.NewReportType(input.ReportType)
		if err != nil {
			return nil, err
		}
		filter.ReportType = &reportType
	}

	reports, err := uc.store.Reports().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, reports), nil
}

// Get возвращает одну жалобу с теми же сведениями.
func (uc *ListReportsUseCase) Get(ctx context.Context, id uuid.UUID) (*EnrichedReport, error) {
	report, err := uc.store.Reports().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	enriched := uc.enrich(ctx, []*entity.Report{report})
	return &enriched[0], nil
}

// ListByReporter возвращает последние жалобы пользователя без обогащения.
func (uc *ListReportsUseCase) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit int) ([]*entity.Report, error) {
	return uc.store.Reports().List(ctx, repository.ReportFilter{ReporterID: &reporterID, Limit: limit})
}

func (uc *ListReportsUseCase) enrich(ctx context.Context, reports []*entity.Report) []EnrichedReport {
	result := make([]EnrichedReport, len(reports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, r := range reports {
		g.Go(func() error {
			result[i] = uc.enrichOne(gctx, r)
			return nil
		})
	}
	_ = g.Wait()

	return result
}

func (uc *ListReportsUseCase) enrichOne(ctx context.Context, r *entity.Report) EnrichedReport {
	out := EnrichedReport{
		Report:   r,
		Reporter: repository.UserInfo{ID: r.ReporterID, DisplayName: unknownUserName},
		Target:   TargetView{DisplayName: DeletedSentinel, Deleted: true},
	}
	if uc.resolver == nil {
		return out
	}

	log := logger.Component("report").WithFields(logrus.Fields{
		"report_id":   r.ID,
		"report_type": r.ReportType,
	})

	if user, err := uc.resolver.ResolveUser(ctx, r.ReporterID); err == nil {
		out.Reporter = user
	} else if !errors.Is(err, repository.ErrTargetDeleted) {
		log.WithError(err).Warn("could not resolve reporter")
	}

	target, err := uc.resolver.Resolve(ctx, r.ReportType, r.TargetID())
	switch {
	case err == nil:
		out.Target = TargetView{DisplayName: target.DisplayName, URL: target.URL}
	case errors.Is(err, repository.ErrTargetDeleted):
	default:
		metrics.TargetResolutionFailures.WithLabelValues(string(r.ReportType)).Inc()
		log.WithError(err).Warn("could not resolve report target")
	}
	return out
}
