// Package memory — хранилище жалоб и штрафов в памяти процесса.
// Используется в тестах и при STORAGE_DRIVER=memory; транзакции
// сериализуются общим мьютексом и откатываются по снимку данных.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

type data struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]*entity.Report
	order     []uuid.UUID
	penalties map[uuid.UUID]*entity.PenaltyState
	events    []*entity.PenaltyEvent
}

type snapshot struct {
	reports   map[uuid.UUID]*entity.Report
	order     []uuid.UUID
	penalties map[uuid.UUID]*entity.PenaltyState
	events    int
}

func (d *data) snapshot() snapshot {
	s := snapshot{
		reports:   make(map[uuid.UUID]*entity.Report, len(d.reports)),
		order:     append([]uuid.UUID(nil), d.order...),
		penalties: make(map[uuid.UUID]*entity.PenaltyState, len(d.penalties)),
		events:    len(d.events),
	}
	for id, r := range d.reports {
		s.reports[id] = r.Clone()
	}
	for id, p := range d.penalties {
		s.penalties[id] = p.Clone()
	}
	return s
}

func (d *data) restore(s snapshot) {
	d.reports = s.reports
	d.order = s.order
	d.penalties = s.penalties
	d.events = d.events[:s.events]
}

// Store реализует repository.Store.
type Store struct {
	data *data
	inTx bool
}

func NewStore() *Store {
	return &Store{data: &data{
		reports:   make(map[uuid.UUID]*entity.Report),
		penalties: make(map[uuid.UUID]*entity.PenaltyState),
	}}
}

func (s *Store) Reports() repository.ReportRepository {
	return &reportRepository{store: s}
}

func (s *Store) Penalties() repository.PenaltyRepository {
	return &penaltyRepository{store: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	snap := s.data.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.data.restore(snap)
			panic(p)
		}
	}()

	if err = fn(&Store{data: s.data, inTx: true}); err != nil {
		s.data.restore(snap)
	}
	return err
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.data.mu.Lock()
	return s.data.mu.Unlock
}

type reportRepository struct {
	store *Store
}

func (r *reportRepository) Create(ctx context.Context, report *entity.Report) error {
	defer r.store.lock()()
	d := r.store.data
	if _, exists := d.reports[report.ID]; exists {
		return apperror.New(apperror.ErrCodeConflict, "жалоба уже существует")
	}
	d.reports[report.ID] = report.Clone()
	d.order = append(d.order, report.ID)
	return nil
}

func (r *reportRepository) Update(ctx context.Context, report *entity.Report) error {
	defer r.store.lock()()
	d := r.store.data
	if _, exists := d.reports[report.ID]; !exists {
		return apperror.ErrReportNotFound
	}
	d.reports[report.ID] = report.Clone()
	return nil
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	defer r.store.lock()()
	report, ok := r.store.data.reports[id]
	if !ok {
		return nil, apperror.ErrReportNotFound
	}
	return report.Clone(), nil
}

func (r *reportRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.FindByID(ctx, id)
}

func (r *reportRepository) List(ctx context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	defer r.store.lock()()
	d := r.store.data

	result := make([]*entity.Report, 0)
	for i := len(d.order) - 1; i >= 0; i-- {
		report := d.reports[d.order[i]]
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		if filter.ReportType != nil && report.ReportType != *filter.ReportType {
			continue
		}
		if filter.ReporterID != nil && report.ReporterID != *filter.ReporterID {
			continue
		}
		result = append(result, report.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *reportRepository) CountPendingByReporter(ctx context.Context, reporterID uuid.UUID) (int, error) {
	defer r.store.lock()()
	count := 0
	for _, report := range r.store.data.reports {
		if report.ReporterID == reporterID && report.IsPending() {
			count++
		}
	}
	return count, nil
}

type penaltyRepository struct {
	store *Store
}

func (r *penaltyRepository) Get(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error) {
	defer r.store.lock()()
	if state, ok := r.store.data.penalties[userID]; ok {
		return state.Clone(), nil
	}
	return entity.NewPenaltyState(userID), nil
}

func (r *penaltyRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error) {
	defer r.store.lock()()
	d := r.store.data
	state, ok := d.penalties[userID]
	if !ok {
		state = entity.NewPenaltyState(userID)
		d.penalties[userID] = state
	}
	return state.Clone(), nil
}

func (r *penaltyRepository) Save(ctx context.Context, state *entity.PenaltyState) error {
	defer r.store.lock()()
	r.store.data.penalties[state.UserID] = state.Clone()
	return nil
}

func (r *penaltyRepository) AppendEvent(ctx context.Context, event *entity.PenaltyEvent) error {
	defer r.store.lock()()
	ev := *event
	r.store.data.events = append(r.store.data.events, &ev)
	return nil
}

func (r *penaltyRepository) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PenaltyEvent, error) {
	defer r.store.lock()()
	events := r.store.data.events

	result := make([]*entity.PenaltyEvent, 0)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].UserID != userID {
			continue
		}
		ev := *events[i]
		result = append(result, &ev)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
