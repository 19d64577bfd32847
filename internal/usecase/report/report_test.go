package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/memory"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
)

type fakeResolver struct {
	mu      sync.Mutex
	targets map[uuid.UUID]repository.TargetInfo
	users   map[uuid.UUID]repository.UserInfo
	failing map[uuid.UUID]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		targets: make(map[uuid.UUID]repository.TargetInfo),
		users:   make(map[uuid.UUID]repository.UserInfo),
		failing: make(map[uuid.UUID]error),
	}
}

func (f *fakeResolver) addTarget(id uuid.UUID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[id] = repository.TargetInfo{DisplayName: name, URL: "/posts/" + id.String()}
}

func (f *fakeResolver) addUser(id uuid.UUID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = repository.UserInfo{ID: id, DisplayName: name}
	f.targets[id] = repository.TargetInfo{DisplayName: name, URL: "/users/" + id.String()}
}

func (f *fakeResolver) Resolve(ctx context.Context, reportType valueobject.ReportType, targetID uuid.UUID) (repository.TargetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[targetID]; ok {
		return repository.TargetInfo{}, err
	}
	if t, ok := f.targets[targetID]; ok {
		return t, nil
	}
	return repository.TargetInfo{}, repository.ErrTargetDeleted
}

func (f *fakeResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (repository.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return repository.UserInfo{}, repository.ErrTargetDeleted
}

type fixture struct {
	store    *memory.Store
	resolver *fakeResolver
	guard    *report.EligibilityGuard
	submit   *report.SubmitReportUseCase
	list     *report.ListReportsUseCase
}

func newFixture() *fixture {
	store := memory.NewStore()
	resolver := newFakeResolver()
	guard := report.NewEligibilityGuard(store, entity.DefaultPenaltyPolicy())
	return &fixture{
		store:    store,
		resolver: resolver,
		guard:    guard,
		submit:   report.NewSubmitReportUseCase(store, guard, resolver),
		list:     report.NewListReportsUseCase(store, resolver),
	}
}

func (f *fixture) postReport(reporterID, postID uuid.UUID) report.SubmitReportInput {
	return report.SubmitReportInput{
		ReporterID: reporterID,
		ReportType: "post",
		Target:     entity.TargetRef{PostID: &postID},
		Reason:     "spam",
	}
}

func (f *fixture) newPost() uuid.UUID {
	id := uuid.New()
	f.resolver.addTarget(id, "Пост "+id.String()[:8])
	return id
}

func TestSubmitReport_Success(t *testing.T) {
	f := newFixture()
	reporter := uuid.New()
	post := f.newPost()

	r, err := f.submit.Execute(context.Background(), f.postReport(reporter, post))
	require.NoError(t, err)

	assert.Equal(t, valueobject.ReportStatusPending, r.Status)
	assert.False(t, r.IsFalseReport)
	assert.Equal(t, post, r.TargetID())

	stored, err := f.store.Reports().FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestSubmitReport_ValidationErrors(t *testing.T) {
	f := newFixture()
	reporter := uuid.New()
	post := f.newPost()

	input := f.postReport(reporter, post)
	input.Reason = "boring"
	_, err := f.submit.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	input = f.postReport(reporter, post)
	input.Target.UserID = &reporter
	_, err = f.submit.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	count, err := f.store.Reports().CountPendingByReporter(context.Background(), reporter)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitReport_DeletedTarget(t *testing.T) {
	f := newFixture()

	_, err := f.submit.Execute(context.Background(), f.postReport(uuid.New(), uuid.New()))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmitReport_ResolverOutageDoesNotBlock(t *testing.T) {
	f := newFixture()
	post := uuid.New()
	f.resolver.failing[post] = errors.New("connection refused")

	_, err := f.submit.Execute(context.Background(), f.postReport(uuid.New(), post))
	assert.NoError(t, err)
}

func TestSubmitReport_PendingCap(t *testing.T) {
	f := newFixture()
	reporter := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := f.submit.Execute(context.Background(), f.postReport(reporter, f.newPost()))
		require.NoError(t, err)
	}

	_, err := f.submit.Execute(context.Background(), f.postReport(reporter, f.newPost()))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeRateLimited, appErr.Code)
	assert.Equal(t, string(valueobject.DenialPendingCap), appErr.ReasonCode)
}

func TestSubmitReport_ConcurrentSubmitsRespectCap(t *testing.T) {
	f := newFixture()
	reporter := uuid.New()

	posts := make([]uuid.UUID, 10)
	for i := range posts {
		posts[i] = f.newPost()
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		capped    int
	)
	for _, post := range posts {
		wg.Add(1)
		go func(post uuid.UUID) {
			defer wg.Done()
			_, err := f.submit.Execute(context.Background(), f.postReport(reporter, post))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if apperror.ReasonCodeOf(err) == string(valueobject.DenialPendingCap) {
				capped++
			}
		}(post)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, capped)

	status, err := f.guard.GetStatus(context.Background(), reporter, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, status.PendingReportsCount)
	assert.False(t, status.CanReport)
	assert.Equal(t, valueobject.DenialPendingCap, status.ReasonCode)
}

func TestEligibility_BanOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.guard.SetClock(func() time.Time { return now })

	user := uuid.New()
	until := now.Add(time.Hour)
	require.NoError(t, f.store.Penalties().Save(ctx, &entity.PenaltyState{
		UserID:              user,
		WarningCount:        5,
		BanUntil:            &until,
		IsPermanentlyBanned: true,
	}))

	e, err := f.guard.CanReport(ctx, user)
	require.NoError(t, err)
	assert.False(t, e.Allowed)
	assert.Equal(t, valueobject.DenialPermanentBan, e.ReasonCode)

	err = e.Err()
	assert.Equal(t, string(valueobject.DenialPermanentBan), apperror.ReasonCodeOf(err))

	require.NoError(t, f.store.Penalties().Save(ctx, &entity.PenaltyState{
		UserID:       user,
		WarningCount: 3,
		BanUntil:     &until,
	}))
	e, err = f.guard.CanReport(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DenialTempBan, e.ReasonCode)
}

func TestEligibility_ExpiredBanRecomputed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.guard.SetClock(func() time.Time { return now })

	user := uuid.New()
	past := now.Add(-time.Second)
	require.NoError(t, f.store.Penalties().Save(ctx, &entity.PenaltyState{
		UserID:       user,
		WarningCount: 3,
		BanUntil:     &past,
	}))

	status, err := f.guard.GetStatus(ctx, user, 10)
	require.NoError(t, err)
	assert.False(t, status.IsBanned)
	assert.True(t, status.CanReport)
	assert.Equal(t, 3, status.WarningCount)
	require.NotNil(t, status.BanUntil)
	assert.True(t, status.BanUntil.Equal(past))
}

func TestGetStatus_NewUser(t *testing.T) {
	f := newFixture()

	status, err := f.guard.GetStatus(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Zero(t, status.WarningCount)
	assert.Nil(t, status.BanUntil)
	assert.False(t, status.IsBanned)
	assert.True(t, status.CanReport)
	assert.Empty(t, status.RecentReports)
}

func TestGetStatus_RecentReportsLimited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	reporter := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		post := uuid.New()
		r, err := entity.NewReport(reporter, "post", entity.TargetRef{PostID: &post}, "spam", nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		r.Status = valueobject.ReportStatusDismissed
		require.NoError(t, f.store.Reports().Create(ctx, r))
	}

	status, err := f.guard.GetStatus(ctx, reporter, 10)
	require.NoError(t, err)
	require.Len(t, status.RecentReports, 10)
	assert.True(t, status.RecentReports[0].CreatedAt.After(status.RecentReports[9].CreatedAt))
	assert.Zero(t, status.PendingReportsCount)
}

func TestListReports_EnrichesAndFilters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	alice := uuid.New()
	f.resolver.addUser(alice, "alice")
	bob := uuid.New()
	f.resolver.addUser(bob, "bob")

	post := f.newPost()
	_, err := f.submit.Execute(ctx, f.postReport(alice, post))
	require.NoError(t, err)

	_, err = f.submit.Execute(ctx, report.SubmitReportInput{
		ReporterID: alice,
		ReportType: "user",
		Target:     entity.TargetRef{UserID: &bob},
		Reason:     "harassment",
	})
	require.NoError(t, err)

	all, err := f.list.Execute(ctx, report.ListReportsInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, "alice", r.Reporter.DisplayName)
		assert.False(t, r.Target.Deleted)
	}

	users, err := f.list.Execute(ctx, report.ListReportsInput{ReportType: "user", Status: "pending"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Target.DisplayName)
	assert.Equal(t, "/users/"+bob.String(), users[0].Target.URL)

	_, err = f.list.Execute(ctx, report.ListReportsInput{Status: "archived"})
	assert.True(t, apperror.IsValidation(err))
}

func TestListReports_DeletedTargetDegradesToSentinel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	reporter := uuid.New()

	deleted := f.newPost()
	created, err := f.submit.Execute(ctx, f.postReport(reporter, deleted))
	require.NoError(t, err)

	broken := f.newPost()
	_, err = f.submit.Execute(ctx, f.postReport(reporter, broken))
	require.NoError(t, err)

	alive := f.newPost()
	_, err = f.submit.Execute(ctx, f.postReport(reporter, alive))
	require.NoError(t, err)

	f.resolver.mu.Lock()
	delete(f.resolver.targets, deleted)
	f.resolver.failing[broken] = errors.New("timeout")
	f.resolver.mu.Unlock()

	list, err := f.list.Execute(ctx, report.ListReportsInput{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	byTarget := make(map[uuid.UUID]report.EnrichedReport)
	for _, r := range list {
		byTarget[r.Report.TargetID()] = r
	}
	assert.Equal(t, report.DeletedSentinel, byTarget[deleted].Target.DisplayName)
	assert.True(t, byTarget[deleted].Target.Deleted)
	assert.Equal(t, report.DeletedSentinel, byTarget[broken].Target.DisplayName)
	assert.False(t, byTarget[alive].Target.Deleted)

	detail, err := f.list.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, detail.Target.Deleted)
	assert.Equal(t, reporter, detail.Reporter.ID)
}

func TestListReports_GetNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.list.Get(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}
