package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/retry"
)

type memRepo struct {
	mu    sync.Mutex
	store map[string]domain.ActivityRecord
	puts  int
}

func newMemRepo() *memRepo {
	return &memRepo{store: make(map[string]domain.ActivityRecord)}
}

func (m *memRepo) Get(_ context.Context, userID string) (*domain.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.VisitHistory = append([]domain.Visit(nil), rec.VisitHistory...)
	rec.Progress = domain.Progress{}.Merge(rec.Progress)
	return &rec, nil
}

func (m *memRepo) Put(_ context.Context, rec *domain.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.store[rec.UserID] = *rec
	return nil
}

func (m *memRepo) List(_ context.Context) ([]domain.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ActivityRecord, 0, len(m.store))
	for _, r := range m.store {
		out = append(out, r)
	}
	return out, nil
}

// flakyRepo fails the first n puts with a transient error.
type flakyRepo struct {
	*memRepo
	failures int
	attempts int
}

func (f *flakyRepo) Put(ctx context.Context, rec *domain.ActivityRecord) error {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return domain.Unavailable("put item", errors.New("ProvisionedThroughputExceeded"))
	}
	return f.memRepo.Put(ctx, rec)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, retry.Policy{Attempts: 3, Delay: time.Millisecond})
}

func TestSignInPageViewProgressScenario(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RecordSignIn(ctx, "u1", "a@b.com"))
	require.NoError(t, svc.RecordPageView(ctx, PageView{UserID: "u1", Email: "a@b.com", Page: "pitch"}))
	require.NoError(t, svc.MergeProgress(ctx, "u1", domain.Progress{domain.ProgressBusinessPitchViewed: domain.Flag(true)}))

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Email)
	require.Len(t, rec.VisitHistory, 1)
	assert.Equal(t, "pitch", rec.VisitHistory[0].Page)
	assert.Equal(t, domain.Progress{domain.ProgressBusinessPitchViewed: domain.Flag(true)}, rec.Progress)
	assert.NotNil(t, rec.LastSignIn)
}

func TestMergeProgress_IsMergeNotReplace(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSignIn(ctx, "u1", "a@b.com"))
	require.NoError(t, svc.MergeProgress(ctx, "u1", domain.Progress{"a": domain.Flag(true)}))
	require.NoError(t, svc.MergeProgress(ctx, "u1", domain.Progress{"b": domain.Flag(true)}))

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Progress{"a": domain.Flag(true), "b": domain.Flag(true)}, rec.Progress)
}

func TestMergeProgress_FalseNeverClearsMilestone(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSignIn(ctx, "u1", "a@b.com"))
	require.NoError(t, svc.MergeProgress(ctx, "u1", domain.Progress{domain.ProgressWebinarRegistered: domain.Flag(true)}))
	require.NoError(t, svc.MergeProgress(ctx, "u1", domain.Progress{domain.ProgressWebinarRegistered: domain.Flag(false)}))

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.Progress.Reached(domain.ProgressWebinarRegistered))
}

func TestMergeProgress_UnknownVisitorIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	err := svc.MergeProgress(context.Background(), "ghost", domain.Progress{"a": domain.Flag(true)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, repo.puts)
}

func TestRecordPageView_CreatesOnFirstWrite(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordPageView(ctx, PageView{UserID: "new", Email: "A@B.com", Page: "home"}))

	rec, err := svc.Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Email)
	assert.Len(t, rec.VisitHistory, 1)
	assert.Nil(t, rec.LastSignIn)
}

func TestRecordSignIn_CreatesWithEmptyHistory(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.RecordSignIn(ctx, "new", "a@b.com"))

	rec, err := svc.Get(ctx, "new")
	require.NoError(t, err)
	assert.Empty(t, rec.VisitHistory)
	require.NotNil(t, rec.LastSignIn)
	assert.Equal(t, *rec.LastSignIn, rec.LastActive)
}

func TestRecordPageView_HistoryNeverShrinks(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	prev := 0
	pages := []string{"home", "pitch", "portfolio", "pitch", "deal-room"}
	for _, p := range pages {
		require.NoError(t, svc.RecordPageView(ctx, PageView{UserID: "u1", Email: "a@b.com", Page: p}))
		rec, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(rec.VisitHistory), prev)
		prev = len(rec.VisitHistory)
	}
	assert.Equal(t, len(pages), prev)
}

func TestRecordPageView_KeepsScheduledDate(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	when := time.Date(2026, 11, 2, 14, 30, 0, 0, time.FixedZone("AEDT", 11*3600))
	require.NoError(t, svc.RecordPageView(ctx, PageView{UserID: "u1", Email: "a@b.com", Page: "schedule-call", ScheduledDate: &when}))

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec.VisitHistory[0].ScheduledDate)
	assert.True(t, when.Equal(*rec.VisitHistory[0].ScheduledDate))
}

func TestWrites_ValidateBeforeIO(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	assert.True(t, domain.IsValidation(svc.RecordPageView(ctx, PageView{Email: "a@b.com", Page: "home"})))
	assert.True(t, domain.IsValidation(svc.RecordPageView(ctx, PageView{UserID: "u1", Email: "a@b.com"})))
	assert.True(t, domain.IsValidation(svc.RecordPageView(ctx, PageView{UserID: "u1", Page: "home"})))
	assert.True(t, domain.IsValidation(svc.RecordSignIn(ctx, "u1", "")))
	assert.True(t, domain.IsValidation(svc.MergeProgress(ctx, "", domain.Progress{})))
	assert.True(t, domain.IsValidation(svc.MergeProgress(ctx, "u1", nil)))
	assert.Zero(t, repo.puts)
}

func TestWrites_RetryTransientFailures(t *testing.T) {
	repo := &flakyRepo{memRepo: newMemRepo(), failures: 2}
	svc := newTestService(repo)

	require.NoError(t, svc.RecordPageView(context.Background(), PageView{UserID: "u1", Email: "a@b.com", Page: "home"}))
	assert.Equal(t, 3, repo.attempts)

	rec, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, rec.VisitHistory, 1, "a retried write must not append twice")
}

func TestWrites_SurfaceUnavailableAfterBound(t *testing.T) {
	repo := &flakyRepo{memRepo: newMemRepo(), failures: 10}
	svc := newTestService(repo)

	err := svc.RecordSignIn(context.Background(), "u1", "a@b.com")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, repo.attempts)
}

func TestList_MostRecentFirst(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		require.NoError(t, svc.RecordSignIn(ctx, id, id+"@b.com"))
	}

	recs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].UserID)
}
