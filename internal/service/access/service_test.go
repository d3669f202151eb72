package access

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/retry"
)

// memRepo is an in-memory repository for testing.
type memRepo struct {
	mu    sync.Mutex
	store map[string]domain.AccessRequest
	calls int
}

func newMemRepo() *memRepo {
	return &memRepo{store: make(map[string]domain.AccessRequest)}
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) FindByEmailAndType(_ context.Context, email string, rt domain.RequestType) (*domain.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, r := range m.store {
		if r.Email == email && r.RequestType == rt {
			r := r
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) Create(_ context.Context, r *domain.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.store[r.ID]; ok {
		return domain.ErrConflict
	}
	m.store[r.ID] = *r
	return nil
}

func (m *memRepo) Update(_ context.Context, r *domain.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.store[r.ID]; !ok {
		return domain.ErrNotFound
	}
	m.store[r.ID] = *r
	return nil
}

func (m *memRepo) List(_ context.Context) ([]domain.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]domain.AccessRequest, 0, len(m.store))
	for _, r := range m.store {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// downRepo simulates an unreachable store.
type downRepo struct{}

func (downRepo) Get(context.Context, string) (*domain.AccessRequest, error) {
	return nil, domain.Unavailable("get", errors.New("connection refused"))
}
func (downRepo) FindByEmailAndType(context.Context, string, domain.RequestType) (*domain.AccessRequest, error) {
	return nil, domain.Unavailable("query", errors.New("connection refused"))
}
func (downRepo) Create(context.Context, *domain.AccessRequest) error {
	return domain.Unavailable("put", errors.New("connection refused"))
}
func (downRepo) Update(context.Context, *domain.AccessRequest) error {
	return domain.Unavailable("put", errors.New("connection refused"))
}
func (downRepo) List(context.Context) ([]domain.AccessRequest, error) {
	return nil, domain.Unavailable("scan", errors.New("connection refused"))
}

// flakyRepo fails the first n writes with a transient error.
type flakyRepo struct {
	*memRepo
	failures int
}

func (f *flakyRepo) Create(ctx context.Context, r *domain.AccessRequest) error {
	if f.failures > 0 {
		f.failures--
		return domain.Unavailable("put", errors.New("throttled"))
	}
	return f.memRepo.Create(ctx, r)
}

type recorder struct {
	mu        sync.Mutex
	requested []domain.AccessRequest
	approved  []domain.AccessRequest
	denied    []domain.AccessRequest
	events    []domain.LeadEvent
}

func (r *recorder) AccessRequested(a domain.AccessRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requested = append(r.requested, a)
}

func (r *recorder) AccessApproved(a domain.AccessRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved = append(r.approved, a)
}

func (r *recorder) AccessDenied(a domain.AccessRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied = append(r.denied, a)
}

func (r *recorder) Publish(e domain.LeadEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

var fastRetry = retry.Policy{Attempts: 3, Delay: time.Millisecond}

func newTestService(t *testing.T, repo Repository, grants ...Grant) (*Service, *recorder) {
	t.Helper()
	allow, err := NewAllowlist(grants)
	require.NoError(t, err)
	rec := &recorder{}
	svc := NewService(repo, allow, rec, rec, Config{DefaultApprover: "ops@equihome.com.au", Retry: fastRetry})
	return svc, rec
}

func TestCheckAccess_AllowlistSurvivesUnreachableStore(t *testing.T) {
	grants := []Grant{
		{Email: "Partner@Fund.com", Resources: []domain.RequestType{domain.RequestDealRoom}},
		{Email: "founder@equihome.com.au"},
	}
	svc, _ := newTestService(t, downRepo{}, grants...)
	ctx := context.Background()

	for _, email := range []string{"partner@fund.com", " PARTNER@fund.com ", "founder@equihome.com.au"} {
		d, err := svc.CheckAccess(ctx, email, "dealRoom")
		require.NoError(t, err)
		assert.True(t, d.HasAccess, email)
		assert.True(t, d.Hardcoded, email)
		assert.NotNil(t, d.Since)
	}
}

func TestCheckAccess_StoreFailureIsDegradedNotGranted(t *testing.T) {
	svc, _ := newTestService(t, downRepo{},
		Grant{Email: "partner@fund.com", Resources: []domain.RequestType{domain.RequestDealRoom}})

	d, err := svc.CheckAccess(context.Background(), "partner@fund.com", "techDemo")
	require.NoError(t, err)
	assert.False(t, d.HasAccess)
	assert.True(t, d.Degraded)
}

func TestCheckAccess_ValidatesQuery(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.CheckAccess(ctx, "", "dealRoom")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.CheckAccess(ctx, "a@b.com", "")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.CheckAccess(ctx, "a@b.com", "vault")
	assert.True(t, domain.IsValidation(err))

	assert.Zero(t, repo.calls, "validation must happen before I/O")
}

func TestRequestAccess_IsIdempotentPerPair(t *testing.T) {
	repo := newMemRepo()
	svc, rec := newTestService(t, repo)
	ctx := context.Background()

	first, outcome, err := svc.RequestAccess(ctx, RequestInput{Email: "Inv@Example.com", Name: "Ivy", RequestType: "dealRoom"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "inv@example.com", first.Email)
	assert.Equal(t, domain.StatusPending, first.Status)

	second, outcome, err := svc.RequestAccess(ctx, RequestInput{Email: "inv@example.com ", Name: "Ivy Chen", RequestType: "dealRoom"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ivy Chen", second.Name)

	assert.Equal(t, 1, repo.count())
	assert.Len(t, rec.requested, 1, "refresh must not re-notify")
}

func TestRequestAccess_SeparatePairsPerType(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	for _, rt := range []string{"dealRoom", "portfolioOS", "techDemo"} {
		_, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: rt})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.count())
}

func TestRequestAccess_NotifiesAndPublishesOnCreate(t *testing.T) {
	svc, rec := newTestService(t, newMemRepo())

	req, _, err := svc.RequestAccess(context.Background(), RequestInput{Email: "a@b.com", Name: "A", RequestType: "techDemo"})
	require.NoError(t, err)

	require.Len(t, rec.requested, 1)
	assert.Equal(t, req.ID, rec.requested[0].ID)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.EventAccessRequested, rec.events[0].Type)
	assert.Equal(t, req.ID, rec.events[0].RequestID)
}

func TestRequestAccess_ReopensDenied(t *testing.T) {
	repo := newMemRepo()
	svc, rec := newTestService(t, repo)
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, req.ID, "denied", "admin@equihome.com.au")
	require.NoError(t, err)

	again, outcome, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReopened, outcome)
	assert.Equal(t, req.ID, again.ID)
	assert.Equal(t, domain.StatusPending, again.Status)
	assert.Equal(t, 1, repo.count())
	assert.Len(t, rec.requested, 2)
}

func TestRequestAccess_ApprovedIsUnchanged(t *testing.T) {
	repo := newMemRepo()
	svc, rec := newTestService(t, repo)
	ctx := context.Background()

	granted, err := svc.GrantManually(ctx, GrantInput{Email: "a@b.com", RequestType: "portfolioOS"})
	require.NoError(t, err)

	got, outcome, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", Name: "Other", RequestType: "portfolioOS"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyApproved, outcome)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, granted.ApprovedAt, got.ApprovedAt)
	assert.Empty(t, rec.requested)
}

func TestRequestAccess_ValidatesBeforeIO(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	cases := []RequestInput{
		{Email: "", RequestType: "dealRoom"},
		{Email: "not-an-email", RequestType: "dealRoom"},
		{Email: "a@b.com", RequestType: ""},
		{Email: "a@b.com", RequestType: "boardroom"},
	}
	for _, in := range cases {
		_, _, err := svc.RequestAccess(ctx, in)
		assert.True(t, domain.IsValidation(err), fmt.Sprintf("%+v", in))
	}
	assert.Zero(t, repo.calls)
}

func TestRequestAccess_RetriesTransientWrites(t *testing.T) {
	repo := &flakyRepo{memRepo: newMemRepo(), failures: 2}
	svc, _ := newTestService(t, repo)

	_, _, err := svc.RequestAccess(context.Background(), RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())
}

func TestRequestAccess_UnavailableAfterRetries(t *testing.T) {
	svc, rec := newTestService(t, downRepo{})

	_, _, err := svc.RequestAccess(context.Background(), RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Empty(t, rec.requested)
}

func TestSetStatus_ApproveThenCheckReturnsStamp(t *testing.T) {
	svc, rec := newTestService(t, newMemRepo())
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)

	approved, err := svc.SetStatus(ctx, req.ID, "approved", "admin@x")
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "admin@x", approved.ApprovedBy)

	d, err := svc.CheckAccess(ctx, "a@b.com", "dealRoom")
	require.NoError(t, err)
	assert.True(t, d.HasAccess)
	assert.False(t, d.Hardcoded)
	require.NotNil(t, d.Since)
	assert.True(t, approved.ApprovedAt.Equal(*d.Since))

	assert.Len(t, rec.approved, 1)
}

func TestSetStatus_DefaultApprover(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo())
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)

	approved, err := svc.SetStatus(ctx, req.ID, "approved", "")
	require.NoError(t, err)
	assert.Equal(t, "ops@equihome.com.au", approved.ApprovedBy)
}

func TestSetStatus_PendingClearsStampsWithoutEmail(t *testing.T) {
	svc, rec := newTestService(t, newMemRepo())
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, req.ID, "approved", "admin")
	require.NoError(t, err)

	back, err := svc.SetStatus(ctx, req.ID, "pending", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, back.Status)
	assert.Nil(t, back.ApprovedAt)
	assert.Empty(t, back.ApprovedBy)
	assert.Len(t, rec.approved, 1)
	assert.Empty(t, rec.denied)
}

func TestSetStatus_Errors(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo())
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, "missing", "approved", "admin")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.SetStatus(ctx, "missing", "archived", "admin")
	assert.True(t, domain.IsValidation(err))
}

func TestRevoke_InverseOfGrant(t *testing.T) {
	svc, rec := newTestService(t, newMemRepo())
	ctx := context.Background()

	_, err := svc.GrantManually(ctx, GrantInput{Email: "a@b.com", Name: "A", RequestType: "techDemo", Approver: "admin"})
	require.NoError(t, err)

	d, err := svc.CheckAccess(ctx, "a@b.com", "techDemo")
	require.NoError(t, err)
	assert.True(t, d.HasAccess)

	revoked, err := svc.Revoke(ctx, "a@b.com", "techDemo", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDenied, revoked.Status)
	assert.Nil(t, revoked.ApprovedAt)
	assert.Empty(t, revoked.ApprovedBy)

	d, err = svc.CheckAccess(ctx, "a@b.com", "techDemo")
	require.NoError(t, err)
	assert.False(t, d.HasAccess)

	assert.Len(t, rec.approved, 1)
	assert.Empty(t, rec.denied, "revoke sends no email")
	assert.Equal(t, domain.EventAccessRevoked, rec.events[len(rec.events)-1].Type)
}

func TestRevoke_UnknownPairIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo())

	_, err := svc.Revoke(context.Background(), "nobody@b.com", "dealRoom", "admin")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantManually_UpgradesExistingRecord(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "a@b.com", RequestType: "dealRoom"})
	require.NoError(t, err)

	granted, err := svc.GrantManually(ctx, GrantInput{Email: "A@B.com", RequestType: "dealRoom"})
	require.NoError(t, err)
	assert.Equal(t, req.ID, granted.ID)
	assert.Equal(t, domain.StatusApproved, granted.Status)
	assert.Equal(t, 1, repo.count())
}

func TestDenyScenario(t *testing.T) {
	svc, rec := newTestService(t, newMemRepo())
	ctx := context.Background()

	req, _, err := svc.RequestAccess(ctx, RequestInput{Email: "x@y.com", Name: "X", RequestType: "techDemo"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, req.ID, "denied", "admin")
	require.NoError(t, err)

	d, err := svc.CheckAccess(ctx, "x@y.com", "techDemo")
	require.NoError(t, err)
	assert.False(t, d.HasAccess)
	assert.Len(t, rec.denied, 1)
}

func TestListAll_NewestFirst(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, email := range []string{"old@b.com", "mid@b.com", "new@b.com"} {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		_, _, err := svc.RequestAccess(ctx, RequestInput{Email: email, RequestType: "dealRoom"})
		require.NoError(t, err)
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new@b.com", all[0].Email)
	assert.Equal(t, "old@b.com", all[2].Email)

	pending, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)
}
