package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/service/access"
	"github.com/equihome/launchpad/internal/service/activity"
	"github.com/equihome/launchpad/internal/service/newsletter"
)

var (
	_ access.Repository     = (*AccessRepo)(nil)
	_ activity.Repository   = (*ActivityRepo)(nil)
	_ newsletter.Repository = (*NewsletterRepo)(nil)
)

func TestAccessRepo_OnePerPair(t *testing.T) {
	repo := NewAccessRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.AccessRequest{ID: "1", Email: "a@b.com", RequestType: domain.RequestDealRoom}))
	err := repo.Create(ctx, &domain.AccessRequest{ID: "2", Email: "a@b.com", RequestType: domain.RequestDealRoom})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repo.FindByEmailAndType(ctx, "a@b.com", domain.RequestDealRoom)
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = repo.FindByEmailAndType(ctx, "a@b.com", domain.RequestTechDemo)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccessRepo_ReturnsCopies(t *testing.T) {
	repo := NewAccessRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	req := &domain.AccessRequest{ID: "1", Email: "a@b.com", RequestType: domain.RequestDealRoom}
	req.Approve("admin", now)
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	got.ClearApproval()

	again, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.NotNil(t, again.ApprovedAt)
	assert.Equal(t, "admin", again.ApprovedBy)
}

func TestAccessRepo_UpdateUnknown(t *testing.T) {
	err := NewAccessRepo().Update(context.Background(), &domain.AccessRequest{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActivityRepo_IsolatesProgress(t *testing.T) {
	repo := NewActivityRepo()
	ctx := context.Background()

	rec := domain.NewActivityRecord("u1", time.Now().UTC())
	rec.Progress["a"] = domain.Flag(true)
	require.NoError(t, repo.Put(ctx, rec))

	rec.Progress["b"] = domain.Flag(true)
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Progress, 1)

	_, err = repo.Get(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewsletterRepo_CreateOnce(t *testing.T) {
	repo := NewNewsletterRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.NewsletterSubscriber{Email: "a@b.com"}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.NewsletterSubscriber{Email: "a@b.com"}), domain.ErrConflict)

	subs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
