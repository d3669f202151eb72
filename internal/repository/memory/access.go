package memory

import (
	"context"
	"sync"

	"github.com/equihome/launchpad/internal/domain"
)

// AccessRepo implements access.Repository in memory.
type AccessRepo struct {
	mu    sync.RWMutex
	byID  map[string]domain.AccessRequest
	index map[pairKey]string
}

type pairKey struct {
	email string
	rt    domain.RequestType
}

// NewAccessRepo creates an empty in-memory access repository.
func NewAccessRepo() *AccessRepo {
	return &AccessRepo{
		byID:  make(map[string]domain.AccessRequest),
		index: make(map[pairKey]string),
	}
}

func (r *AccessRepo) Get(_ context.Context, id string) (*domain.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccess(req), nil
}

func (r *AccessRepo) FindByEmailAndType(_ context.Context, email string, rt domain.RequestType) (*domain.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.index[pairKey{email, rt}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccess(r.byID[id]), nil
}

func (r *AccessRepo) Create(_ context.Context, req *domain.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey{req.Email, req.RequestType}
	if _, ok := r.index[k]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byID[req.ID]; ok {
		return domain.ErrConflict
	}
	r.byID[req.ID] = *copyAccess(*req)
	r.index[k] = req.ID
	return nil
}

func (r *AccessRepo) Update(_ context.Context, req *domain.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[req.ID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[req.ID] = *copyAccess(*req)
	return nil
}

func (r *AccessRepo) List(_ context.Context) ([]domain.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AccessRequest, 0, len(r.byID))
	for _, req := range r.byID {
		out = append(out, *copyAccess(req))
	}
	return out, nil
}

// Ping always succeeds.
func (r *AccessRepo) Ping(context.Context) error { return nil }

func copyAccess(req domain.AccessRequest) *domain.AccessRequest {
	if req.ApprovedAt != nil {
		at := *req.ApprovedAt
		req.ApprovedAt = &at
	}
	return &req
}
