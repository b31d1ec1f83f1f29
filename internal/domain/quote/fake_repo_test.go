package quote

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository with version-checked budget writes
type memRepo struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]*Quote

	// conflicts makes the next N UpdateBudget calls lose the version race
	conflicts int
}

func newMemRepo() *memRepo {
	return &memRepo{quotes: make(map[uuid.UUID]*Quote)}
}

func (r *memRepo) Create(ctx context.Context, q *Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	r.quotes[q.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, filter ListFilter) ([]*Quote, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Quote
	for _, q := range r.quotes {
		if filter.ClientID != nil && q.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != "" && string(q.Status) != filter.Status {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) UpdateBudget(ctx context.Context, q *Quote) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.quotes[q.ID]
	if !ok {
		return false, nil
	}
	if r.conflicts > 0 {
		r.conflicts--
		stored.Version++
		return false, nil
	}
	if stored.Version != q.Version {
		return false, nil
	}
	stored.CurrentBudget = q.CurrentBudget
	stored.PreviousBudget = q.PreviousBudget
	stored.Version++
	return true, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return false, nil
	}
	q.Status = status
	q.Version++
	return true, nil
}

func (r *memRepo) SetFinal(ctx context.Context, id uuid.UUID, final bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return false, nil
	}
	q.IsFinal = final
	return true, nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.quotes, id)
	return nil
}
