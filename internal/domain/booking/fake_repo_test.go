package booking

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/domain/quote"
	"github.com/veroa/veroa-api/internal/domain/user"
)

// memRepo serializes transactions with a mutex, the way the sequence row
// lock does in Postgres, and restores a snapshot when fn fails.
type memRepo struct {
	mu       sync.Mutex
	seq      int64
	bookings map[uuid.UUID]*Booking
	quotes   map[uuid.UUID]*quote.Quote

	failInsert   error
	failFlip     error
	legacyLastID string
}

func newMemRepo() *memRepo {
	return &memRepo{
		bookings: make(map[uuid.UUID]*Booking),
		quotes:   make(map[uuid.UUID]*quote.Quote),
	}
}

func (r *memRepo) addQuote(clientID uuid.UUID) *quote.Quote {
	q := &quote.Quote{ID: uuid.New(), ClientID: clientID, Budget: 1000, Status: quote.StatusYourQuotes}
	r.quotes[q.ID] = q
	return q
}

func (r *memRepo) quoteStatus(id uuid.UUID) quote.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotes[id].Status
}

func (r *memRepo) WithinTx(ctx context.Context, fn func(tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq
	bookings := make(map[uuid.UUID]*Booking, len(r.bookings))
	for k, v := range r.bookings {
		bookings[k] = v
	}
	statuses := make(map[uuid.UUID]quote.Status, len(r.quotes))
	for k, v := range r.quotes {
		statuses[k] = v.Status
	}

	if err := fn(&memTx{r: r}); err != nil {
		r.seq = seq
		r.bookings = bookings
		for k, s := range statuses {
			r.quotes[k].Status = s
		}
		return err
	}
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, filter ListFilter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if filter.ClientID != nil && b.ClientID != *filter.ClientID {
			continue
		}
		if filter.PhotographerID != nil && !b.IsAssignedTo(*filter.PhotographerID) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VeroaBookingID < out[j].VeroaBookingID })
	return out, len(out), nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r *memRepo) UpdateResponse(ctx context.Context, id, photographerID uuid.UUID, response ResponseStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || !b.IsAssignedTo(photographerID) || b.BookingStatus != ResponsePending {
		return false, nil
	}
	b.BookingStatus = response
	return true, nil
}

func (r *memRepo) AssignPhotographer(ctx context.Context, id, photographerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	b.PhotographerID = uuid.NullUUID{UUID: photographerID, Valid: true}
	b.BookingStatus = ResponsePending
	return true, nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookings, id)
	return nil
}

func (r *memRepo) LatestBookingID(ctx context.Context) (string, error) {
	return r.legacyLastID, nil
}

func (r *memRepo) RaiseSequence(ctx context.Context, atLeast int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if atLeast > r.seq {
		r.seq = atLeast
	}
	return nil
}

func (r *memRepo) UnflippedQuoteIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, b := range r.bookings {
		if b.Source != SourceQuote || !b.QuoteID.Valid {
			continue
		}
		if q, ok := r.quotes[b.QuoteID.UUID]; ok && q.Status == quote.StatusYourQuotes {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (r *memRepo) MarkQuoteBooked(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[quoteID]
	if !ok || q.Status != quote.StatusYourQuotes {
		return false, nil
	}
	q.Status = quote.StatusUpcomingBookings
	return true, nil
}

// memTx runs with memRepo.mu already held
type memTx struct {
	r *memRepo
}

func (t *memTx) NextSequence(ctx context.Context) (int64, error) {
	t.r.seq++
	return t.r.seq, nil
}

func (t *memTx) LockQuote(ctx context.Context, quoteID, clientID uuid.UUID) (*QuoteSnapshot, error) {
	q, ok := t.r.quotes[quoteID]
	if !ok || q.ClientID != clientID {
		return nil, nil
	}
	return &QuoteSnapshot{
		ID:        q.ID,
		ClientID:  q.ClientID,
		ServiceID: q.ServiceID,
		EventDate: q.EventDate,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Status:    string(q.Status),
	}, nil
}

func (t *memTx) HasBookingForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	for _, b := range t.r.bookings {
		if b.QuoteID.Valid && b.QuoteID.UUID == quoteID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Insert(ctx context.Context, b *Booking) error {
	if t.r.failInsert != nil {
		return t.r.failInsert
	}
	cp := *b
	t.r.bookings[b.ID] = &cp
	return nil
}

func (t *memTx) SetQuoteBooked(ctx context.Context, quoteID uuid.UUID) error {
	if t.r.failFlip != nil {
		return t.r.failFlip
	}
	q, ok := t.r.quotes[quoteID]
	if !ok {
		return errors.New("quote vanished")
	}
	q.Status = quote.StatusUpcomingBookings
	return nil
}

type memUserRepo struct {
	users map[uuid.UUID]*user.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) ListIDsByRole(ctx context.Context, role user.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, u := range r.users {
		if u.Role == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// memQuoteRepo exposes memRepo's quotes through quote.Repository so the
// negotiation and conversion flows share one store.
type memQuoteRepo struct {
	r *memRepo
}

func (m *memQuoteRepo) Create(ctx context.Context, q *quote.Quote) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	cp := *q
	m.r.quotes[q.ID] = &cp
	return nil
}

func (m *memQuoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.quotes[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (m *memQuoteRepo) List(ctx context.Context, filter quote.ListFilter) ([]*quote.Quote, int, error) {
	return nil, 0, nil
}

func (m *memQuoteRepo) UpdateBudget(ctx context.Context, q *quote.Quote) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	stored, ok := m.r.quotes[q.ID]
	if !ok || stored.Version != q.Version {
		return false, nil
	}
	stored.CurrentBudget = q.CurrentBudget
	stored.PreviousBudget = q.PreviousBudget
	stored.Version++
	return true, nil
}

func (m *memQuoteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status quote.Status) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.quotes[id]
	if !ok {
		return false, nil
	}
	q.Status = status
	return true, nil
}

func (m *memQuoteRepo) SetFinal(ctx context.Context, id uuid.UUID, final bool) (bool, error) {
	return false, nil
}

func (m *memQuoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}
