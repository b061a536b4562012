package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
)

// MemoryStore keeps everything in process. Each transaction runs alone under
// the store mutex against a copy of the state that replaces the original
// only when the transaction succeeds, so it is serializable and atomic.
type MemoryStore struct {
	*memQueries
	mu sync.Mutex
}

type memState struct {
	seats        []domain.Seat
	customers    map[int64]domain.Customer
	reservations map[int64]domain.Reservation
	segments     map[int64]domain.Segment
	meals        map[int64][]domain.MealOrder
	nextID       int64
}

func NewMemoryStore(seats []domain.Seat) *MemoryStore {
	s := &MemoryStore{}
	st := &memState{
		seats:        slices.Clone(seats),
		customers:    make(map[int64]domain.Customer),
		reservations: make(map[int64]domain.Reservation),
		segments:     make(map[int64]domain.Segment),
		meals:        make(map[int64][]domain.MealOrder),
	}
	s.memQueries = &memQueries{lock: &s.mu, state: func() *memState { return st }}
	s.memQueries.swap = func(next *memState) { st = next }
	return s
}

func (s *MemoryStore) Serializable(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, fn)
}

func (s *MemoryStore) Atomic(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, fn)
}

func (s *MemoryStore) run(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	work := s.memQueries.state().clone()
	tx := &memQueries{lock: noLock{}, state: func() *memState { return work }}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.memQueries.swap(work)
	return nil
}

// SetSeatActive flips the activity flag of a seat, for tests and seeding.
func (s *MemoryStore) SetSeatActive(seatNumber string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.memQueries.state()
	for i := range st.seats {
		if st.seats[i].SeatNumber == seatNumber {
			st.seats[i].Active = active
		}
	}
}

// Snapshot returns every stored segment, ordered by id.
func (s *MemoryStore) Snapshot() []domain.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.memQueries.state()
	out := make([]domain.Segment, 0, len(st.segments))
	for _, seg := range st.segments {
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *memState) clone() *memState {
	next := &memState{
		seats:        slices.Clone(st.seats),
		customers:    make(map[int64]domain.Customer, len(st.customers)),
		reservations: make(map[int64]domain.Reservation, len(st.reservations)),
		segments:     make(map[int64]domain.Segment, len(st.segments)),
		meals:        make(map[int64][]domain.MealOrder, len(st.meals)),
		nextID:       st.nextID,
	}
	for k, v := range st.customers {
		next.customers[k] = v
	}
	for k, v := range st.reservations {
		next.reservations[k] = v
	}
	for k, v := range st.segments {
		next.segments[k] = v
	}
	for k, v := range st.meals {
		next.meals[k] = slices.Clone(v)
	}
	return next
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// memQueries implements every repository over one memState. Outside a
// transaction each call takes the store mutex; inside one the mutex is
// already held.
type memQueries struct {
	lock  sync.Locker
	state func() *memState
	swap  func(*memState)
}

func (q *memQueries) Seats() SeatRepository               { return q }
func (q *memQueries) Segments() SegmentRepository         { return memSegments{q} }
func (q *memQueries) Reservations() ReservationRepository { return memReservations{q} }
func (q *memQueries) Customers() CustomerRepository       { return memCustomers{q} }

func (q *memQueries) List(ctx context.Context) ([]domain.Seat, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return slices.Clone(q.state().seats), nil
}

func (q *memQueries) FindActiveByNumbers(ctx context.Context, numbers []string) ([]domain.Seat, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	out := make([]domain.Seat, 0, len(numbers))
	for _, s := range q.state().seats {
		if s.Active && slices.Contains(numbers, s.SeatNumber) {
			out = append(out, s)
		}
	}
	return out, nil
}

type memSegments struct{ q *memQueries }

func (m memSegments) FindOverlapping(ctx context.Context, date time.Time, leg domain.Leg, seatIDs []int64) ([]domain.Segment, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	out := make([]domain.Segment, 0)
	for _, seg := range st.segments {
		if !seg.JourneyDate.Equal(date) || !seg.Leg.Overlaps(leg) {
			continue
		}
		if len(seatIDs) > 0 && !slices.Contains(seatIDs, seg.SeatID) {
			continue
		}
		if st.reservations[seg.ReservationID].Status != domain.ReservationStatusConfirmed {
			continue
		}
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeatID != out[j].SeatID {
			return out[i].SeatID < out[j].SeatID
		}
		return out[i].Leg.From < out[j].Leg.From
	})
	return out, nil
}

func (m memSegments) InsertMany(ctx context.Context, segments []domain.Segment) error {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	for i := range segments {
		seatNumber := ""
		for _, s := range st.seats {
			if s.ID == segments[i].SeatID {
				seatNumber = s.SeatNumber
			}
		}
		if seatNumber == "" {
			return fmt.Errorf("seat %d does not exist", segments[i].SeatID)
		}
		if _, ok := st.reservations[segments[i].ReservationID]; !ok {
			return fmt.Errorf("reservation %d does not exist", segments[i].ReservationID)
		}
		segments[i].ID = st.id()
		segments[i].SeatNumber = seatNumber
		st.segments[segments[i].ID] = segments[i]
	}
	return nil
}

func (m memSegments) DeleteByReservation(ctx context.Context, reservationID int64) (int64, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	var n int64
	for id, seg := range st.segments {
		if seg.ReservationID == reservationID {
			delete(st.segments, id)
			n++
		}
	}
	return n, nil
}

func (m memSegments) ListByReservation(ctx context.Context, reservationID int64) ([]domain.Segment, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	out := make([]domain.Segment, 0)
	for _, seg := range m.q.state().segments {
		if seg.ReservationID == reservationID {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memReservations struct{ q *memQueries }

func (m memReservations) Create(ctx context.Context, res *domain.Reservation) error {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	c, ok := st.customers[res.CustomerID]
	if !ok {
		return fmt.Errorf("customer %d does not exist", res.CustomerID)
	}
	res.ID = st.id()
	res.Email = c.Email
	res.Status = domain.ReservationStatusConfirmed
	res.CreatedAt = time.Now().UTC()
	stored := *res
	stored.Segments, stored.Meals = nil, nil
	st.reservations[res.ID] = stored
	return nil
}

func (m memReservations) AddMeals(ctx context.Context, reservationID int64, meals []domain.MealOrder) error {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	st.meals[reservationID] = append(st.meals[reservationID], meals...)
	return nil
}

func (m memReservations) ListMeals(ctx context.Context, reservationID int64) ([]domain.MealOrder, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	meals := slices.Clone(m.q.state().meals[reservationID])
	if meals == nil {
		meals = make([]domain.MealOrder, 0)
	}
	return meals, nil
}

func (m memReservations) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	res, ok := m.q.state().reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (m memReservations) MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Reservation, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	res, ok := st.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	res.Status = domain.ReservationStatusCancelled
	if res.CancelledAt == nil {
		res.CancelledAt = &at
	}
	st.reservations[id] = res
	return &res, nil
}

type memCustomers struct{ q *memQueries }

func (m memCustomers) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	for _, c := range m.q.state().customers {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memCustomers) Create(ctx context.Context, c *domain.Customer) error {
	m.q.lock.Lock()
	defer m.q.lock.Unlock()
	st := m.q.state()
	for _, existing := range st.customers {
		if existing.Email == c.Email {
			return ErrDuplicate
		}
	}
	c.ID = st.id()
	c.CreatedAt = time.Now().UTC()
	st.customers[c.ID] = *c
	return nil
}

var _ Store = (*MemoryStore)(nil)
