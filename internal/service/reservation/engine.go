package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/logger"
	"github.com/Domenick1991/busbooking/internal/notification"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/risk"
	"github.com/Domenick1991/busbooking/internal/service/customers"
	"github.com/Domenick1991/busbooking/internal/service/seats"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UseCase interface {
	CheckAvailability(ctx context.Context, journeyDate time.Time, leg domain.Leg) (*Availability, error)
	CreateReservation(ctx context.Context, input ReserveInput) (*domain.Reservation, error)
	Cancel(ctx context.Context, id int64) (*domain.Reservation, error)
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
}

// ReserveInput is one booking request. Genders and PassengerNames, when
// given, are positional: entry i belongs to SeatNumbers[i].
type ReserveInput struct {
	Email          string
	FullName       string
	JourneyDate    time.Time
	Leg            domain.Leg
	SeatNumbers    []string
	Genders        []string
	PassengerNames []string
	Meals          []domain.MealOrder
	TotalAmount    int64
}

type SeatAvailability struct {
	SeatID        int64        `json:"-"`
	SeatNumber    string       `json:"seatNumber"`
	Berth         domain.Berth `json:"berth"`
	Available     bool         `json:"available"`
	Gender        string       `json:"gender,omitempty"`
	PassengerName string       `json:"passengerName,omitempty"`
	ReservationID int64        `json:"bookingId,omitempty"`
}

type Availability struct {
	JourneyDate time.Time          `json:"-"`
	Leg         domain.Leg         `json:"-"`
	Seats       []SeatAvailability `json:"seats"`
	TotalSeats  int                `json:"totalSeats"`
	BookedSeats int                `json:"bookedSeats"`
	Risk        *risk.Score        `json:"risk,omitempty"`
}

// Engine owns every state change of reservations. It keeps no state of its
// own between calls; all coordination happens in the store's transactions.
type Engine struct {
	store          repository.Store
	catalog        seats.SeatUseCase
	itinerary      *domain.Itinerary
	meals          map[int64]domain.Meal
	mealStop       int
	dispatcher     notification.Dispatcher
	estimator      risk.Estimator
	logger         *zap.Logger
	maxAttempts    int
	initialBackoff time.Duration
	publishTimeout time.Duration
	riskTimeout    time.Duration
	now            func() time.Time
}

type Option func(*Engine)

func WithDispatcher(d notification.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

func WithEstimator(est risk.Estimator, timeout time.Duration) Option {
	return func(e *Engine) {
		e.estimator = est
		if timeout > 0 {
			e.riskTimeout = timeout
		}
	}
}

// WithMeals replaces the meal catalogue. Meals may only be ordered on legs
// that reach stop mealStop.
func WithMeals(meals []domain.Meal, mealStop int) Option {
	return func(e *Engine) {
		e.meals = indexMeals(meals)
		e.mealStop = mealStop
	}
}

func WithRetry(maxAttempts int, initialBackoff time.Duration) Option {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if initialBackoff > 0 {
			e.initialBackoff = initialBackoff
		}
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.publishTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func NewEngine(store repository.Store, catalog seats.SeatUseCase, itinerary *domain.Itinerary, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		catalog:        catalog,
		itinerary:      itinerary,
		meals:          indexMeals(domain.DefaultMeals()),
		mealStop:       2,
		logger:         zap.NewNop(),
		maxAttempts:    4,
		initialBackoff: 25 * time.Millisecond,
		publishTimeout: 2 * time.Second,
		riskTimeout:    300 * time.Millisecond,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func indexMeals(meals []domain.Meal) map[int64]domain.Meal {
	out := make(map[int64]domain.Meal, len(meals))
	for _, m := range meals {
		out[m.ID] = m
	}
	return out
}

// CheckAvailability reports every active seat for leg on journeyDate. It
// never writes and never blocks bookings.
func (e *Engine) CheckAvailability(ctx context.Context, journeyDate time.Time, leg domain.Leg) (*Availability, error) {
	if journeyDate.IsZero() {
		return nil, fmt.Errorf("%w: journey date is required", domain.ErrInvalidRequest)
	}
	if err := e.itinerary.ValidateLeg(leg); err != nil {
		return nil, err
	}
	date := domain.DateOf(journeyDate)

	active, err := e.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	taken, err := e.store.Segments().FindOverlapping(ctx, date, leg, nil)
	if err != nil {
		return nil, fmt.Errorf("find overlapping segments: %w", err)
	}

	// Segments come ordered by seat then FromIndex, so the first one seen
	// per seat is the earliest.
	occupant := make(map[int64]domain.Segment, len(taken))
	for _, seg := range taken {
		if _, ok := occupant[seg.SeatID]; !ok {
			occupant[seg.SeatID] = seg
		}
	}

	out := &Availability{JourneyDate: date, Leg: leg, Seats: make([]SeatAvailability, 0, len(active)), TotalSeats: len(active)}
	for _, s := range active {
		sa := SeatAvailability{SeatID: s.ID, SeatNumber: s.SeatNumber, Berth: s.Berth, Available: true}
		if seg, ok := occupant[s.ID]; ok {
			sa.Available = false
			sa.Gender = seg.Gender
			sa.PassengerName = seg.PassengerName
			sa.ReservationID = seg.ReservationID
			out.BookedSeats++
		}
		out.Seats = append(out.Seats, sa)
	}

	out.Risk = e.estimate(ctx, date, out.TotalSeats, out.BookedSeats)
	return out, nil
}

func (e *Engine) estimate(ctx context.Context, date time.Time, total, booked int) *risk.Score {
	if e.estimator == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.riskTimeout)
	defer cancel()

	score, err := e.estimator.Estimate(ctx, date, total, booked)
	if err != nil {
		logger.For(ctx, e.logger).Debug("risk estimate unavailable", zap.Error(err))
		return nil
	}
	return &score
}

// CreateReservation runs Reserve, retrying it with exponential backoff while
// it fails with domain.ErrRetryable. Every other failure is returned at once.
func (e *Engine) CreateReservation(ctx context.Context, input ReserveInput) (*domain.Reservation, error) {
	log := logger.For(ctx, e.logger)

	var res *domain.Reservation
	attempt := 0
	op := func() error {
		attempt++
		r, err := e.Reserve(ctx, input)
		if err == nil {
			res = r
			return nil
		}
		if errors.Is(err, domain.ErrRetryable) {
			log.Debug("reserve attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(e.maxAttempts-1)), ctx)); err != nil {
		if errors.Is(err, domain.ErrRetryable) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("reservation gave up under contention", zap.Int("attempts", attempt), zap.Error(err))
			return nil, domain.ErrRetryable
		}
		return nil, err
	}

	log.Info("reservation confirmed",
		zap.Int64("reservation_id", res.ID),
		zap.String("journey_date", res.JourneyDate.Format(domain.DateLayout)),
		zap.Stringer("leg", res.Leg),
		zap.Strings("seats", res.SeatNumbers()),
		zap.Int("attempts", attempt))
	e.publish(ctx, notification.EventReservationConfirmed, res)
	return res, nil
}

func (e *Engine) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.initialBackoff
	b.MaxInterval = 20 * e.initialBackoff
	return b
}

// Reserve makes a single attempt: one serializable transaction that
// rechecks the seats and writes the reservation, its segments and meals, or
// nothing at all.
func (e *Engine) Reserve(ctx context.Context, input ReserveInput) (*domain.Reservation, error) {
	if err := e.validate(input); err != nil {
		return nil, err
	}
	date := domain.DateOf(input.JourneyDate)

	var out *domain.Reservation
	err := e.store.Serializable(ctx, func(ctx context.Context, q repository.Queries) error {
		chosen, err := seats.Resolve(ctx, q.Seats(), input.SeatNumbers)
		if err != nil {
			return err
		}
		ids := make([]int64, len(chosen))
		for i, s := range chosen {
			ids[i] = s.ID
		}

		clashes, err := q.Segments().FindOverlapping(ctx, date, input.Leg, ids)
		if err != nil {
			return fmt.Errorf("recheck seats: %w", err)
		}
		if len(clashes) > 0 {
			return &domain.SeatConflictError{Seats: conflictingSeats(clashes)}
		}

		customer, err := customers.NewDirectory(q.Customers()).FindOrCreate(ctx, input.Email, input.FullName)
		if err != nil {
			return err
		}

		res := &domain.Reservation{
			CustomerID:  customer.ID,
			JourneyDate: date,
			Leg:         input.Leg,
			TotalAmount: input.TotalAmount,
		}
		if err := q.Reservations().Create(ctx, res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		segments := make([]domain.Segment, len(chosen))
		for i, s := range chosen {
			segments[i] = domain.Segment{
				SeatID:        s.ID,
				SeatNumber:    s.SeatNumber,
				ReservationID: res.ID,
				JourneyDate:   date,
				Leg:           input.Leg,
				Gender:        at(input.Genders, i),
				PassengerName: at(input.PassengerNames, i),
			}
		}
		if err := q.Segments().InsertMany(ctx, segments); err != nil {
			return fmt.Errorf("insert segments: %w", err)
		}

		if len(input.Meals) > 0 {
			if err := q.Reservations().AddMeals(ctx, res.ID, input.Meals); err != nil {
				return fmt.Errorf("add meals: %w", err)
			}
		}

		res.Email = customer.Email
		res.Segments = segments
		res.Meals = input.Meals
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) validate(in ReserveInput) error {
	if err := e.itinerary.ValidateLeg(in.Leg); err != nil {
		return err
	}
	if in.JourneyDate.IsZero() {
		return fmt.Errorf("%w: journey date is required", domain.ErrInvalidRequest)
	}
	email := domain.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", domain.ErrInvalidRequest)
	}
	if err := maxLen("email", email, domain.MaxEmailLen); err != nil {
		return err
	}
	if err := maxLen("full name", strings.TrimSpace(in.FullName), domain.MaxFullNameLen); err != nil {
		return err
	}
	if in.TotalAmount < 0 {
		return fmt.Errorf("%w: total amount must not be negative", domain.ErrInvalidRequest)
	}

	n := len(in.SeatNumbers)
	if n == 0 {
		return fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidSeat)
	}
	if len(in.Genders) > 0 && len(in.Genders) != n {
		return fmt.Errorf("%w: %d genders for %d seats", domain.ErrInvalidSeat, len(in.Genders), n)
	}
	if len(in.PassengerNames) > 0 && len(in.PassengerNames) != n {
		return fmt.Errorf("%w: %d passenger names for %d seats", domain.ErrInvalidSeat, len(in.PassengerNames), n)
	}
	for i := 0; i < n; i++ {
		if err := maxLen("gender", at(in.Genders, i), domain.MaxGenderLen); err != nil {
			return err
		}
		if err := maxLen("passenger name", at(in.PassengerNames, i), domain.MaxPassengerNameLen); err != nil {
			return err
		}
	}

	if len(in.Meals) == 0 {
		return nil
	}
	if !in.Leg.Reaches(e.mealStop) {
		return fmt.Errorf("%w: meals are not served on leg %s", domain.ErrInvalidRequest, in.Leg)
	}
	total := 0
	for _, m := range in.Meals {
		if _, ok := e.meals[m.MealID]; !ok {
			return fmt.Errorf("%w: unknown meal %d", domain.ErrInvalidRequest, m.MealID)
		}
		if m.Quantity <= 0 {
			return fmt.Errorf("%w: meal %d quantity must be positive", domain.ErrInvalidRequest, m.MealID)
		}
		total += m.Quantity
	}
	if total > n {
		return fmt.Errorf("%w: %d meals for %d passengers", domain.ErrInvalidRequest, total, n)
	}
	return nil
}

func maxLen(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s longer than %d characters", domain.ErrInvalidRequest, field, limit)
	}
	return nil
}

func conflictingSeats(segments []domain.Segment) []string {
	var out []string
	seen := make(map[int64]struct{}, len(segments))
	for _, s := range segments {
		if _, ok := seen[s.SeatID]; ok {
			continue
		}
		seen[s.SeatID] = struct{}{}
		out = append(out, s.SeatNumber)
	}
	return out
}

func at(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}

// Cancel marks the reservation cancelled and frees its seats in one
// transaction. Cancelling twice is harmless and keeps the first timestamp.
func (e *Engine) Cancel(ctx context.Context, id int64) (*domain.Reservation, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidRequest)
	}

	var (
		res   *domain.Reservation
		freed int64
	)
	err := e.store.Atomic(ctx, func(ctx context.Context, q repository.Queries) error {
		r, err := q.Reservations().MarkCancelled(ctx, id, e.now().UTC())
		if err != nil {
			return err
		}
		segments, err := q.Segments().ListByReservation(ctx, id)
		if err != nil {
			return fmt.Errorf("list segments: %w", err)
		}
		if freed, err = q.Segments().DeleteByReservation(ctx, id); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}
		r.Segments = segments
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.For(ctx, e.logger).Info("reservation cancelled", zap.Int64("reservation_id", id), zap.Int64("freed_segments", freed))
	if freed > 0 {
		e.publish(ctx, notification.EventReservationCancelled, res)
	}
	return res, nil
}

func (e *Engine) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidRequest)
	}

	var res *domain.Reservation
	err := e.store.Atomic(ctx, func(ctx context.Context, q repository.Queries) error {
		r, err := q.Reservations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Segments, err = q.Segments().ListByReservation(ctx, id); err != nil {
			return fmt.Errorf("list segments: %w", err)
		}
		if r.Meals, err = q.Reservations().ListMeals(ctx, id); err != nil {
			return fmt.Errorf("list meals: %w", err)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// publish hands the event to the dispatcher. The reservation is already
// committed, so a failure here is only logged.
func (e *Engine) publish(ctx context.Context, eventType notification.EventType, res *domain.Reservation) {
	if e.dispatcher == nil {
		return
	}
	log := logger.For(ctx, e.logger)

	event := notification.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		ReservationID:  res.ID,
		Email:          res.Email,
		JourneyDate:    res.JourneyDate.Format(domain.DateLayout),
		FromStop:       e.stopName(res.Leg.From),
		ToStop:         e.stopName(res.Leg.To),
		Seats:          res.SeatNumbers(),
		PassengerNames: res.PassengerNames(),
		TotalAmount:    res.TotalAmount,
		OccurredAt:     e.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()
	if err := e.dispatcher.Dispatch(ctx, event); err != nil {
		log.Warn("failed to publish reservation event",
			zap.String("type", string(eventType)),
			zap.Int64("reservation_id", res.ID),
			zap.Error(err))
	}
}

func (e *Engine) stopName(index int) string {
	if s, ok := e.itinerary.Stop(index); ok {
		return s.Name
	}
	return fmt.Sprintf("stop %d", index)
}

var _ UseCase = (*Engine)(nil)
