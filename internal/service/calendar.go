// Package service implements the calendar operations. Every operation runs
// one store transaction and reports an Outcome; store failures never escape
// as errors.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/calendar/internal/metrics"
	"github.com/atinyakov/calendar/internal/models"
	"github.com/atinyakov/calendar/internal/operation"
	"github.com/atinyakov/calendar/internal/repository"
	"github.com/atinyakov/calendar/internal/request"
	"github.com/atinyakov/calendar/internal/session"
)

// UserRepository is the user persistence needed by Calendar.
type UserRepository interface {
	// FindByCredentials returns the id of the user matching login and
	// password exactly; false when none does.
	FindByCredentials(ctx context.Context, login, password string) (int64, bool, error)
	// LoginExists reports whether login is registered.
	LoginExists(ctx context.Context, login string) (bool, error)
	// Create registers a user. It returns repository.ErrLoginTaken when the
	// login was registered concurrently.
	Create(ctx context.Context, login, password string) error
	// LoginByID returns the login of user id; false when unknown.
	LoginByID(ctx context.Context, id int64) (string, bool, error)
}

// EventRepository is the event persistence needed by Calendar.
type EventRepository interface {
	Create(ctx context.Context, e models.Event) error
	ListFrom(ctx context.Context, owner int64, fromDate string) ([]models.Event, error)
}

// SessionIssuer binds new session tokens to users.
type SessionIssuer interface {
	Create(userID int64) (string, error)
}

// Outcome is the result of an operation. A nil Payload is written as an
// empty JSON object.
type Outcome struct {
	Succeeded bool
	Payload   any
}

// Calendar runs the five API operations.
type Calendar struct {
	users    UserRepository
	events   EventRepository
	sessions SessionIssuer
	log      *zap.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// Option customises a Calendar.
type Option func(*Calendar)

// WithClock sets the clock used to compute "today" for GetEvents.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

// WithMetrics sets the recorder for store errors and issued sessions.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Calendar) { c.metrics = r }
}

// NewCalendar wires a Calendar.
func NewCalendar(
	users UserRepository,
	events EventRepository,
	sessions SessionIssuer,
	log *zap.Logger,
	opts ...Option,
) *Calendar {
	c := &Calendar{
		users:    users,
		events:   events,
		sessions: sessions,
		log:      log,
		metrics:  metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle runs the operation kind with validated params.
func (c *Calendar) Handle(ctx context.Context, kind operation.Kind, p request.Params) Outcome {
	switch kind {
	case operation.Login:
		return c.guard(kind, func() (Outcome, error) { return c.login(ctx, p) })
	case operation.Register:
		return c.guard(kind, func() (Outcome, error) { return c.register(ctx, p) })
	case operation.SaveEvent:
		return c.guard(kind, func() (Outcome, error) { return c.saveEvent(ctx, p) })
	case operation.GetEvents:
		return c.guard(kind, func() (Outcome, error) { return c.getEvents(ctx, p) })
	case operation.GetUsername:
		return c.guard(kind, func() (Outcome, error) { return c.getUsername(ctx, p) })
	default:
		c.log.Warn("no handler for operation", zap.Int("kind", int(kind)))
		return Outcome{}
	}
}

// guard turns an error from fn into a failed outcome.
func (c *Calendar) guard(kind operation.Kind, fn func() (Outcome, error)) Outcome {
	out, err := fn()
	if err != nil {
		c.log.Error("operation failed",
			zap.String("operation", kind.String()),
			zap.Error(err),
		)
		c.metrics.RecordStoreError(kind.String())
		return Outcome{}
	}
	return out
}

func (c *Calendar) login(ctx context.Context, p request.Params) (Outcome, error) {
	id, ok, err := c.users.FindByCredentials(ctx, p.Login, p.Password)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		c.log.Warn("invalid credentials", zap.String("login", p.Login))
		return Outcome{}, nil
	}

	token, err := c.sessions.Create(id)
	if err != nil {
		return Outcome{}, err
	}
	c.metrics.RecordSessionIssued()
	c.log.Info("user logged in", zap.Int64("user_id", id))

	return Outcome{
		Succeeded: true,
		Payload:   map[string]string{session.CookieName: token},
	}, nil
}

func (c *Calendar) register(ctx context.Context, p request.Params) (Outcome, error) {
	exists, err := c.users.LoginExists(ctx, p.Login)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		c.log.Info("login already registered", zap.String("login", p.Login))
		return Outcome{}, nil
	}

	if err := c.users.Create(ctx, p.Login, p.Password); err != nil {
		if errors.Is(err, repository.ErrLoginTaken) {
			c.log.Info("login already registered", zap.String("login", p.Login))
			return Outcome{}, nil
		}
		return Outcome{}, err
	}

	c.log.Info("user registered", zap.String("login", p.Login))
	return Outcome{Succeeded: true}, nil
}

func (c *Calendar) saveEvent(ctx context.Context, p request.Params) (Outcome, error) {
	e := models.Event{
		Owner:    p.UserID,
		Name:     p.Name,
		Date:     p.Date,
		Time:     p.Time,
		Duration: p.Duration,
	}
	if err := c.events.Create(ctx, e); err != nil {
		return Outcome{}, err
	}

	c.log.Info("event saved",
		zap.Int64("user_id", p.UserID),
		zap.String("name", p.Name),
		zap.String("date", p.Date),
	)
	return Outcome{Succeeded: true}, nil
}

func (c *Calendar) getEvents(ctx context.Context, p request.Params) (Outcome, error) {
	today := c.now().Format(models.DateLayout)

	events, err := c.events.ListFrom(ctx, p.UserID, today)
	if err != nil {
		return Outcome{}, err
	}
	if events == nil {
		events = []models.Event{}
	}

	c.log.Info("events listed", zap.Int64("user_id", p.UserID), zap.Int("count", len(events)))
	return Outcome{Succeeded: true, Payload: events}, nil
}

func (c *Calendar) getUsername(ctx context.Context, p request.Params) (Outcome, error) {
	login, ok, err := c.users.LoginByID(ctx, p.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		c.log.Warn("user not found", zap.Int64("user_id", p.UserID))
		return Outcome{}, nil
	}
	return Outcome{Succeeded: true, Payload: login}, nil
}
