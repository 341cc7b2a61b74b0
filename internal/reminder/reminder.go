// Package reminder periodically looks for overdue tasks and approaching
// deadlines and hands them to a notify callback, at most once per item per
// day.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/metrics"
	"github.com/pbaille/campusecho/internal/store"
)

const (
	DefaultSchedule  = "@every 1m"
	DefaultLookahead = 7
)

// Kind says what a reminder is about.
type Kind string

const (
	KindTask     Kind = "task"
	KindDeadline Kind = "deadline"
)

// Source lists the open items reminders are drawn from. *store.Store
// implements it.
type Source interface {
	ListTasks(ctx context.Context, completed bool) ([]domain.Task, error)
	ListDeadlines(ctx context.Context, f store.DeadlineFilter) ([]domain.Deadline, error)
}

// Reminder is one notification.
type Reminder struct {
	Kind     Kind
	ID       string
	Title    string
	DueDate  string
	DaysLeft int
}

// Overdue reports whether the due date has passed.
func (r Reminder) Overdue() bool { return r.DaysLeft < 0 }

// Message renders the reminder for display.
func (r Reminder) Message(now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, r.DaysLeft)

	label := "Task"
	if r.Kind == KindDeadline {
		label = "Deadline"
	}

	switch {
	case r.Overdue():
		return fmt.Sprintf("⏰ %s overdue: %s (due %s, %s)", label, r.Title, r.DueDate,
			humanize.RelTime(due, today, "ago", "from now"))
	case r.DaysLeft == 0:
		return fmt.Sprintf("⏰ %s due today: %s", label, r.Title)
	default:
		return fmt.Sprintf("⏰ %s approaching: %s (due %s, %s)", label, r.Title, r.DueDate,
			humanize.RelTime(due, today, "ago", "from now"))
	}
}

// Notifier receives reminders. It is called synchronously from Check.
type Notifier func(Reminder)

// Checker finds due items and notifies about each once per day.
type Checker struct {
	source    Source
	notify    Notifier
	lookahead int
	now       func() time.Time
	log       zerolog.Logger

	mu   sync.Mutex
	sent map[string]string // kind:id -> ISO day it was last sent
}

type Option func(*Checker)

// WithLookahead sets how many days ahead deadlines count as approaching.
func WithLookahead(days int) Option {
	return func(c *Checker) {
		if days >= 0 {
			c.lookahead = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Checker) { c.log = l.With().Str("component", "reminder").Logger() }
}

func New(src Source, notify Notifier, opts ...Option) *Checker {
	c := &Checker{
		source:    src,
		notify:    notify,
		lookahead: DefaultLookahead,
		now:       time.Now,
		log:       zerolog.Nop(),
		sent:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check collects open tasks that are overdue or due today and open
// deadlines that are overdue or due within the lookahead window, notifies
// about those not yet reported today and returns them.
func (c *Checker) Check(ctx context.Context) ([]Reminder, error) {
	now := c.now()

	tasks, err := c.source.ListTasks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	deadlines, err := c.source.ListDeadlines(ctx, store.DeadlineFilter{})
	if err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}

	var due []Reminder
	for _, t := range tasks {
		if r, ok := candidate(KindTask, t.ID, t.Title, t.DueDate, 0, now); ok {
			due = append(due, r)
		}
	}
	for _, d := range deadlines {
		if r, ok := candidate(KindDeadline, d.ID, d.Title, d.DueDate, c.lookahead, now); ok {
			due = append(due, r)
		}
	}

	fresh := c.unsent(due, now.Format(dates.ISOLayout))
	for _, r := range fresh {
		metrics.RemindersSent.WithLabelValues(string(r.Kind)).Inc()
		if c.notify != nil {
			c.notify(r)
		}
	}
	return fresh, nil
}

func candidate(kind Kind, id, title string, dueDate *string, lookahead int, now time.Time) (Reminder, bool) {
	if dueDate == nil {
		return Reminder{}, false
	}
	days, ok := dates.DaysUntil(*dueDate, now)
	if !ok || days > lookahead {
		return Reminder{}, false
	}
	return Reminder{Kind: kind, ID: id, Title: title, DueDate: *dueDate, DaysLeft: days}, true
}

// unsent filters out reminders already sent on day and marks the rest.
func (c *Checker) unsent(rs []Reminder, day string) []Reminder {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sentOn := range c.sent {
		if sentOn != day {
			delete(c.sent, key)
		}
	}

	var out []Reminder
	for _, r := range rs {
		key := string(r.Kind) + ":" + r.ID
		if _, ok := c.sent[key]; ok {
			continue
		}
		c.sent[key] = day
		out = append(out, r)
	}
	return out
}

// Run checks on the given cron schedule until ctx is cancelled, then waits
// for a running check to finish.
func (c *Checker) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	sched := cron.New()
	_, err := sched.AddFunc(schedule, func() {
		if _, err := c.Check(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("reminder check failed")
		}
	})
	if err != nil {
		return fmt.Errorf("parse reminder schedule %q: %w", schedule, err)
	}

	c.log.Debug().Str("schedule", schedule).Msg("reminders started")
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}
