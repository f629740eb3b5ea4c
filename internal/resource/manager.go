package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"admin-dashboard/internal/events"
	"admin-dashboard/internal/models"
)

var (
	// ErrBusy rejects a mutation while another one from the same manager is in flight.
	ErrBusy            = errors.New("another change is still in progress")
	ErrNoPendingDelete = errors.New("no deletion awaiting confirmation")
	ErrUnknownRecord   = errors.New("record is not in the current list")
	ErrStaleForm       = errors.New("the form no longer matches the record being edited, nothing was saved")
)

// Client is the upstream API of one resource type.
type Client[T models.Record] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, fields models.Fields) error
	Update(ctx context.Context, id string, fields models.Fields) error
	Delete(ctx context.Context, id string) error
}

// State is the view state owned by a single Manager.
type State[T models.Record] struct {
	// Records is the last fetched snapshot, in server order.
	Records []T
	Loaded  bool
	Loading bool
	Form    models.Fields
	// EditingID is empty in create mode.
	EditingID     string
	Submitting    bool
	PendingDelete string
}

type Option func(*options)

type options struct {
	notifier  Notifier
	publisher events.Publisher
	logger    *slog.Logger
}

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Manager coordinates one resource's upstream calls with its list and form
// state. All methods are safe for concurrent use; the lock is never held
// across a network call.
type Manager[T models.Record] struct {
	schema    models.Schema
	client    Client[T]
	notifier  Notifier
	publisher events.Publisher
	logger    *slog.Logger

	mu         sync.Mutex
	state      State[T]
	refreshSeq uint64
}

func NewManager[T models.Record](schema models.Schema, client Client[T], opts ...Option) *Manager[T] {
	o := options{
		notifier:  NotifierFunc(func(Notification) {}),
		publisher: events.Nop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		schema:    schema,
		client:    client,
		notifier:  o.notifier,
		publisher: o.publisher,
		logger:    o.logger.With("resource", schema.Name),
		state: State[T]{
			Records: []T{},
			Form:    schema.Empty(),
		},
	}
}

func (m *Manager[T]) Schema() models.Schema {
	return m.schema
}

// State returns a copy of the current state.
func (m *Manager[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Records = append([]T(nil), m.state.Records...)
	s.Form = m.state.Form.Clone()
	return s
}

// Records returns a copy of the current snapshot.
func (m *Manager[T]) Records() []T {
	return m.State().Records
}

// Mount performs the initial fetch.
func (m *Manager[T]) Mount(ctx context.Context) error {
	return m.Refresh(ctx)
}

// Refresh replaces the snapshot with the upstream collection. On failure the
// previous snapshot stays in place. When refreshes overlap, only the most
// recently started one is applied.
func (m *Manager[T]) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshSeq++
	seq := m.refreshSeq
	m.state.Loading = true
	m.mu.Unlock()

	records, err := m.client.List(ctx)

	m.mu.Lock()
	current := seq == m.refreshSeq
	if current {
		m.state.Loading = false
		if err == nil {
			m.state.Records = records
			m.state.Loaded = true
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.WarnContext(ctx, "List failed", "superseded", !current, "error", err)
		if current {
			m.fail("loading "+m.schema.Name, err)
		}
		return err
	}
	return nil
}

// SetField updates a single form value. Unknown names are ignored.
func (m *Manager[T]) SetField(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Form[name]; ok {
		m.state.Form[name] = value
	}
}

// SetForm replaces the form values, keeping the current mode.
func (m *Manager[T]) SetForm(fields models.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Form = m.schema.Normalize(fields)
}

// Edit switches to edit mode for the record with the given id, pre-filling
// the form with its current values.
func (m *Manager[T]) Edit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.find(id)
	if !ok {
		return fmt.Errorf("%s %q: %w", m.schema.Singular, id, ErrUnknownRecord)
	}
	m.state.EditingID = id
	m.state.Form = m.schema.Normalize(rec.FieldValues())
	return nil
}

// Cancel leaves edit mode and clears the form. No request is made.
func (m *Manager[T]) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetForm()
}

// Submit creates a record in create mode or updates the edited one. An
// incomplete form is rejected before any request is made.
func (m *Manager[T]) Submit(ctx context.Context) error {
	m.mu.Lock()
	return m.submitLocked(ctx)
}

// SubmitForm submits fields that were filled in while the manager was
// editing editingID ("" for create mode). When the mode has changed since,
// the fields are dropped and ErrStaleForm is returned without any request.
func (m *Manager[T]) SubmitForm(ctx context.Context, editingID string, fields models.Fields) error {
	m.mu.Lock()
	if m.state.EditingID != editingID {
		m.mu.Unlock()
		m.notifier.Notify(Notification{Level: LevelWarning, Message: ErrStaleForm.Error()})
		return ErrStaleForm
	}
	m.state.Form = m.schema.Normalize(fields)
	return m.submitLocked(ctx)
}

// submitLocked is called with m.mu held and releases it.
func (m *Manager[T]) submitLocked(ctx context.Context) error {
	fields := m.state.Form.Clone()
	if err := m.schema.Validate(fields); err != nil {
		m.mu.Unlock()
		m.notifier.Notify(Notification{Level: LevelWarning, Message: err.Error()})
		return err
	}
	if m.state.Submitting {
		m.mu.Unlock()
		m.notifier.Notify(Notification{Level: LevelWarning, Message: ErrBusy.Error()})
		return ErrBusy
	}
	m.state.Submitting = true
	editingID := m.state.EditingID
	m.mu.Unlock()

	var (
		err    error
		action string
	)
	if editingID == "" {
		action = events.ActionCreated
		err = m.client.Create(ctx, fields)
	} else {
		action = events.ActionUpdated
		err = m.client.Update(ctx, editingID, fields)
	}

	m.mu.Lock()
	m.state.Submitting = false
	if err == nil {
		m.resetForm()
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.WarnContext(ctx, "Submit failed", "action", action, "id", editingID, "error", err)
		m.fail(verb(action)+" "+m.schema.Singular, err)
		return err
	}

	m.succeeded(ctx, events.Event{Resource: m.schema.Name, Action: action, ID: editingID, Fields: fields})
	return nil
}

// RequestDelete asks for confirmation before deleting the record. Nothing is
// sent until ConfirmDelete.
func (m *Manager[T]) RequestDelete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.find(id); !ok {
		return fmt.Errorf("%s %q: %w", m.schema.Singular, id, ErrUnknownRecord)
	}
	m.state.PendingDelete = id
	return nil
}

// DeclineDelete drops the pending confirmation and leaves everything else as is.
func (m *Manager[T]) DeclineDelete() {
	m.mu.Lock()
	m.state.PendingDelete = ""
	m.mu.Unlock()
}

// ConfirmDelete deletes the record awaiting confirmation.
func (m *Manager[T]) ConfirmDelete(ctx context.Context) error {
	m.mu.Lock()
	id := m.state.PendingDelete
	if id == "" {
		m.mu.Unlock()
		return ErrNoPendingDelete
	}
	if m.state.Submitting {
		m.mu.Unlock()
		m.notifier.Notify(Notification{Level: LevelWarning, Message: ErrBusy.Error()})
		return ErrBusy
	}
	m.state.Submitting = true
	m.state.PendingDelete = ""
	m.mu.Unlock()

	err := m.client.Delete(ctx, id)

	m.mu.Lock()
	m.state.Submitting = false
	m.mu.Unlock()

	if err != nil {
		m.logger.WarnContext(ctx, "Delete failed", "id", id, "error", err)
		m.fail("deleting "+m.schema.Singular, err)
		return err
	}

	m.succeeded(ctx, events.Event{Resource: m.schema.Name, Action: events.ActionDeleted, ID: id})
	return nil
}

func (m *Manager[T]) succeeded(ctx context.Context, ev events.Event) {
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.WarnContext(ctx, "Audit event not published", "action", ev.Action, "error", err)
	}
	m.notifier.Notify(Notification{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("%s %s successfully", m.schema.Label(), ev.Action),
	})
	_ = m.Refresh(ctx)
}

func (m *Manager[T]) fail(what string, err error) {
	m.notifier.Notify(Notification{
		Level:   LevelError,
		Message: fmt.Sprintf("Error %s: %s", what, err),
	})
}

func (m *Manager[T]) find(id string) (T, bool) {
	for _, rec := range m.state.Records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

func (m *Manager[T]) resetForm() {
	m.state.EditingID = ""
	m.state.Form = m.schema.Empty()
}

func verb(action string) string {
	switch action {
	case events.ActionCreated:
		return "creating"
	case events.ActionUpdated:
		return "updating"
	default:
		return "deleting"
	}
}
