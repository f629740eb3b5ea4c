package resource

import (
	"context"

	"admin-dashboard/internal/models"
)

// Controller is the type-independent surface of a Manager used by the
// dashboard views and commands.
type Controller interface {
	Schema() models.Schema
	Mount(ctx context.Context) error
	Refresh(ctx context.Context) error
	SetForm(fields models.Fields)
	Submit(ctx context.Context) error
	SubmitForm(ctx context.Context, editingID string, fields models.Fields) error
	Edit(id string) error
	Cancel()
	RequestDelete(id string) error
	ConfirmDelete(ctx context.Context) error
	DeclineDelete()
	View() View
}

type Row struct {
	ID    string
	Cells []string
}

// View is a render-ready copy of a manager's state.
type View struct {
	Schema        models.Schema
	Rows          []Row
	Loaded        bool
	Loading       bool
	Form          models.Fields
	EditingID     string
	Submitting    bool
	PendingDelete string
}

func (v View) Editing() bool {
	return v.EditingID != ""
}

func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// Pending returns the row awaiting delete confirmation.
func (v View) Pending() (Row, bool) {
	if v.PendingDelete == "" {
		return Row{}, false
	}
	for _, row := range v.Rows {
		if row.ID == v.PendingDelete {
			return row, true
		}
	}
	return Row{ID: v.PendingDelete}, true
}

func (m *Manager[T]) View() View {
	s := m.State()
	rows := make([]Row, 0, len(s.Records))
	for _, rec := range s.Records {
		rows = append(rows, Row{ID: rec.RecordID(), Cells: rec.Cells()})
	}
	return View{
		Schema:        m.schema,
		Rows:          rows,
		Loaded:        s.Loaded,
		Loading:       s.Loading,
		Form:          s.Form,
		EditingID:     s.EditingID,
		Submitting:    s.Submitting,
		PendingDelete: s.PendingDelete,
	}
}

var (
	_ Controller = (*Manager[models.User])(nil)
	_ Controller = (*Manager[models.Product])(nil)
)
