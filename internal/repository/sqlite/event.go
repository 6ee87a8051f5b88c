package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

var _ repository.EventRepository = (*EventDB)(nil)

// EventDB stores events in the events table and their registrations in
// event_registrations. Registration order is the rowid order of the
// registrations table.
type EventDB struct {
	conn     *sql.DB
	validate *validation.Validator
	now      func() time.Time
}

const eventColumns = `id, title, description, date, location, image, created_by, created_at`

func (e *EventDB) Create(ctx context.Context, event *model.Event) error {
	event.Normalize()
	if err := e.validate.Struct(event); err != nil {
		return err
	}

	event.ID = xid.New().String()
	event.CreatedAt = e.now()
	event.Date = event.Date.UTC().Truncate(time.Millisecond)
	event.RegisteredUsers = []string{}

	_, err := e.conn.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Description,
		toMillis(event.Date),
		event.Location,
		event.Image,
		event.CreatedBy,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		event.ID = ""
		return fmt.Errorf("sqlite: inserting event: %w", err)
	}
	return nil
}

func (e *EventDB) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := e.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}

	regs, err := e.registrations(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if users, ok := regs[id]; ok {
		event.RegisteredUsers = users
	}
	return event, nil
}

// List returns events soonest first. Registrations for the whole page are
// loaded with one extra query rather than one per event.
func (e *EventDB) List(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if f.UpcomingOnly {
		query += ` WHERE date >= ?`
		args = append(args, toMillis(f.Reference()))
	}
	query += ` ORDER BY date, id`

	rows, err := e.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	var ids []string
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, *event)
		ids = append(ids, event.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return events, nil
	}
	regs, err := e.registrations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if users, ok := regs[events[i].ID]; ok {
			events[i].RegisteredUsers = users
		}
	}
	return events, nil
}

// UpdateByID writes the editable columns only. Registrations live in their
// own table and are untouched.
func (e *EventDB) UpdateByID(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	patch.Apply(&updated)
	updated.Date = updated.Date.UTC().Truncate(time.Millisecond)
	if err := e.validate.Struct(&updated); err != nil {
		return nil, err
	}

	result, err := e.conn.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, date = ?, location = ?, image = ?
		 WHERE id = ?`,
		updated.Title,
		updated.Description,
		toMillis(updated.Date),
		updated.Location,
		updated.Image,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating event %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("event", id)
	}
	return &updated, nil
}

// DeleteByID removes the event; ON DELETE CASCADE removes its registrations.
func (e *EventDB) DeleteByID(ctx context.Context, id string) error {
	result, err := e.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// Register is a single INSERT OR IGNORE guarded by the event's existence, so
// two concurrent calls for the same user can never both succeed. When no
// row is inserted, the event lookup decides between NotFound and
// AlreadyRegistered.
func (e *EventDB) Register(ctx context.Context, eventID, userID string) (*model.Event, error) {
	result, err := e.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_registrations (event_id, user_id)
		 SELECT ?, ? WHERE EXISTS (SELECT 1 FROM events WHERE id = ?)`,
		eventID, userID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: registering for event %s: %w", eventID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	event, err := e.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperror.AlreadyRegistered()
	}
	return event, nil
}

func (e *EventDB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := e.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting events: %w", err)
	}
	return n, nil
}

// registrations maps each of eventIDs that has at least one registration
// to its user ids in registration order.
func (e *EventDB) registrations(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	placeholders := make([]byte, 0, 2*len(eventIDs))
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	rows, err := e.conn.QueryContext(ctx,
		`SELECT event_id, user_id FROM event_registrations
		 WHERE event_id IN (`+string(placeholders)+`)
		 ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading registrations: %w", err)
	}
	defer rows.Close()

	regs := make(map[string][]string)
	for rows.Next() {
		var eventID, userID string
		if err := rows.Scan(&eventID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning registration row: %w", err)
		}
		regs[eventID] = append(regs[eventID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating registrations: %w", err)
	}
	return regs, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		event           model.Event
		date, createdAt int64
	)
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&date,
		&event.Location,
		&event.Image,
		&event.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	event.Date = fromMillis(date)
	event.CreatedAt = fromMillis(createdAt)
	event.RegisteredUsers = []string{}
	return &event, nil
}
