package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ EventRepository = (*EventRepositoryImpl)(nil)

// EventRepositoryImpl handles database operations for derived events and
// their host organizations.
type EventRepositoryImpl struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepositoryImpl {
	return &EventRepositoryImpl{db: db}
}

// GetEventsByStart returns all events whose start instant exactly matches.
// Duplicate matching against these rows is policy-dependent and lives in the
// event package.
func (r *EventRepositoryImpl) GetEventsByStart(start time.Time) ([]Event, error) {
	rows, err := r.db.Query(`
		SELECT id, name, host_id, start_date, end_date,
		       COALESCE(description, ''), COALESCE(category, ''),
		       cost, food, COALESCE(location, ''), COALESCE(link, ''),
		       source_channel, created_at
		FROM events
		WHERE start_date = ?
	`, start.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get events by start: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// InsertEvent persists a new event, resolving or creating the host
// organization by exact name inside the same transaction. A failure rolls
// the whole write back.
func (r *EventRepositoryImpl) InsertEvent(event NewEvent) (*Event, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var hostID *int64
	if event.HostName != "" {
		id, err := resolveOrganization(tx, event.HostName)
		if err != nil {
			return nil, err
		}
		hostID = &id
	}

	result, err := tx.Exec(`
		INSERT INTO events (name, host_id, start_date, end_date, description,
		                    category, location, link, source_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.Name, hostID, event.StartDate.UTC(), event.EndDate.UTC(),
		event.Description, event.Category, event.Location, event.Link,
		event.SourceChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	eventID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted event id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}

	return &Event{
		ID:            eventID,
		Name:          event.Name,
		HostID:        hostID,
		StartDate:     event.StartDate.UTC(),
		EndDate:       event.EndDate.UTC(),
		Description:   event.Description,
		Category:      event.Category,
		Location:      event.Location,
		Link:          event.Link,
		SourceChannel: event.SourceChannel,
	}, nil
}

// resolveOrganization returns the id of the organization with the given
// name, creating it on first reference.
func resolveOrganization(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM organizations WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up organization: %w", err)
	}

	result, err := tx.Exec(`INSERT INTO organizations (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create organization: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted organization id: %w", err)
	}

	return id, nil
}

func (r *EventRepositoryImpl) GetOrganizationByName(name string) (*Organization, error) {
	var org Organization
	err := r.db.QueryRow(`
		SELECT id, name, COALESCE(location, ''), COALESCE(faculty, ''),
		       COALESCE(description, ''), COALESCE(instagram, ''),
		       COALESCE(facebook, ''), COALESCE(website, ''),
		       COALESCE(email, ''), COALESCE(image, '')
		FROM organizations
		WHERE name = ?
	`, name).Scan(&org.ID, &org.Name, &org.Location, &org.Faculty,
		&org.Description, &org.Instagram, &org.Facebook, &org.Website,
		&org.Email, &org.Image)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

func (r *EventRepositoryImpl) GetRecentEvents(limit int) ([]Event, error) {
	rows, err := r.db.Query(`
		SELECT id, name, host_id, start_date, end_date,
		       COALESCE(description, ''), COALESCE(category, ''),
		       cost, food, COALESCE(location, ''), COALESCE(link, ''),
		       source_channel, created_at
		FROM events
		ORDER BY start_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *EventRepositoryImpl) GetEventCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get event count: %w", err)
	}
	return count, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var event Event
		err := rows.Scan(
			&event.ID, &event.Name, &event.HostID, &event.StartDate,
			&event.EndDate, &event.Description, &event.Category,
			&event.Cost, &event.Food, &event.Location, &event.Link,
			&event.SourceChannel, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}
