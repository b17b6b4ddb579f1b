// Package contacts is the address book the assistant searches when it
// needs a party's GSTIN, address or phone number.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Contact is one business or person in the book.
type Contact struct {
	ID      string `json:"contact_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Brief is the id and name only view returned when details are not requested.
type Brief struct {
	ID   string `json:"contact_id"`
	Name string `json:"name"`
}

func (c Contact) Brief() Brief {
	return Brief{ID: c.ID, Name: c.Name}
}

// Book is a SQLite-backed contact book.
type Book struct {
	db *sql.DB
}

// OpenBook opens (or creates) the contact database at path.
func OpenBook(path string) (*Book, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open contacts database: %w", err)
	}
	b, err := NewBook(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewBook wraps an existing handle and migrates the schema.
func NewBook(db *sql.DB) (*Book, error) {
	b := &Book{db: db}
	if err := b.migrate(); err != nil {
		return nil, fmt.Errorf("migrate contacts schema: %w", err)
	}
	return b, nil
}

func (b *Book) Close() error {
	return b.db.Close()
}

func (b *Book) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contacts (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		name_lower TEXT NOT NULL,
		address    TEXT,
		city       TEXT,
		state      TEXT,
		gstin      TEXT,
		phone      TEXT,
		email      TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name_lower);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Add stores c and returns it with its id filled in.
func (b *Book) Add(ctx context.Context, c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, errors.New("contact name is required")
	}
	if c.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return c, fmt.Errorf("generate contact ID: %w", err)
		}
		c.ID = id.String()
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO contacts (id, name, name_lower, address, city, state, gstin, phone, email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, name_lower = excluded.name_lower, address = excluded.address,
			city = excluded.city, state = excluded.state, gstin = excluded.gstin,
			phone = excluded.phone, email = excluded.email`,
		c.ID, c.Name, strings.ToLower(c.Name), c.Address, c.City, c.State, c.GSTIN, c.Phone, c.Email,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return c, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// Search returns contacts whose name contains query, case-insensitively.
func (b *Book) Search(ctx context.Context, query string) ([]Contact, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return b.list(ctx, `WHERE instr(name_lower, ?) > 0`, q)
}

// List returns every contact ordered by name.
func (b *Book) List(ctx context.Context) ([]Contact, error) {
	return b.list(ctx, "")
}

func (b *Book) list(ctx context.Context, where string, args ...any) ([]Contact, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''),
		        COALESCE(gstin, ''), COALESCE(phone, ''), COALESCE(email, '')
		 FROM contacts `+where+` ORDER BY name_lower`, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.State, &c.GSTIN, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
