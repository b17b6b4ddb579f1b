package invoice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Archive.Get for an unknown id.
var ErrNotFound = errors.New("invoice not found")

// LineItem is the archived summary of one invoice line.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
	HSNCode  string  `json:"hsn_code,omitempty"`
}

// Record is the archived metadata of a generated invoice.
type Record struct {
	ID             string     `json:"id"`
	InvoiceNumber  string     `json:"invoice_number"`
	CustomerName   string     `json:"customer_name"`
	Date           string     `json:"date"`
	DocumentType   string     `json:"document_type"`
	Subtotal       float64    `json:"subtotal"`
	TaxType        string     `json:"tax_type"`
	TotalTaxAmount float64    `json:"total_tax_amount"`
	GrandTotal     float64    `json:"grand_total"`
	Path           string     `json:"path"`
	UserID         string     `json:"user_id,omitempty"`
	BusinessGSTIN  string     `json:"business_gstin,omitempty"`
	CustomerGSTIN  string     `json:"customer_gstin,omitempty"`
	BusinessState  string     `json:"business_state,omitempty"`
	CustomerState  string     `json:"customer_state,omitempty"`
	Items          []LineItem `json:"items"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewRecord summarises data for the archive. id is the sanitised invoice number.
func NewRecord(id string, data InvoiceData, number, path, userID string) Record {
	rec := Record{
		ID:             id,
		InvoiceNumber:  number,
		CustomerName:   data.Buyer.Name,
		Date:           data.Date,
		DocumentType:   data.DocumentType,
		Subtotal:       data.Subtotal,
		TaxType:        data.TaxType,
		TotalTaxAmount: data.TotalTaxAmount,
		GrandTotal:     data.TotalAmount,
		Path:           path,
		UserID:         userID,
		BusinessGSTIN:  str(data.Seller.GSTIN),
		CustomerGSTIN:  str(data.Buyer.GSTIN),
		BusinessState:  str(data.Seller.StateName),
		CustomerState:  str(data.Buyer.StateName),
	}
	if rec.DocumentType == "" {
		rec.DocumentType = TaxInvoice
	}
	for _, it := range data.Items {
		rec.Items = append(rec.Items, LineItem{
			Name: it.Name, Quantity: it.Quantity, Unit: it.Unit,
			Rate: it.Rate, Amount: it.Amount, HSNCode: str(it.HSNCode),
		})
	}
	return rec
}

// Stats aggregates the archive for the dashboard.
type Stats struct {
	TotalInvoices int            `json:"totalInvoices"`
	TotalRevenue  float64        `json:"totalRevenue"`
	DocumentTypes map[string]int `json:"documentTypes"`
}

// Archive stores invoice metadata in SQLite.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open invoice archive: %w", err)
	}
	a, err := NewArchive(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewArchive wraps an existing handle and migrates the schema.
func NewArchive(db *sql.DB) (*Archive, error) {
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate invoice schema: %w", err)
	}
	return a, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invoices (
		id            TEXT PRIMARY KEY,
		user_id       TEXT,
		document_type TEXT NOT NULL,
		grand_total   REAL NOT NULL,
		created_at    TEXT NOT NULL,
		body          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_created ON invoices(created_at);
	CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices(user_id);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Save inserts or replaces rec. A zero CreatedAt is set to now.
func (a *Archive) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		return rec, errors.New("invoice id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO invoices (id, user_id, document_type, grand_total, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			document_type = excluded.document_type,
			grand_total = excluded.grand_total,
			created_at = excluded.created_at,
			body = excluded.body`,
		rec.ID, nullString(rec.UserID), rec.DocumentType, rec.GrandTotal,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), string(body),
	)
	if err != nil {
		return rec, fmt.Errorf("save invoice %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (a *Archive) Get(ctx context.Context, id string) (*Record, error) {
	var body string
	err := a.db.QueryRowContext(ctx, `SELECT body FROM invoices WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", id, err)
	}
	return &rec, nil
}

// List returns up to limit records, newest first, optionally for one user.
func (a *Archive) List(ctx context.Context, limit int, userID string) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT body FROM invoices`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *Archive) Stats(ctx context.Context) (*Stats, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT document_type, COUNT(*), COALESCE(SUM(grand_total), 0) FROM invoices GROUP BY document_type`)
	if err != nil {
		return nil, fmt.Errorf("query invoice stats: %w", err)
	}
	defer rows.Close()

	st := &Stats{DocumentTypes: map[string]int{}}
	for rows.Next() {
		var kind string
		var n int
		var total float64
		if err := rows.Scan(&kind, &n, &total); err != nil {
			return nil, fmt.Errorf("scan invoice stats: %w", err)
		}
		st.DocumentTypes[kind] = n
		st.TotalInvoices += n
		st.TotalRevenue += total
	}
	return st, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
