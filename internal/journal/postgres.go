package journal

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO payment_journal
	          (checkout_id, service_id, category_id, account, amount, currency, transaction_id, status, error)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		entry.CheckoutID,
		entry.ServiceID,
		entry.CategoryID,
		entry.Account,
		entry.Amount,
		entry.Currency,
		nullString(entry.TransactionID),
		string(entry.Status),
		nullString(entry.Error),
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *PostgresRepository) FindByCheckout(ctx context.Context, checkoutID string) ([]Entry, error) {
	query := selectEntries + ` WHERE checkout_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, checkoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *PostgresRepository) FindByTransaction(ctx context.Context, transactionID string) (*Entry, error) {
	query := selectEntries + ` WHERE transaction_id = $1 ORDER BY id DESC LIMIT 1`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return entry, err
}

const selectEntries = `SELECT id, checkout_id, service_id, category_id, account, amount, currency,
	       transaction_id, status, error, created_at
	  FROM payment_journal`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry         Entry
		status        string
		transactionID sql.NullString
		errText       sql.NullString
	)
	err := row.Scan(
		&entry.ID,
		&entry.CheckoutID,
		&entry.ServiceID,
		&entry.CategoryID,
		&entry.Account,
		&entry.Amount,
		&entry.Currency,
		&transactionID,
		&status,
		&errText,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Status = Status(status)
	entry.TransactionID = transactionID.String
	entry.Error = errText.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
