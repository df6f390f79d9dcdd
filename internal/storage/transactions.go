package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/google/uuid"
)

const transactionColumns = `
	id, raw_body, sender, source, date, amount, direction, merchant,
	reference, bank, card_last4, confidence, is_subscription, category_id, created_at`

// bodyHash identifies a message body for duplicate detection.
func bodyHash(body string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(body)))
}

// transactionHash returns the dedupe key: the raw message when there is one, otherwise the
// transaction's own fields.
func transactionHash(txn *model.Transaction) string {
	if txn.RawBody != "" {
		return bodyHash(txn.RawBody)
	}
	return txn.GenerateHash()
}

// InsertTransaction stores a transaction and returns its id. A transaction whose message was
// already stored fails with common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn model.Transaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	return s.insertTransactionTx(ctx, s.db, &txn)
}

func (s *SQLiteStorage) insertTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) (string, error) {
	if err := validateTransaction(txn); err != nil {
		return "", err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, hash, raw_body, sender, source, date, amount, direction, merchant,
			reference, bank, card_last4, confidence, is_subscription, category_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, transactionHash(txn), txn.RawBody, txn.Sender, string(txn.Source),
		txn.Date, txn.Amount.StringFixed(2), string(txn.Direction), txn.Merchant,
		txn.Reference, txn.Bank, txn.CardLast4, txn.Confidence, txn.IsSubscription,
		txn.CategoryID, txn.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("transaction %s: %w", txn.Merchant, common.ErrDuplicateEntry)
		}
		if isBusy(err) {
			return "", fmt.Errorf("failed to insert transaction: %w: %w", common.ErrDatabaseBusy, err)
		}
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}

	return txn.ID, nil
}

// SaveTransactions stores a batch in one database transaction, skipping duplicates.
// It returns how many were newly stored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	saved := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txns {
			if _, err := s.insertTransactionTx(ctx, tx, &txns[i]); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					continue
				}
				return fmt.Errorf("transaction at index %d: %w", i, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// ExistsByRawBody reports whether a message with exactly this body was already stored.
func (s *SQLiteStorage) ExistsByRawBody(ctx context.Context, body string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(body, "body"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE hash = ?`, bodyHash(body)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing message: %w", err)
	}
	return count > 0, nil
}

// GetAllTransactions returns every stored transaction, oldest first.
func (s *SQLiteStorage) GetAllTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionByID returns one transaction or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return &txns[0], nil
}

// UpdateTransactionCategory assigns a category to a stored transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id string, categoryID int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetTransactionCount returns the number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var source, direction string
		err := rows.Scan(
			&txn.ID, &txn.RawBody, &txn.Sender, &source, &txn.Date, &txn.Amount,
			&direction, &txn.Merchant, &txn.Reference, &txn.Bank, &txn.CardLast4,
			&txn.Confidence, &txn.IsSubscription, &txn.CategoryID, &txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Source = model.TransactionSource(source)
		txn.Direction = model.Direction(direction)
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}
