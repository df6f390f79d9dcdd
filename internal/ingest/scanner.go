// Package ingest turns an inbox of raw messages into stored transactions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/merchant"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/notify"
	"github.com/Veraticus/spice-sms/internal/service"
)

// MessageParser extracts transactions and bills from message text.
type MessageParser interface {
	ParseMessage(msg model.RawMessage) (*model.ParsedTransaction, bool)
	ParseBill(body string) (*model.ParsedBill, bool)
}

// Categorizer assigns a stored transaction to a category through its merchant mapping.
type Categorizer interface {
	Categorize(ctx context.Context, txn model.Transaction) (merchant.Match, error)
}

// Progress reports how far a scan has got.
type Progress interface {
	Advance()
	Finish()
}

// ScanStats counts what happened to every scanned message.
type ScanStats struct {
	Scanned     int
	Matched     int // Parsed into a transaction
	Saved       int
	Duplicates  int
	Errors      int
	NeedsReview int // Saved with confidence below the review threshold
	Bills       int
	Duration    time.Duration
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithNotifier sends review and bill events to sink.
func WithNotifier(sink service.NotificationSink) Option {
	return func(s *Scanner) { s.sink = sink }
}

// WithCategorizer categorizes each saved transaction.
func WithCategorizer(c Categorizer) Option {
	return func(s *Scanner) { s.categorizer = c }
}

// WithProgress creates a progress reporter once the number of messages is known.
func WithProgress(newProgress func(total int) Progress) Option {
	return func(s *Scanner) { s.newProgress = newProgress }
}

// WithRetry sets how inserts are retried when the database is busy.
func WithRetry(opts common.RetryOptions) Option {
	return func(s *Scanner) { s.retry = opts }
}

// Scanner reads messages from a source, parses them and stores new transactions.
type Scanner struct {
	source      service.MessageSource
	parser      MessageParser
	store       service.TransactionStore
	sink        service.NotificationSink
	categorizer Categorizer
	newProgress func(total int) Progress
	retry       common.RetryOptions
}

// NewScanner creates a scanner.
func NewScanner(source service.MessageSource, parser MessageParser, store service.TransactionStore, opts ...Option) *Scanner {
	s := &Scanner{
		source: source,
		parser: parser,
		store:  store,
		retry:  common.DefaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan processes every message in period. A failure on one message is counted and logged and
// does not stop the others. Cancelling ctx stops the scan between messages and returns the
// counts so far along with the context error.
func (s *Scanner) Scan(ctx context.Context, period service.Period) (ScanStats, error) {
	start := time.Now()
	var stats ScanStats

	msgs, err := s.source.ReadMessages(ctx, period)
	if err != nil {
		return stats, fmt.Errorf("failed to read messages: %w", err)
	}

	var progress Progress
	if s.newProgress != nil {
		progress = s.newProgress(len(msgs))
		defer progress.Finish()
	}

	slog.Info("Scanning messages", "count", len(msgs), "from", period.Start, "to", period.End)

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		stats.Scanned++
		if err := s.processSafely(ctx, msg, &stats); err != nil {
			stats.Errors++
			slog.Warn("Failed to process message",
				"sender", msg.Sender,
				"timestamp", msg.Timestamp,
				"error", err)
		}
		if progress != nil {
			progress.Advance()
		}
	}

	if stats.NeedsReview > 0 {
		notify.Send(ctx, s.sink, model.Event{
			Type:  model.EventReviewNeeded,
			Title: "Transactions need review",
			Body:  fmt.Sprintf("%d transactions were parsed with low confidence", stats.NeedsReview),
		})
	}

	stats.Duration = time.Since(start)
	slog.Info("Scan complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"saved", stats.Saved,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"needs_review", stats.NeedsReview,
		"bills", stats.Bills,
		"duration", stats.Duration)

	return stats, nil
}

// processSafely turns a panic while processing one message into an error.
func (s *Scanner) processSafely(ctx context.Context, msg model.RawMessage, stats *ScanStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing message: %v", r)
		}
	}()
	return s.process(ctx, msg, stats)
}

func (s *Scanner) process(ctx context.Context, msg model.RawMessage, stats *ScanStats) error {
	if bill, ok := s.parser.ParseBill(msg.Body); ok {
		stats.Bills++
		notify.Send(ctx, s.sink, notify.BillEvent(*bill))
		return nil
	}

	parsed, ok := s.parser.ParseMessage(msg)
	if !ok {
		return nil
	}
	stats.Matched++

	exists, err := s.store.ExistsByRawBody(ctx, msg.Body)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if exists {
		stats.Duplicates++
		return nil
	}

	txn := model.Transaction{
		RawBody:           msg.Body,
		Sender:            msg.Sender,
		Source:            model.SourceSMS,
		ParsedTransaction: *parsed,
	}

	var id string
	err = common.WithRetry(ctx, func() error {
		var insertErr error
		id, insertErr = s.store.InsertTransaction(ctx, txn)
		return insertErr
	}, s.retry)
	if errors.Is(err, common.ErrDuplicateEntry) {
		stats.Duplicates++
		return nil
	}
	if err != nil {
		return err
	}

	stats.Saved++
	if parsed.NeedsReview() {
		stats.NeedsReview++
	}

	if s.categorizer != nil {
		txn.ID = id
		if _, err := s.categorizer.Categorize(ctx, txn); err != nil {
			slog.Warn("Failed to categorize transaction", "id", id, "merchant", txn.Merchant, "error", err)
		}
	}

	return nil
}
