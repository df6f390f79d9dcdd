// Package sms reads text messages from "SMS Backup & Restore" XML exports.
package sms

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// inboxType marks received messages; sent messages and drafts use other values.
const inboxType = "1"

// Message is a single SMS element of the backup.
type Message struct {
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    string `xml:"date,attr"` // Milliseconds since the epoch
	Type    string `xml:"type,attr"`
}

// Backup is the root element of the backup document.
type Backup struct {
	XMLName  xml.Name  `xml:"smses"`
	Messages []Message `xml:"sms"`
}

var _ service.MessageSource = (*BackupSource)(nil)

// BackupSource serves the received messages of a backup file as a MessageSource.
type BackupSource struct {
	path   string
	sender string
}

// NewBackupSource creates a source over the backup at path. A non-empty sender keeps only
// messages whose address contains it, ignoring case, so "HDFCBK" also matches "VM-HDFCBK".
func NewBackupSource(path, sender string) *BackupSource {
	return &BackupSource{path: path, sender: strings.ToUpper(strings.TrimSpace(sender))}
}

// ReadMessages returns the received messages timestamped within period, oldest first.
// Exact duplicates are dropped.
func (s *BackupSource) ReadMessages(ctx context.Context, period service.Period) ([]model.RawMessage, error) {
	f, err := os.Open(s.path) // #nosec G304 - path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open SMS backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	backup, err := Decode(f)
	if err != nil {
		return nil, err
	}

	return s.filter(ctx, backup.Messages, period)
}

// Decode parses a backup document.
func Decode(r io.Reader) (*Backup, error) {
	var backup Backup
	if err := xml.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to parse SMS backup: %w", err)
	}
	return &backup, nil
}

func (s *BackupSource) filter(ctx context.Context, messages []Message, period service.Period) ([]model.RawMessage, error) {
	seen := make(map[string]struct{}, len(messages))
	out := make([]model.RawMessage, 0, len(messages))
	skipped := 0

	for _, m := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.Type != "" && m.Type != inboxType {
			continue
		}
		if s.sender != "" && !strings.Contains(strings.ToUpper(m.Address), s.sender) {
			continue
		}

		ms, err := strconv.ParseInt(m.Date, 10, 64)
		if err != nil {
			skipped++
			continue
		}
		ts := time.UnixMilli(ms)
		if !period.Contains(ts) {
			continue
		}

		key := m.Date + "|" + m.Address + "|" + m.Body
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, model.RawMessage{Timestamp: ts, Sender: m.Address, Body: m.Body})
	}

	if skipped > 0 {
		slog.Warn("Skipped messages with unreadable timestamps", "count", skipped, "file", s.path)
	}

	slices.SortStableFunc(out, func(a, b model.RawMessage) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}
