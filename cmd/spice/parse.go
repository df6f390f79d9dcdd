package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/parser"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [message]",
		Short: "Parse a single bank message",
		Long: `Show what spice extracts from one message without storing anything.
The message is read from standard input when no argument is given.

Examples:
  spice parse "Paid Rs.350.00 to MY CHICKEN SHOP on 14-12-24 using UPI. -HDFC Bank"
  pbpaste | spice parse --sender VM-HDFCBK --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParse,
	}

	cmd.Flags().String("sender", "", "sender id of the message, used to identify the bank")
	cmd.Flags().Bool("json", false, "print the result as JSON")

	return cmd
}

type parseOutput struct {
	Transaction *parsedJSON `json:"transaction,omitempty"`
	Bill        *billJSON   `json:"bill,omitempty"`
	Rejection   string      `json:"rejection,omitempty"`
	Recognizer  string      `json:"recognizer,omitempty"`
}

type parsedJSON struct {
	Date           string  `json:"date"`
	Amount         string  `json:"amount"`
	Direction      string  `json:"direction"`
	Merchant       string  `json:"merchant"`
	Reference      string  `json:"reference,omitempty"`
	Bank           string  `json:"bank,omitempty"`
	CardLast4      string  `json:"card_last4,omitempty"`
	Confidence     float64 `json:"confidence"`
	IsSubscription bool    `json:"is_subscription"`
	NeedsReview    bool    `json:"needs_review"`
}

type billJSON struct {
	DueDate    string `json:"due_date,omitempty"`
	TotalDue   string `json:"total_due"`
	MinimumDue string `json:"minimum_due,omitempty"`
	CardLast4  string `json:"card_last4,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetString("sender")
	asJSON, _ := cmd.Flags().GetBool("json")

	body, err := messageBody(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	out := explainMessage(parser.New(), model.RawMessage{Timestamp: time.Now(), Sender: sender, Body: body})

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	printParseOutput(cmd.OutOrStdout(), out)
	return nil
}

func messageBody(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	body := strings.TrimSpace(strings.Join(lines, "\n"))
	if body == "" {
		return "", common.NewUserError("no message given", nil)
	}
	return body, nil
}

// explainMessage runs the same bill-then-transaction order the scanner uses.
func explainMessage(p *parser.Parser, msg model.RawMessage) parseOutput {
	if bill, ok := p.ParseBill(msg.Body); ok {
		out := parseOutput{Bill: &billJSON{
			TotalDue:  bill.TotalDue.StringFixed(2),
			CardLast4: bill.CardLast4,
		}}
		if !bill.DueDate.IsZero() {
			out.Bill.DueDate = bill.DueDate.Format(dateLayout)
		}
		if bill.MinimumDue != nil {
			out.Bill.MinimumDue = bill.MinimumDue.StringFixed(2)
		}
		return out
	}

	explanation := p.Explain(msg.Body)
	out := parseOutput{Rejection: explanation.Rejection, Recognizer: explanation.Recognizer}

	if txn, ok := p.ParseMessage(msg); ok {
		out.Transaction = &parsedJSON{
			Date:           txn.Date.Format(dateLayout),
			Amount:         txn.Amount.StringFixed(2),
			Direction:      string(txn.Direction),
			Merchant:       txn.Merchant,
			Reference:      txn.Reference,
			Bank:           txn.Bank,
			CardLast4:      txn.CardLast4,
			Confidence:     txn.Confidence,
			IsSubscription: txn.IsSubscription,
			NeedsReview:    txn.NeedsReview(),
		}
	}
	return out
}

func printParseOutput(w io.Writer, out parseOutput) {
	switch {
	case out.Bill != nil:
		lines := []string{"Total due:   ₹" + out.Bill.TotalDue}
		if out.Bill.MinimumDue != "" {
			lines = append(lines, "Minimum due: ₹"+out.Bill.MinimumDue)
		}
		if out.Bill.DueDate != "" {
			lines = append(lines, "Due date:    "+out.Bill.DueDate)
		}
		if out.Bill.CardLast4 != "" {
			lines = append(lines, "Card:        XX"+out.Bill.CardLast4)
		}
		_, _ = fmt.Fprintln(w, cli.RenderBox("Card statement", strings.Join(lines, "\n")))

	case out.Transaction != nil:
		t := out.Transaction
		lines := []string{
			fmt.Sprintf("Amount:      ₹%s (%s)", t.Amount, t.Direction),
			"Merchant:    " + t.Merchant,
			"Date:        " + t.Date,
		}
		if t.Bank != "" {
			lines = append(lines, "Bank:        "+t.Bank)
		}
		if t.CardLast4 != "" {
			lines = append(lines, "Card:        XX"+t.CardLast4)
		}
		if t.Reference != "" {
			lines = append(lines, "Reference:   "+t.Reference)
		}
		if t.IsSubscription {
			lines = append(lines, "Subscription: yes")
		}
		lines = append(lines, fmt.Sprintf("Confidence:  %s (%s)", cli.FormatConfidence(t.Confidence), out.Recognizer))
		_, _ = fmt.Fprintln(w, cli.RenderBox("Transaction", strings.Join(lines, "\n")))
		if t.NeedsReview {
			_, _ = fmt.Fprintln(w, cli.FormatWarning("Low confidence: this transaction would be flagged for review"))
		}

	case out.Rejection != "":
		_, _ = fmt.Fprintln(w, cli.FormatInfo("Not a transaction: looks like "+strings.ReplaceAll(out.Rejection, "_", " ")))

	default:
		_, _ = fmt.Fprintln(w, cli.FormatWarning("No transaction recognized"))
	}
}
