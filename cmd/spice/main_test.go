package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-sms/internal/config"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/parser"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTestSettings points the commands at a fresh database for one test.
func useTestSettings(t *testing.T) string {
	t.Helper()
	v := viper.New()
	path := filepath.Join(t.TempDir(), "spice.db")
	v.Set(config.KeyDatabasePath, path)

	loaded, err := config.Load(v)
	require.NoError(t, err)

	previous := settings
	settings = loaded
	t.Cleanup(func() { settings = previous })
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func rawMessage(body string) model.RawMessage {
	return model.RawMessage{Timestamp: time.Now(), Body: body}
}

func periodCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().Int("months", 6, "")
	cmd.Flags().String("since", "", "")
	cmd.Flags().String("until", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		args    []string
		want    service.Period
		wantErr bool
	}{
		{
			name: "default months",
			want: service.Period{Start: time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC), End: now},
		},
		{
			name: "explicit range includes the until day",
			args: []string{"--since", "2025-01-01", "--until", "2025-01-31"},
			want: service.Period{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name: "since only runs to now",
			args: []string{"--since", "2025-06-01"},
			want: service.Period{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), End: now},
		},
		{name: "bad date", args: []string{"--since", "01/06/2025"}, wantErr: true},
		{name: "reversed range", args: []string{"--since", "2025-02-01", "--until", "2025-01-01"}, wantErr: true},
		{name: "zero months", args: []string{"--months", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePeriod(periodCmd(t, tt.args...), now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Start.Equal(got.Start), "start %s", got.Start)
			assert.True(t, tt.want.End.Equal(got.End), "end %s", got.End)
		})
	}
}

func TestExplainMessage(t *testing.T) {
	p := parser.New(parser.WithLocation(time.UTC))

	tests := []struct {
		name           string
		body           string
		wantMerchant   string
		wantBill       string
		wantRejection  string
		wantRecognizer string
	}{
		{
			name:           "transaction",
			body:           "Paid Rs.350.00 to MY CHICKEN SHOP on 14-12-24 using UPI. UPI Ref: 433218765432. -HDFC Bank",
			wantMerchant:   "MY CHICKEN SHOP",
			wantRecognizer: parser.RecognizerUPIPayee,
		},
		{
			name:     "bill",
			body:     "Statement for HDFC Bank Credit Card XX1111: Total Amount Due Rs.12,345.60, Minimum Amount Due Rs.620.00. Due date 05-02-25.",
			wantBill: "12345.60",
		},
		{
			name:          "otp",
			body:          "Your OTP for transaction of Rs.500.00 at AMAZON is 123456. Do not share it with anyone.",
			wantRejection: parser.ReasonOTP,
		},
		{name: "chat", body: "See you at the station at 6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := explainMessage(p, rawMessage(tt.body))

			assert.Equal(t, tt.wantRejection, out.Rejection)
			assert.Equal(t, tt.wantRecognizer, out.Recognizer)
			if tt.wantMerchant != "" {
				require.NotNil(t, out.Transaction)
				assert.Equal(t, tt.wantMerchant, out.Transaction.Merchant)
				assert.Equal(t, "350.00", out.Transaction.Amount)
			} else {
				assert.Nil(t, out.Transaction)
			}
			if tt.wantBill != "" {
				require.NotNil(t, out.Bill)
				assert.Equal(t, tt.wantBill, out.Bill.TotalDue)
				assert.Equal(t, "620.00", out.Bill.MinimumDue)
				assert.Equal(t, "2025-02-05", out.Bill.DueDate)
			} else {
				assert.Nil(t, out.Bill)
			}
		})
	}
}

func TestParseCommand_JSON(t *testing.T) {
	out := execute(t, parseCmd(), "--json", "Rs.45.00 debited at ELEGANT CAFÉ & BAKERS")
	assert.Contains(t, out, `"merchant": "ELEGANT CAFÉ & BAKERS"`)
	assert.Contains(t, out, `"needs_review": true`)
}

func TestParseCommand_Stdin(t *testing.T) {
	cmd := parseCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("INR 899.00 spent on ICICI Bank Card XX4321 at SWIGGY on 15-Dec-24.\n"))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "SWIGGY")
}

func TestMessageBody_Empty(t *testing.T) {
	_, err := messageBody(strings.NewReader("  \n"), nil)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "NETFLIX", truncateString("NETFLIX", 10))
	assert.Equal(t, "NETFLIX...", truncateString("NETFLIX INDIA", 10))

	names := map[int]string{1: "Food & Dining"}
	assert.Equal(t, "Food & Dining", categoryLabel(names, 1))
	assert.Equal(t, "-", categoryLabel(names, 0))
	assert.Equal(t, "#9", categoryLabel(names, 9))

	assert.Equal(t, "never", formatDate(nil))
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-01", formatDate(&d))

	_, err := parseID("abc")
	assert.Error(t, err)
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.ofx", "a.ofx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.ofx")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.ofx"), filepath.Join(dir, "b.ofx")}, files)

	_, err = expandFiles([]string{filepath.Join(dir, "*.qfx")})
	assert.Error(t, err)
}

func TestMigrateAndMerchants(t *testing.T) {
	path := useTestSettings(t)

	out := execute(t, migrateCmd(), "--status")
	assert.Contains(t, out, "Current version: 0")

	out = execute(t, migrateCmd())
	assert.Contains(t, out, "Database migrated")
	_, err := os.Stat(path)
	require.NoError(t, err)

	out = execute(t, migrateCmd(), "--backup")
	assert.Contains(t, out, "Backup written to")
	out = execute(t, migrateCmd(), "--list-backups")
	assert.Contains(t, out, "manual")

	execute(t, merchantsCmd(), "map", "SWIGGY INSTAMART", "Swiggy", "--category", "Groceries", "--create-category")

	out = execute(t, merchantsCmd(), "list")
	assert.Contains(t, out, "SWIGGY INSTAMART")
	assert.Contains(t, out, "Groceries")

	out = execute(t, merchantsCmd(), "resolve", "SWIGGY INSTAMRT")
	assert.Contains(t, out, "fuzzy")

	out = execute(t, merchantsCmd(), "confirm", "SWIGGY INSTAMRT", "--yes")
	assert.Contains(t, out, "Mapped")

	out = execute(t, merchantsCmd(), "resolve", "swiggy instamrt")
	assert.Contains(t, out, "exact")
}

const ofxStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>INR
<BANKACCTFROM>
<BANKID>HDFC0001
<ACCTID>50100012345678
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250101120000[0:GMT]
<DTEND>20250331120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250115120000[0:GMT]
<TRNAMT>-649.00
<FITID>202501150001
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250215120000[0:GMT]
<TRNAMT>-649.00
<FITID>202502150001
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250315120000[0:GMT]
<TRNAMT>-649.00
<FITID>202503150001
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20250331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImportOFXAndPatterns(t *testing.T) {
	useTestSettings(t)

	file := filepath.Join(t.TempDir(), "hdfc.ofx")
	require.NoError(t, os.WriteFile(file, []byte(ofxStatement), 0o600))

	out := execute(t, importOFXCmd(), file, "--dry-run")
	assert.Contains(t, out, "Dry run complete")

	out = execute(t, importOFXCmd(), file, "--bank", "HDFC Bank")
	assert.Contains(t, out, "Saved 3 transactions (0 already stored)")

	out = execute(t, importOFXCmd(), file)
	assert.Contains(t, out, "Saved 0 transactions (3 already stored)")

	out = execute(t, patternsCmd(), "detect")
	assert.Contains(t, strings.ToLower(out), "netflix")
	assert.Contains(t, out, "1 new suggestions saved")

	out = execute(t, patternsCmd(), "list")
	assert.Contains(t, out, "monthly")

	out = execute(t, patternsCmd(), "confirm", "1")
	assert.Contains(t, out, "confirmed as recurring rule #1")

	out = execute(t, patternsCmd(), "rules")
	assert.Contains(t, out, "NETFLIX.COM")

	out = execute(t, forecastCmd(), "health")
	assert.Contains(t, out, "Recurring health")

	out = execute(t, forecastCmd(), "budget")
	assert.Contains(t, out, "Budget for")
}
