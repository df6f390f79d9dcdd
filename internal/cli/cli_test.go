package cli

import (
	"bytes"
	"context"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full no", input: "No\n", def: true, want: false},
		{name: "default yes", input: "\n", def: true, want: true},
		{name: "default no", input: "\n", want: false},
		{name: "retries on garbage", input: "maybe\nyes\n", want: true},
		{name: "answer without newline", input: "y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm(context.Background(), "Use NETFLIX?", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Use NETFLIX?")
		})
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking, _ := ioPipe()
	c := NewConfirmer(blocking, &bytes.Buffer{})
	_, err := c.Confirm(ctx, "Continue?", false)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹649.00", FormatAmount(649))
	assert.Equal(t, "₹1250.50", FormatAmount(1250.5))
}

func TestFormatConfidence(t *testing.T) {
	assert.Contains(t, FormatConfidence(0.95), "95%")
	assert.Contains(t, FormatConfidence(0.6), "60%")
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 2, "Scanning")
	p.Advance()
	p.Finish()
	assert.Contains(t, out.String(), "Scanning")
}

func TestInterruptHandler(t *testing.T) {
	var out syncBuffer
	h := NewInterruptHandler(&out, "Scan", "Run spice scan again to continue.")
	ctx, cancel := h.HandleInterrupts(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, h.WasInterrupted())
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Scan interrupted!")
	}, time.Second, 10*time.Millisecond)
}
