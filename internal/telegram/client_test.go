package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/seisview/gmv/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"M5.8 quake!", "M5\\.8 quake\\!"},
		{"a_b*c[d]e", "a\\_b\\*c\\[d\\]e"},
		{"(paren) #tag +1 -2", "\\(paren\\) \\#tag \\+1 \\-2"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.input); got != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	c := &Client{}
	now := time.Now()

	records := []*models.RenderRecord{
		{
			ID:         "rec-1",
			QuakeID:    "usp000hnj4",
			OutputPath: "20160903_OKlocal_Magnitude5_8.mp4",
			Magnitude:  5.8,
			Status:     models.StatusRendered,
			RenderedAt: now,
		},
		{
			ID:         "rec-2",
			QuakeID:    "usp000fail",
			Magnitude:  4.6,
			Status:     models.StatusFailed,
			Error:      "no usable waveform data",
			RenderedAt: now,
		},
	}

	msg := c.formatSummary(records)

	if !strings.Contains(msg, "Rendered: 1") || !strings.Contains(msg, "Failed: 1") {
		t.Errorf("Expected counts in summary, got:\n%s", msg)
	}
	if !strings.Contains(msg, "M5\\.8") {
		t.Errorf("Expected escaped magnitude in summary, got:\n%s", msg)
	}
	if !strings.Contains(msg, "no usable waveform data") {
		t.Errorf("Expected failure reason in summary, got:\n%s", msg)
	}
}
