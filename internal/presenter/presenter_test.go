package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/studysync/studysync-cli/internal/models"
)

func TestLocaleDetection(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"en_US.UTF-8", "en-US"},
		{"vi_VN.UTF-8", "vi-VN"},
		{"de_DE.UTF-8", "de-DE"},
		{"ja_JP.UTF-8", "ja-JP"},
		{"", "en-US"},
	}

	for _, tt := range tests {
		loc := NewLocale(tt.raw)
		if got := loc.Tag().String(); got != tt.want {
			t.Errorf("NewLocale(%q).Tag() = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDetectLocaleOverrideWins(t *testing.T) {
	t.Setenv("LC_ALL", "de_DE.UTF-8")
	if got := DetectLocale("vi-VN").Tag().String(); got != "vi-VN" {
		t.Errorf("DetectLocale override = %q, want vi-VN", got)
	}
	if got := DetectLocale("").Tag().String(); got != "de-DE" {
		t.Errorf("DetectLocale env = %q, want de-DE", got)
	}
}

func TestLocaleDateFormats(t *testing.T) {
	date, _ := time.Parse("2006-01-02", "2026-03-15")

	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "Mar 15, 2026"},
		{"en-GB", "15 Mar 2026"},
		{"vi-VN", "15/03/2026"},
		{"de-DE", "15. Mar 2026"},
		{"ja-JP", "2026-03-15"},
	}

	for _, tt := range tests {
		if got := NewLocale(tt.locale).FormatDate(date); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
	if got := NewLocale("en-US").FormatDate(time.Time{}); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}
}

func TestLocaleNumberFormats(t *testing.T) {
	tests := []struct {
		locale string
		value  float64
		want   string
	}{
		{"en-US", 1234.56, "1,234.56"},
		{"de-DE", 1234.56, "1.234,56"},
		{"en-US", 42, "42"},
		{"en-US", 1000000, "1,000,000"},
		{"de-DE", 1000000, "1.000.000"},
	}

	for _, tt := range tests {
		if got := NewLocale(tt.locale).FormatNumber(tt.value); got != tt.want {
			t.Errorf("FormatNumber(%v, %q) = %q, want %q", tt.value, tt.locale, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	en := NewLocale("en-US")

	got := en.FormatMoney(99000, "VND")
	if !strings.Contains(got, "99,000") || !strings.HasSuffix(got, "VND") {
		t.Errorf("FormatMoney(99000, VND) = %q, want grouped digits", got)
	}
	if got := en.FormatMoney(5, "usd"); got != "5 USD" {
		t.Errorf("FormatMoney(5, usd) = %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	loc := NewLocale("en-US")
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{30 * time.Hour, "yesterday"},
		{72 * time.Hour, "3 days ago"},
		{30 * 24 * time.Hour, "Feb 13, 2026"},
		{-time.Hour, "Mar 15, 2026"},
	}

	for _, tt := range tests {
		if got := loc.RelativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[string]string{
		"PAID":    "✓ paid",
		"EXPIRED": "✗ expired",
		"PENDING": "pending",
		"":        "",
	}
	for in, want := range tests {
		if got := StatusLabel(in); got != want {
			t.Errorf("StatusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello   world", 20); got != "hello world" {
		t.Errorf("Truncate collapses whitespace: %q", got)
	}
	if got := Truncate("hello world", 6); got != "hello…" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestPresenterRows(t *testing.T) {
	p := New(NewLocale("en-US"))
	p.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }

	plans := p.Plans([]models.Plan{{ID: "p1", Name: "Pro", Price: 99000, Currency: "VND", DurationDays: 30}})
	if plans[0]["name"] != "Pro" || plans[0]["days"] != 30 {
		t.Errorf("Plans row = %v", plans[0])
	}

	files := p.Files([]models.File{{ID: "f1", Name: "a.pdf", Size: 2048, CreatedAt: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)}})
	if files[0]["size"] != "2.0 KB" || files[0]["uploaded"] != "3 hours ago" {
		t.Errorf("Files row = %v", files[0])
	}

	paid := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	tx := p.Transaction(&models.Transaction{OrderCode: "123", Status: "PAID", PaidAt: &paid})
	if tx["status"] != "✓ paid" || tx["paid"] != "Mar 14, 2026" {
		t.Errorf("Transaction row = %v", tx)
	}

	active := false
	u := p.User(&models.User{ID: "u1", Name: "Ada", IsActive: &active})
	if u["active"] != false {
		t.Errorf("User row = %v", u)
	}
}
