package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestThresholdsOrder(t *testing.T) {
	got := Thresholds()
	want := []Threshold{
		{7, TypeWarning7Days},
		{3, TypeWarning3Days},
		{1, TypeWarning1Day},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d thresholds, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("threshold[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestThresholdTier(t *testing.T) {
	tests := []struct {
		days int
		want Tier
	}{
		{7, TierInformational},
		{3, TierWarning},
		{1, TierCritical},
		{0, TierCritical},
	}
	for _, tt := range tests {
		if got := (Threshold{Days: tt.days}).Tier(); got != tt.want {
			t.Errorf("Tier(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestWindowEdges(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	w := WindowFor(now, Thresholds()[0])

	if !w.Start.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Errorf("start = %v", w.Start)
	}
	if w.End.Sub(w.Start) != 24*time.Hour {
		t.Errorf("window length = %v, want 24h", w.End.Sub(w.Start))
	}

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"exactly now+7d", now.Add(7 * 24 * time.Hour), true},
		{"inside", now.Add(7*24*time.Hour + 5*time.Hour), true},
		{"one nanosecond before upper edge", now.Add(8*24*time.Hour - time.Nanosecond), true},
		{"exactly now+8d", now.Add(8 * 24 * time.Hour), false},
		{"just before lower edge", now.Add(7*24*time.Hour - time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.ts); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestOutcomeSent(t *testing.T) {
	if !(Outcome{Status: StatusSent}).Sent() {
		t.Error("sent outcome should report Sent()")
	}
	for _, s := range []Status{StatusFailed, StatusSkipped} {
		if (Outcome{Status: s}).Sent() {
			t.Errorf("%s outcome should not report Sent()", s)
		}
	}
}

func TestRenderTiers(t *testing.T) {
	r := NewRenderer("https://ai-ru.ru/content-editor")

	tests := []struct {
		threshold   Threshold
		subject     string
		bodyContain []string
	}{
		{
			Thresholds()[0],
			"Подписка истекает через 7 дней",
			[]string{"Напоминаем", "истекает через 7 дней", "999.00 ₽/месяц"},
		},
		{
			Thresholds()[1],
			"⚠️ Подписка истекает через 3 дня!",
			[]string{"Внимание!", "истекает через 3 дня", "избежать прерывания работы"},
		},
		{
			Thresholds()[2],
			"🚨 Подписка истекает завтра!",
			[]string{"Критически важно!", "ЗАВТРА", "будет заблокирован"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.threshold.Type), func(t *testing.T) {
			c := Candidate{
				TenantID:     42,
				TenantName:   "Гранд Отель",
				Email:        "owner@grand.example",
				TariffName:   "Бизнес",
				RenewalPrice: decimal.NewFromInt(999),
				Threshold:    tt.threshold,
			}
			msg, err := r.Render(&c)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if msg.Subject != tt.subject {
				t.Errorf("subject = %q, want %q", msg.Subject, tt.subject)
			}
			if msg.To != "owner@grand.example" {
				t.Errorf("to = %q", msg.To)
			}
			for _, s := range tt.bodyContain {
				if !strings.Contains(msg.Body, s) {
					t.Errorf("body missing %q:\n%s", s, msg.Body)
				}
			}
			if !strings.Contains(msg.Body, `тариф "Бизнес" для проекта "Гранд Отель"`) {
				t.Errorf("body missing tariff/tenant names:\n%s", msg.Body)
			}
			if !strings.Contains(msg.Body, "https://ai-ru.ru/content-editor?tenant_id=42") {
				t.Errorf("body missing renewal link:\n%s", msg.Body)
			}
		})
	}
}

func TestRenderDefaults(t *testing.T) {
	r := NewRenderer("https://ai-ru.ru/renew")
	c := Candidate{TenantID: 1, TenantName: "Hostel", Threshold: Thresholds()[2]}

	msg, err := r.Render(&c)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(msg.Body, `тариф "Базовый"`) {
		t.Errorf("expected default tariff name in body:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "0.00 ₽/месяц") {
		t.Errorf("expected zero price with default period:\n%s", msg.Body)
	}
	if strings.HasSuffix(msg.Body, "\n") {
		t.Error("body should not end with a newline")
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer("https://ai-ru.ru/renew")
	c := Candidate{
		TenantID: 9, TenantName: "Motel", TariffName: "Pro",
		RenewalPrice: decimal.RequireFromString("1499.5"), Period: "год",
		Threshold: Thresholds()[1],
	}
	a, err := r.Render(&c)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Render(&c)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("rendering the same candidate twice produced different messages")
	}
	if !strings.Contains(a.Body, "1499.50 ₽/год") {
		t.Errorf("price/period not formatted:\n%s", a.Body)
	}
}

func TestRenewalLinkExistingQuery(t *testing.T) {
	r := NewRenderer("https://ai-ru.ru/renew?src=mail")
	if got := r.RenewalLink(5); got != "https://ai-ru.ru/renew?src=mail&tenant_id=5" {
		t.Errorf("RenewalLink = %q", got)
	}
}
