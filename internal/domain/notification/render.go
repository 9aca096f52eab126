package notification

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var bodyTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var tierTemplates = map[Tier]string{
	TierInformational: "warning_7days.tmpl",
	TierWarning:       "warning_3days.tmpl",
	TierCritical:      "warning_1day.tmpl",
}

// bodyData is the template input.
type bodyData struct {
	TenantName  string
	TariffName  string
	DaysLeft    int
	Price       string
	Period      string
	RenewalLink string
}

// Renderer builds warning emails. Render has no side effects.
type Renderer struct {
	RenewalURL string
}

// NewRenderer returns a Renderer linking to renewalURL.
func NewRenderer(renewalURL string) *Renderer {
	return &Renderer{RenewalURL: renewalURL}
}

// Render produces the subject and body for a candidate.
func (r *Renderer) Render(c *Candidate) (Message, error) {
	tier := c.Threshold.Tier()

	tariffName := c.TariffName
	if tariffName == "" {
		tariffName = tenant.DefaultTariffName
	}
	period := c.Period
	if period == "" {
		period = tenant.DefaultPeriod
	}

	var buf bytes.Buffer
	err := bodyTemplates.ExecuteTemplate(&buf, tierTemplates[tier], bodyData{
		TenantName:  c.TenantName,
		TariffName:  tariffName,
		DaysLeft:    c.Threshold.Days,
		Price:       c.RenewalPrice.StringFixed(2),
		Period:      period,
		RenewalLink: r.RenewalLink(c.TenantID),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render %s: %w", c.Threshold.Type, err)
	}

	return Message{
		To:      c.Email,
		Subject: Subject(c.Threshold),
		Body:    strings.TrimRight(buf.String(), "\n"),
	}, nil
}

// RenewalLink returns the renewal URL parameterised by tenant.
func (r *Renderer) RenewalLink(tenantID int64) string {
	sep := "?"
	if strings.Contains(r.RenewalURL, "?") {
		sep = "&"
	}
	return r.RenewalURL + sep + "tenant_id=" + strconv.FormatInt(tenantID, 10)
}

// Subject returns the email subject for a threshold.
func Subject(t Threshold) string {
	switch t.Tier() {
	case TierInformational:
		return fmt.Sprintf("Подписка истекает через %d дней", t.Days)
	case TierWarning:
		return fmt.Sprintf("⚠️ Подписка истекает через %d дня!", t.Days)
	default:
		return "🚨 Подписка истекает завтра!"
	}
}
