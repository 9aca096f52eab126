package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateTenantExpired(t *testing.T) {
	data := []byte(`{"run_id":"r1","tenant_id":12,"name":"Grand","email":"o@grand.example","prior_end_date":"2026-03-09T09:00:00Z"}`)
	if err := Validate(SubjectTenantExpired, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWarningSent(t *testing.T) {
	data := []byte(`{"run_id":"r1","tenant_id":7,"email":"o@example.com","days_left":3,"type":"warning_3days"}`)
	if err := Validate(SubjectWarningSent, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRunCompleted(t *testing.T) {
	data := []byte(`{"run_id":"r1","expired_count":1,"notifications_sent":2,"failed_count":0,"skipped_count":0,"duration_ms":120}`)
	if err := Validate(SubjectRunCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	data := []byte(`{"foo":"bar"}`)
	if err := Validate("unknown.subject", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectWarningSent, []byte(`{not valid json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected 'invalid JSON' in error, got: %v", err)
	}
}

func TestValidateWrongTypes(t *testing.T) {
	// tenant_id must be a number.
	err := Validate(SubjectTenantExpired, []byte(`{"tenant_id":"twelve"}`))
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected 'schema validation failed' in error, got: %v", err)
	}
}

func TestValidateInvalidSchema(t *testing.T) {
	err := Validate(SubjectRunCompleted, []byte(`"just a string"`))
	if err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestValidateEmptyJSON(t *testing.T) {
	if err := Validate(SubjectRunCompleted, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
