package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidEvent(t *testing.T) {
	data := []byte(`{"event_id":"e1","instance_id":"i1","kind":"start","content":{"user_idea":"todo app"}}`)
	if err := Validate(SubjectEvents+".i1", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidDelegation(t *testing.T) {
	data := []byte(`{"instance_id":"i1","agent":"Dream Weaver","task":"generate_concept","context_id":"concept_gen_001","content":{"idea":"todo app"}}`)
	if err := Validate(SubjectDelegations+".dream-weaver", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidHumanMessage(t *testing.T) {
	data := []byte(`{"instance_id":"i1","message_type":"QUESTION","content":"Approve?","options":["Approve","Reject"],"context_id":"concept_approval_001"}`)
	if err := Validate(SubjectHuman+".i1", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectEvents+".i1", []byte(`{not json`))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected invalid JSON error, got %v", err)
	}
}

func TestValidateSchemaMismatch(t *testing.T) {
	// kind must be a string.
	err := Validate(SubjectEvents+".i1", []byte(`{"kind":42}`))
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateUnknownSubjectPasses(t *testing.T) {
	if err := Validate("metrics.internal", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subjects must pass: %v", err)
	}
}
