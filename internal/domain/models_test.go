package domain

import "testing"

func TestTableNames(t *testing.T) {
	if got := (Upload{}).TableName(); got != "uploads" {
		t.Fatalf("Upload table = %q", got)
	}
	if got := (Summary{}).TableName(); got != "summaries" {
		t.Fatalf("Summary table = %q", got)
	}
	if got := (PromptTemplate{}).TableName(); got != "prompt_templates" {
		t.Fatalf("PromptTemplate table = %q", got)
	}
}
