package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
)

func mkPrompt(t *testing.T, db *gorm.DB, name string, active bool) *domain.PromptTemplate {
	t.Helper()
	p := &domain.PromptTemplate{Name: name, Text: "Summarize:", Active: active}
	if err := CreatePrompt(context.Background(), db, p); err != nil {
		t.Fatalf("create prompt %q: %v", name, err)
	}
	return p
}

func TestCreatePrompt_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	mkPrompt(t, db, "Basic", true)

	err := CreatePrompt(context.Background(), db, &domain.PromptTemplate{Name: "Basic", Text: "x"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestListPrompts_ActiveFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mkPrompt(t, db, "on", true)
	mkPrompt(t, db, "off", false)

	all, err := ListPrompts(ctx, db, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d (%v), want 2", len(all), err)
	}
	active, err := ListPrompts(ctx, db, true)
	if err != nil || len(active) != 1 || active[0].Name != "on" {
		t.Fatalf("active = %+v (%v)", active, err)
	}
}

func TestUpdatePrompt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := mkPrompt(t, db, "orig", true)
	other := mkPrompt(t, db, "taken", true)

	if err := UpdatePrompt(ctx, db, p.ID, "renamed", "new text", false); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := GetPrompt(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "renamed" || got.Text != "new text" || got.Active {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := UpdatePrompt(ctx, db, p.ID, other.Name, "t", true); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("rename collision: err = %v, want ErrDuplicate", err)
	}
	if err := UpdatePrompt(ctx, db, uuid.NewString(), "n", "t", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing row: err = %v, want ErrNotFound", err)
	}
}

func TestMarkPromptDefault_SingleFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := mkPrompt(t, db, "a", true)
	b := mkPrompt(t, db, "b", false)

	if err := MarkPromptDefault(ctx, db, a.ID); err != nil {
		t.Fatalf("mark a: %v", err)
	}
	if err := MarkPromptDefault(ctx, db, b.ID); err != nil {
		t.Fatalf("mark b: %v", err)
	}

	def, err := GetDefaultPrompt(ctx, db)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if def.ID != b.ID {
		t.Fatalf("default = %s, want %s", def.ID, b.ID)
	}
	if !def.Active {
		t.Fatal("marking default should activate the template")
	}

	var flagged int64
	db.Model(&domain.PromptTemplate{}).Where("is_default = ?", true).Count(&flagged)
	if flagged != 1 {
		t.Fatalf("default rows = %d, want exactly 1", flagged)
	}

	if err := MarkPromptDefault(ctx, db, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestSeedDefaultPrompt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p, err := SeedDefaultPrompt(ctx, db, "Basic Summary", "Summarize the following document:")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if p == nil || !p.IsDefault || !p.Active {
		t.Fatalf("seeded prompt: %+v", p)
	}

	// Non-empty registry: no-op even with a different name.
	again, err := SeedDefaultPrompt(ctx, db, "Other", "x")
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if again != nil {
		t.Fatalf("re-seed inserted %+v, want no-op", again)
	}
	all, _ := ListPrompts(ctx, db, false)
	if len(all) != 1 {
		t.Fatalf("prompts = %d, want 1", len(all))
	}
}

func TestDeletePrompt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := mkPrompt(t, db, "gone", true)

	if err := DeletePrompt(ctx, db, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetPrompt(ctx, db, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
	if err := DeletePrompt(ctx, db, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}
