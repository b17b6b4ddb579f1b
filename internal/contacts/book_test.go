package contacts_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/petasbytes/snapbooks/internal/contacts"
)

func openBook(t *testing.T) *contacts.Book {
	t.Helper()
	b, err := contacts.OpenBook(filepath.Join(t.TempDir(), "contacts.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBook_AddSearchList(t *testing.T) {
	ctx := context.Background()
	b := openBook(t)

	for _, name := range []string{"Acme Steel", "Bharat Metals", "acme logistics"} {
		if _, err := b.Add(ctx, contacts.Contact{Name: name, GSTIN: "G-" + name}); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}

	got, err := b.Search(ctx, "ACME")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Name != "acme logistics" || got[1].Name != "Acme Steel" {
		t.Fatalf("search results: %+v", got)
	}
	if got[1].ID == "" || got[1].GSTIN != "G-Acme Steel" {
		t.Fatalf("fields not round-tripped: %+v", got[1])
	}

	none, err := b.Search(ctx, "zzz")
	if err != nil || len(none) != 0 {
		t.Fatalf("want no matches, got %+v, %v", none, err)
	}

	all, err := b.List(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("list: %d, %v", len(all), err)
	}
}

func TestBook_AddRequiresName(t *testing.T) {
	if _, err := openBook(t).Add(context.Background(), contacts.Contact{Name: "  "}); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestBook_AddUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	b := openBook(t)
	c, err := b.Add(ctx, contacts.Contact{Name: "Acme", Phone: "1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	c.Phone = "2"
	if _, err := b.Add(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	all, _ := b.List(ctx)
	if len(all) != 1 || all[0].Phone != "2" {
		t.Fatalf("update not applied: %+v", all)
	}
}
