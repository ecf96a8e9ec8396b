package docstore

import "testing"

func TestPutCreatesThenUpdates(t *testing.T) {
	idx := NewIndex("products")

	res, err := idx.Put("1", map[string]any{"name": "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "created" || res.Version != 1 {
		t.Fatalf("got %+v, want created/version 1", res)
	}

	res, err = idx.Put("1", map[string]any{"name": "widget-v2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "updated" || res.Version != 2 {
		t.Fatalf("got %+v, want updated/version 2", res)
	}
}

func TestPutGeneratesIDWhenEmpty(t *testing.T) {
	idx := NewIndex("products")
	res, err := idx.Put("", map[string]any{"name": "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID == "" {
		t.Error("expected a generated id")
	}
	if _, ok := idx.Get(res.ID); !ok {
		t.Error("expected the generated id to be retrievable")
	}
}

func TestGetMissing(t *testing.T) {
	idx := NewIndex("products")
	if _, ok := idx.Get("absent"); ok {
		t.Error("expected Get on an absent id to report not found")
	}
}

func TestUpdateMergesDocWrapper(t *testing.T) {
	idx := NewIndex("products")
	_, err := idx.Put("1", map[string]any{"name": "widget", "price": float64(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := idx.Update("1", map[string]any{"doc": map[string]any{"price": float64(20)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "updated" || res.Version != 2 {
		t.Fatalf("got %+v, want updated/version 2", res)
	}

	doc, _ := idx.Get("1")
	if doc.Source["name"] != "widget" {
		t.Errorf("expected untouched field to survive the merge, got %+v", doc.Source)
	}
	if doc.Source["price"] != float64(20) {
		t.Errorf("expected price to be updated, got %+v", doc.Source["price"])
	}
}

func TestUpdateMissingDocumentFails(t *testing.T) {
	idx := NewIndex("products")
	if _, err := idx.Update("missing", map[string]any{"name": "x"}); err == nil {
		t.Error("expected error updating a nonexistent document")
	}
}

func TestDeleteFoundAndNotFound(t *testing.T) {
	idx := NewIndex("products")
	_, _ = idx.Put("1", map[string]any{"name": "widget"})

	res := idx.Delete("1")
	if res.Result != "deleted" || res.ID != "1" {
		t.Fatalf("got %+v, want deleted/id 1", res)
	}
	if _, ok := idx.Get("1"); ok {
		t.Error("expected document to be gone after delete")
	}

	res = idx.Delete("1")
	if res.Result != "not_found" || res.ID != "1" {
		t.Fatalf("got %+v, want not_found with id still populated", res)
	}
}

func TestCountAndEach(t *testing.T) {
	idx := NewIndex("products")
	_, _ = idx.Put("1", map[string]any{"name": "a"})
	_, _ = idx.Put("2", map[string]any{"name": "b"})

	if idx.Count() != 2 {
		t.Errorf("got %d, want 2", idx.Count())
	}

	seen := map[string]bool{}
	idx.Each(func(doc *Document) { seen[doc.ID] = true })
	if !seen["1"] || !seen["2"] {
		t.Errorf("expected Each to visit both documents, got %v", seen)
	}
}

func TestPutRejectsTypeConflict(t *testing.T) {
	idx := NewIndex("products")
	if _, err := idx.Put("1", map[string]any{"age": float64(5)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := idx.Put("2", map[string]any{"age": "not-a-number"}); err == nil {
		t.Error("expected a mapper_parsing_exception coercing a conflicting type")
	}
}

func TestCloneSourceIsolatesCaller(t *testing.T) {
	idx := NewIndex("products")
	src := map[string]any{"name": "widget"}
	_, _ = idx.Put("1", src)

	src["name"] = "mutated-after-the-fact"

	doc, _ := idx.Get("1")
	if doc.Source["name"] != "widget" {
		t.Errorf("expected stored source to be immune to caller mutation, got %+v", doc.Source)
	}
}
