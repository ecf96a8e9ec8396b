package mapping

import (
	"testing"

	"github.com/esfake/esfake/internal/value"
)

func TestInferDynamicMapping(t *testing.T) {
	m := New()
	if err := m.Infer("title", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kind, ok := m.FieldKind("title")
	if !ok || kind != value.KindText {
		t.Fatalf("got (%v, %v), want (text, true)", kind, ok)
	}
	kwKind, ok := m.FieldKind("title.keyword")
	if !ok || kwKind != value.KindKeyword {
		t.Fatalf("expected title.keyword to be inferred as keyword, got (%v, %v)", kwKind, ok)
	}
}

func TestInferIntegerVsFloat(t *testing.T) {
	m := New()
	_ = m.Infer("count", float64(3))
	_ = m.Infer("ratio", 3.5)
	if k, _ := m.FieldKind("count"); k != value.KindInteger {
		t.Errorf("got %v, want integer", k)
	}
	if k, _ := m.FieldKind("ratio"); k != value.KindFloat {
		t.Errorf("got %v, want float", k)
	}
}

func TestInferNestedObject(t *testing.T) {
	m := New()
	err := m.Infer("user", map[string]any{"name": "ada", "age": float64(30)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.FieldKind("user.name"); !ok {
		t.Error("expected user.name to be mapped")
	}
	if _, ok := m.FieldKind("user.age"); !ok {
		t.Error("expected user.age to be mapped")
	}
}

func TestInferDisabledWhenDynamicFalse(t *testing.T) {
	m := New()
	m.SetDynamic(false)
	if err := m.Infer("title", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.FieldKind("title"); ok {
		t.Error("expected field to remain unmapped when dynamic mapping is disabled")
	}
}

func TestMergeRejectsConflictingType(t *testing.T) {
	m := New()
	if err := m.Merge(map[string]value.Kind{"age": value.KindInteger}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Merge(map[string]value.Kind{"age": value.KindKeyword}); err == nil {
		t.Error("expected error merging a conflicting type for an existing field")
	}
}

func TestMergeSameTypeIsNoop(t *testing.T) {
	m := New()
	if err := m.Merge(map[string]value.Kind{"age": value.KindInteger}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Merge(map[string]value.Kind{"age": value.KindInteger}); err != nil {
		t.Errorf("expected re-declaring the same type to succeed, got %v", err)
	}
}

func TestMergeRejectsUnknownKind(t *testing.T) {
	m := New()
	if err := m.Merge(map[string]value.Kind{"weird": value.Kind("nested")}); err == nil {
		t.Error("expected error for unknown field kind")
	}
}

func TestMergeAllowsExplicitKeywordOverrideInSameBatch(t *testing.T) {
	m := New()
	err := m.Merge(map[string]value.Kind{
		"title":         value.KindText,
		"title.keyword": value.KindInteger,
	})
	if err != nil {
		t.Fatalf("expected an explicit same-batch override to succeed, got %v", err)
	}
	if k, _ := m.FieldKind("title"); k != value.KindText {
		t.Errorf("got %v, want text", k)
	}
	if k, _ := m.FieldKind("title.keyword"); k != value.KindInteger {
		t.Errorf("got %v, want the overridden integer kind", k)
	}
}

func TestMergeStillRejectsKeywordConflictFromEarlierUpdate(t *testing.T) {
	m := New()
	if err := m.Merge(map[string]value.Kind{"title": value.KindText}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// title.keyword is now synthetically keyword from the first update;
	// declaring it as integer in a later, separate batch (with no text
	// parent in that batch to override it) is a genuine conflict.
	if err := m.Merge(map[string]value.Kind{"title.keyword": value.KindInteger}); err == nil {
		t.Error("expected a later, separate batch to still conflict with the existing synthetic sibling")
	}
}

func TestResolveKeywordMultiField(t *testing.T) {
	m := New()
	_ = m.Merge(map[string]value.Kind{"title": value.KindText})

	kind, storagePath, ok := m.Resolve("title.keyword")
	if !ok {
		t.Fatal("expected title.keyword to resolve")
	}
	if kind != value.KindKeyword {
		t.Errorf("got %v, want keyword", kind)
	}
	if storagePath != "title" {
		t.Errorf("got storage path %q, want %q", storagePath, "title")
	}
}

func TestResolveUnmappedField(t *testing.T) {
	m := New()
	if _, _, ok := m.Resolve("missing"); ok {
		t.Error("expected unmapped field to resolve as not-ok")
	}
}

func TestPropertiesHidesSyntheticKeyword(t *testing.T) {
	m := New()
	_ = m.Merge(map[string]value.Kind{"title": value.KindText})
	props := m.Properties()
	if _, ok := props["title.keyword"]; ok {
		t.Error("expected synthetic title.keyword sibling to be hidden from Properties")
	}
	if _, ok := props["title"]; !ok {
		t.Error("expected title to be present in Properties")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New()
	_ = m.Merge(map[string]value.Kind{"title": value.KindText})
	c := m.Clone()
	_ = c.Merge(map[string]value.Kind{"extra": value.KindKeyword})
	if _, ok := m.FieldKind("extra"); ok {
		t.Error("expected mutating the clone to not affect the original")
	}
}

func TestValidateProperties(t *testing.T) {
	raw := map[string]any{
		"title": map[string]any{"type": "text"},
		"user": map[string]any{
			"properties": map[string]any{
				"age": map[string]any{"type": "integer"},
			},
		},
	}
	props, err := ValidateProperties("", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props["title"] != value.KindText {
		t.Errorf("got %v, want text", props["title"])
	}
	if props["user.age"] != value.KindInteger {
		t.Errorf("got %v, want integer", props["user.age"])
	}
}

func TestValidatePropertiesRejectsUnknownType(t *testing.T) {
	raw := map[string]any{"title": map[string]any{"type": "nested"}}
	if _, err := ValidateProperties("", raw); err == nil {
		t.Error("expected error for unknown mapping type")
	}
}

func TestValidatePropertiesRejectsMissingType(t *testing.T) {
	raw := map[string]any{"title": map[string]any{}}
	if _, err := ValidateProperties("", raw); err == nil {
		t.Error("expected error for mapping missing a type")
	}
}
