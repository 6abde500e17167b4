package registry_test

import (
	"context"
	"path/filepath"
	"testing"

	"parcel/internal/project"
	"parcel/internal/registry"
)

func openTestStore(t *testing.T) *registry.Store {
	t.Helper()
	store, err := registry.OpenPath(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testContext() project.Context {
	return project.Context{Project: "alpha", Entity: "shotA", Step: "surfacing", Task: "texturing"}
}

func TestRegisterAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record, err := store.RegisterPublish(ctx, registry.RegisterRequest{
		Context:         testContext(),
		Name:            "texture",
		Path:            "/publish/shotA/texture.v001.jpg",
		Version:         1,
		PublishType:     "Texture",
		DependencyPaths: []string{"/publish/shotA/scene.v004.ma"},
		Fields:          map[string]any{"colorspace": "sRGB"},
	})
	if err != nil {
		t.Fatalf("RegisterPublish: %v", err)
	}
	if record.ID == 0 || record.CreatedAt.IsZero() {
		t.Fatalf("record not fully populated: %+v", record)
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "texture" || got.Version != 1 || got.Context.Entity != "shotA" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.DependencyPaths) != 1 || got.Fields["colorspace"] != "sRGB" {
		t.Fatalf("JSON columns lost: %+v", got)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.RegisterPublish(ctx, registry.RegisterRequest{Context: testContext(), Path: "/p", Version: 1}); err == nil {
		t.Fatal("missing name should fail")
	}
	if _, err := store.RegisterPublish(ctx, registry.RegisterRequest{Context: testContext(), Name: "n", Path: "/p", Version: 0}); err == nil {
		t.Fatal("version 0 should fail")
	}
}

func TestDuplicateVersionIsRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	req := registry.RegisterRequest{Context: testContext(), Name: "texture", Path: "/p/texture.v001.jpg", Version: 1}
	if _, err := store.RegisterPublish(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := store.RegisterPublish(ctx, req); err == nil {
		t.Fatal("same (context, name, version) twice must violate uniqueness")
	}
}

func TestNextVersionAndConflicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	pctx := testContext()

	v, err := store.NextVersion(ctx, pctx, "texture")
	if err != nil || v != 1 {
		t.Fatalf("NextVersion = %d, %v; want 1", v, err)
	}
	for i := 1; i <= 2; i++ {
		if _, err := store.RegisterPublish(ctx, registry.RegisterRequest{
			Context: pctx, Name: "texture", Path: "/p/texture", Version: i,
		}); err != nil {
			t.Fatalf("register v%d: %v", i, err)
		}
	}
	v, err = store.NextVersion(ctx, pctx, "texture")
	if err != nil || v != 3 {
		t.Fatalf("NextVersion = %d, %v; want 3", v, err)
	}

	conflicts, err := store.Conflicts(ctx, pctx, "texture")
	if err != nil || len(conflicts) != 2 {
		t.Fatalf("Conflicts = %d records, %v; want 2", len(conflicts), err)
	}
	other := pctx
	other.Entity = "shotB"
	conflicts, err = store.Conflicts(ctx, other, "texture")
	if err != nil || len(conflicts) != 0 {
		t.Fatalf("other context should have no conflicts, got %d", len(conflicts))
	}
}

func TestListFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	pctx := testContext()
	seed := []registry.RegisterRequest{
		{Context: pctx, Name: "texture", Path: "/p/t1", Version: 1, PublishType: "Texture"},
		{Context: pctx, Name: "geo", Path: "/p/g1", Version: 1, PublishType: "Geometry"},
	}
	for _, req := range seed {
		if _, err := store.RegisterPublish(ctx, req); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	records, err := store.List(ctx, registry.Filter{Type: "Texture"})
	if err != nil || len(records) != 1 || records[0].Name != "texture" {
		t.Fatalf("List by type = %v, %v", records, err)
	}
	records, err = store.List(ctx, registry.Filter{Project: "alpha"})
	if err != nil || len(records) != 2 {
		t.Fatalf("List by project = %d records", len(records))
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	record, err := store.RegisterPublish(ctx, registry.RegisterRequest{Context: testContext(), Name: "texture", Path: "/p", Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := store.Delete(ctx, record.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	ok, err = store.Delete(ctx, record.ID)
	if err != nil || ok {
		t.Fatal("second delete should report nothing removed")
	}
	got, err := store.GetByID(ctx, record.ID)
	if err != nil || got != nil {
		t.Fatalf("record still present: %+v", got)
	}
}
