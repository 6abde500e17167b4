package publish_test

import (
	"path/filepath"
	"testing"

	"parcel/internal/project"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

type stubPlugin struct {
	name string
	hook string
}

func (p stubPlugin) Name() string { return p.name }
func (p stubPlugin) Hook() string { return p.hook }

func TestTraversalOrderIsStableAndParentFirst(t *testing.T) {
	tree := publish.NewTree()
	a := tree.Root().CreateItem("file.maya", "Maya File", "a")
	a1 := a.CreateItem("maya.geometry", "Geometry", "a1")
	b := tree.Root().CreateItem("file.texture", "Texture", "b")

	first := tree.Items()
	second := tree.Items()
	if len(first) != 3 {
		t.Fatalf("len = %d, want 3", len(first))
	}
	want := []*publish.Item{a, a1, b}
	for i := range first {
		if first[i] != want[i] || second[i] != want[i] {
			t.Fatalf("traversal order unstable at %d", i)
		}
	}
}

func TestClearKeepsPersistentItems(t *testing.T) {
	tree := publish.NewTree()
	kept := tree.Root().CreateItem("file.texture", "Texture", "kept")
	if err := kept.SetPersistent(true); err != nil {
		t.Fatalf("SetPersistent: %v", err)
	}
	kept.Properties().Set(publish.PropPath, "/proj/tex.jpg")
	kept.AddTask(publish.NewTask(kept, stubPlugin{name: "Publish"}, settings.Values{}))
	tree.Root().CreateItem("maya.session", "Session", "scratch")

	tree.Clear(false)

	items := tree.Items()
	if len(items) != 1 || items[0] != kept {
		t.Fatalf("items after clear = %v", items)
	}
	if len(kept.Tasks()) != 1 || kept.Properties().String(publish.PropPath) == "" {
		t.Fatal("persistent item lost tasks or properties")
	}

	tree.Clear(true)
	if len(tree.Items()) != 0 {
		t.Fatal("clearPersistent should empty the tree")
	}
}

func TestPersistentRequiresTopLevel(t *testing.T) {
	tree := publish.NewTree()
	top := tree.Root().CreateItem("file.maya", "Maya File", "top")
	nested := top.CreateItem("maya.geometry", "Geometry", "nested")
	if err := nested.SetPersistent(true); err == nil {
		t.Fatal("nested item must not accept persistence")
	}
}

func TestContextInheritance(t *testing.T) {
	tree := publish.NewTree()
	top := tree.Root().CreateItem("file.maya", "Maya File", "top")
	top.SetContext(project.Context{Project: "alpha", Entity: "shot010"})
	child := top.CreateItem("maya.geometry", "Geometry", "child")

	if got := child.Context(); got.Entity != "shot010" {
		t.Fatalf("child context = %v, want inherited shot010", got)
	}
	child.SetContext(project.Context{Project: "alpha", Entity: "shot020"})
	if got := child.Context(); got.Entity != "shot020" {
		t.Fatalf("child context = %v, want pinned shot020", got)
	}
	if got := top.Context(); got.Entity != "shot010" {
		t.Fatal("pinning the child must not touch the parent")
	}
}

func TestIsType(t *testing.T) {
	tree := publish.NewTree()
	item := tree.Root().CreateItem("file.texture", "Texture", "tex")
	cases := []struct {
		spec string
		want bool
	}{
		{"file.texture", true},
		{"file.*", true},
		{"*", true},
		{"file.render.*", false},
		{"maya.*", false},
	}
	for _, tc := range cases {
		if got := item.IsType(tc.spec); got != tc.want {
			t.Errorf("IsType(%q) = %v, want %v", tc.spec, got, tc.want)
		}
	}
}

func TestPropertiesMergeDoesNotReplace(t *testing.T) {
	props := publish.Properties{publish.PropPath: "/proj/original.jpg"}
	props.Merge(publish.Properties{publish.PropPath: "/proj/other.jpg", publish.PropIsSequence: true})
	if got := props.String(publish.PropPath); got != "/proj/original.jpg" {
		t.Fatalf("merge replaced an existing key: %q", got)
	}
	if !props.Bool(publish.PropIsSequence) {
		t.Fatal("merge dropped a new key")
	}
}

func TestRemoveItem(t *testing.T) {
	tree := publish.NewTree()
	top := tree.Root().CreateItem("file.maya", "Maya File", "top")
	other := tree.Root().CreateItem("file.texture", "Texture", "other")
	if err := tree.Root().RemoveItem(top); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if tree.Contains(top) {
		t.Fatal("removed item still reachable")
	}
	if err := other.RemoveItem(top); err == nil {
		t.Fatal("removing a non-child should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tree := publish.NewTree()
	top := tree.Root().CreateItem("file.texture", "Texture", "texture.v001.jpg")
	top.SetContext(project.Context{Project: "alpha", Entity: "shotA"})
	if err := top.SetPersistent(true); err != nil {
		t.Fatal(err)
	}
	top.Properties().Set(publish.PropPath, "/proj/shotA/texture.v001.jpg")
	top.Properties().Set(publish.PropIsSequence, false)
	task := publish.NewTask(top, stubPlugin{name: "Publish to Registry", hook: "basic.publish_file"}, settings.Values{})
	task.SetActive(false)
	top.AddTask(task)
	child := top.CreateItem("file.texture.layer", "Layer", "diffuse")
	child.SetChecked(false)

	path := filepath.Join(t.TempDir(), "tree.json")
	if err := tree.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := publish.LoadTree(path)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	items := loaded.Items()
	if len(items) != 2 {
		t.Fatalf("loaded %d items, want 2", len(items))
	}
	got := items[0]
	if got.Name() != "texture.v001.jpg" || !got.Persistent() {
		t.Fatalf("top item = %v persistent=%v", got, got.Persistent())
	}
	if ctx := got.Context(); ctx.Entity != "shotA" {
		t.Fatalf("context = %v", ctx)
	}
	if got.Properties().String(publish.PropPath) != "/proj/shotA/texture.v001.jpg" {
		t.Fatal("properties lost in round trip")
	}
	states := got.SavedTaskStates()
	if len(states) != 1 || states[0].Plugin != "Publish to Registry" || states[0].Active {
		t.Fatalf("saved task states = %v", states)
	}
	if items[1].Checked() {
		t.Fatal("child checked flag lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := publish.LoadTree(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing tree file")
	}
}
