package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"parcel/internal/pipeline"
	"parcel/internal/project"
	"parcel/internal/settings"
)

func TestResolveAppliesDefaults(t *testing.T) {
	schema := map[string]*settings.Schema{
		"File Types": {Type: settings.KindList, DefaultValue: []any{"exr", "tif"}},
		"Publish":    {Type: settings.KindBool, DefaultValue: true},
	}
	values, err := settings.Resolve(schema, map[string]any{"Publish": false})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := values.StringList("File Types"); len(got) != 2 || got[0] != "exr" {
		t.Fatalf("File Types = %v, want default [exr tif]", got)
	}
	if values.Bool("Publish") {
		t.Fatal("configured value should override the default")
	}
}

func TestResolveRejectsUndeclaredKey(t *testing.T) {
	_, err := settings.Resolve(map[string]*settings.Schema{"Known": {Type: settings.KindString}}, map[string]any{"Unknown": "x"})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestResolveRejectsTypeMismatch(t *testing.T) {
	_, err := settings.Resolve(map[string]*settings.Schema{"Padding": {Type: settings.KindInt}}, map[string]any{"Padding": "three"})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestStrictDictRejectsUndeclaredSubKey(t *testing.T) {
	schema := &settings.Schema{
		Type: settings.KindDict,
		Items: map[string]*settings.Schema{
			"host": {Type: settings.KindString},
			"port": {Type: settings.KindInt},
		},
	}
	_, err := settings.New("Server", map[string]any{"host": "a", "proto": "tcp"}, schema)
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestStrictDictFillsDeclaredChildren(t *testing.T) {
	schema := &settings.Schema{
		Type: settings.KindDict,
		Items: map[string]*settings.Schema{
			"host": {Type: settings.KindString, DefaultValue: "localhost"},
			"port": {Type: settings.KindInt, DefaultValue: 8080},
		},
	}
	s, err := settings.New("Server", map[string]any{"port": 9000}, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host, ok := s.Child("host")
	if !ok || host.StringValue() != "localhost" {
		t.Fatalf("host child = %v, want default localhost", host)
	}
	port, _ := s.Child("port")
	if port.IntValue() != 9000 {
		t.Fatalf("port = %d, want 9000", port.IntValue())
	}
}

func TestDictChildrenRebuiltOnSetValue(t *testing.T) {
	schema := &settings.Schema{Type: settings.KindDict, Values: &settings.Schema{Type: settings.KindString}}
	s, err := settings.New("Mapping", map[string]any{"a": "1"}, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	old, _ := s.Child("a")
	if err := s.SetValue(map[string]any{"b": "2", "c": "3"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if _, ok := s.Child("a"); ok {
		t.Fatal("stale child survived reassignment")
	}
	b, ok := s.Child("b")
	if !ok || b.StringValue() != "2" {
		t.Fatalf("child b = %v, want 2", b)
	}
	if got := s.Keys(); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Keys = %v", got)
	}
	if old.StringValue() != "1" {
		t.Fatal("detached child should keep its old value")
	}
}

func TestListChildren(t *testing.T) {
	schema := &settings.Schema{Type: settings.KindList, Values: &settings.Schema{Type: settings.KindString}}
	s, err := settings.New("Dirs", []any{"in", "out"}, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if got := s.Index(1).StringValue(); got != "out" {
		t.Fatalf("Index(1) = %q, want out", got)
	}
	if s.Index(5) != nil {
		t.Fatal("out-of-range index should return nil")
	}
}

func TestCloneIsDeep(t *testing.T) {
	schema := &settings.Schema{Type: settings.KindDict, Values: &settings.Schema{Type: settings.KindString}}
	s, err := settings.New("Mapping", map[string]any{"a": "1"}, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clone := s.Clone()
	if err := clone.SetValue(map[string]any{"a": "changed"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	orig, _ := s.Child("a")
	if orig.StringValue() != "1" {
		t.Fatal("mutating the clone leaked into the original")
	}
}

func TestCacheCopiesOnGet(t *testing.T) {
	cache := settings.NewCache()
	ctx := project.Context{Project: "alpha", Entity: "shot010"}
	baseline, err := settings.Resolve(map[string]*settings.Schema{"Name": {Type: settings.KindString, DefaultValue: "base"}}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cache.Add("publish_file", ctx, baseline)

	first, ok := cache.Get("publish_file", ctx)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if err := first["Name"].SetValue("mutated"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	second, _ := cache.Get("publish_file", ctx)
	if got := second.String("Name"); got != "base" {
		t.Fatalf("cached baseline mutated through a copy: %q", got)
	}
	if _, ok := cache.Get("publish_file", project.Context{Project: "alpha", Entity: "shot020"}); ok {
		t.Fatal("different context should miss")
	}
}

func TestResolverSpecificity(t *testing.T) {
	r := settings.NewResolver([]settings.Environment{
		{Name: "project-wide", Match: settings.Match{Project: "alpha"}, PostPhase: "report"},
		{Name: "shot", Match: settings.Match{Project: "alpha", Entity: "shot010"}},
	})
	env, err := r.EnvironmentFor(project.Context{Project: "alpha", Entity: "shot010"})
	if err != nil {
		t.Fatalf("EnvironmentFor: %v", err)
	}
	if env.Name != "shot" {
		t.Fatalf("env = %q, want shot", env.Name)
	}
	env, err = r.EnvironmentFor(project.Context{Project: "alpha", Entity: "shot020"})
	if err != nil {
		t.Fatalf("EnvironmentFor: %v", err)
	}
	if env.Name != "project-wide" {
		t.Fatalf("env = %q, want project-wide", env.Name)
	}
}

func TestResolverAmbiguityIsAnError(t *testing.T) {
	r := settings.NewResolver([]settings.Environment{
		{Name: "one", Match: settings.Match{Project: "alpha"}},
		{Name: "two", Match: settings.Match{Project: "alpha"}},
	})
	_, err := r.EnvironmentFor(project.Context{Project: "alpha"})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestResolverNoMatch(t *testing.T) {
	r := settings.NewResolver([]settings.Environment{{Name: "one", Match: settings.Match{Project: "alpha"}}})
	_, err := r.EnvironmentFor(project.Context{Project: "beta"})
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestLoadResolver(t *testing.T) {
	dir := t.TempDir()
	doc := `
match:
  project: alpha
collector:
  hook: basic.collector
  settings:
    Session Dirs: [renders]
publish_plugins:
  - name: Publish to Registry
    hook: basic.publish_file
post_phase: basic.report
`
	if err := os.WriteFile(filepath.Join(dir, "alpha.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := settings.LoadResolver(dir)
	if err != nil {
		t.Fatalf("LoadResolver: %v", err)
	}
	ctx := project.Context{Project: "alpha"}
	collector, err := r.CollectorDefinition(ctx)
	if err != nil {
		t.Fatalf("CollectorDefinition: %v", err)
	}
	if collector.Hook != "basic.collector" {
		t.Fatalf("collector hook = %q", collector.Hook)
	}
	plugins, err := r.PluginDefinitions(ctx)
	if err != nil || len(plugins) != 1 || plugins[0].Name != "Publish to Registry" {
		t.Fatalf("plugins = %v, err = %v", plugins, err)
	}
	post, err := r.PostPhaseHook(ctx)
	if err != nil || post != "basic.report" {
		t.Fatalf("post-phase = %q, err = %v", post, err)
	}
}
