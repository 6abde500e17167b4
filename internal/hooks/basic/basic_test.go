package basic_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"parcel/internal/config"
	"parcel/internal/hook"
	"parcel/internal/hooks/basic"
	"parcel/internal/logging"
	"parcel/internal/manager"
	"parcel/internal/pipeline"
	"parcel/internal/project"
	"parcel/internal/publish"
	"parcel/internal/registry"
	"parcel/internal/settings"
	"parcel/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	store *registry.Store
	mgr   *manager.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	reg := hook.NewRegistry()
	basic.Register(reg, cfg, store, logger)

	resolver := settings.NewResolver([]settings.Environment{{
		Name:      "alpha",
		Match:     settings.Match{Project: "alpha"},
		Collector: &settings.PluginDefinition{Hook: basic.CollectorHook},
		PublishPlugins: []settings.PluginDefinition{
			{Name: "Publish to Registry", Hook: basic.PublishHook},
		},
		PostPhase: basic.ReportHook,
	}})

	mgr, err := manager.New(manager.Options{
		Logger:   logger,
		Registry: reg,
		Resolver: resolver,
		Context:  project.Context{Project: "alpha", Entity: "shotA", Step: "surfacing", Task: "texturing"},
	})
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	return &fixture{cfg: cfg, store: store, mgr: mgr}
}

func TestTexturePublishEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := filepath.Join(testsupport.BaseDir(f.cfg), "work", "shotA", "texture.v001.jpg")
	testsupport.WriteFile(t, source, "texture bytes")

	items, err := f.mgr.CollectFiles(ctx, []string{source})
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("collected %d items, want 1", len(items))
	}
	item := items[0]
	if item.Type() != "file.texture" {
		t.Fatalf("item type = %q", item.Type())
	}
	if len(item.Tasks()) != 1 {
		t.Fatalf("tasks = %d, want 1", len(item.Tasks()))
	}

	failures, err := f.mgr.Validate(ctx, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("validate failures: %+v", failures)
	}
	props := item.Properties()
	if got := props.Int(publish.PropPublishVersion); got != 1 {
		t.Fatalf("publish version = %d, want 1", got)
	}
	wantPath := filepath.Join(f.cfg.Paths.PublishRoot, "alpha", "shotA", "texture.v001.jpg")
	if got := props.String(publish.PropPublishPath); got != wantPath {
		t.Fatalf("publish path = %q, want %q", got, wantPath)
	}
	if got := props.String(publish.PropPublishType); got != "Texture" {
		t.Fatalf("publish type = %q, want derived Texture", got)
	}

	if err := f.mgr.Publish(ctx, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	records, err := f.store.List(ctx, registry.Filter{Project: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Version != 1 || records[0].Name != "texture.jpg" {
		t.Fatalf("registry records = %+v", records)
	}

	if err := f.mgr.Finalize(ctx, nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := item.Tasks()[0].Status(); got != publish.StatusFinalized {
		t.Fatalf("task status = %q", got)
	}
}

func TestRepublishWarnsOnRecordFailsOnDiskConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := filepath.Join(testsupport.BaseDir(f.cfg), "work", "texture.v001.jpg")
	testsupport.WriteFile(t, source, "texture bytes")
	if _, err := f.mgr.CollectFiles(ctx, []string{source}); err != nil {
		t.Fatal(err)
	}
	if failures, err := f.mgr.Validate(ctx, nil); err != nil || len(failures) != 0 {
		t.Fatalf("first validate: %v %v", failures, err)
	}
	if err := f.mgr.Publish(ctx, nil); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	// A registry record for the same (context, name) is only a warning:
	// validation passes and derives the next version.
	failures, err := f.mgr.Validate(ctx, nil)
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("conflicting record should warn, not fail: %+v", failures)
	}
	item := f.mgr.Tree().Items()[0]
	if got := item.Properties().Int(publish.PropPublishVersion); got != 2 {
		t.Fatalf("re-validate derived version %d, want 2", got)
	}

	// A file already sitting at the destination is a hard validation
	// failure without an error value.
	blocked := item.Properties().String(publish.PropPublishPath)
	testsupport.WriteFile(t, blocked, "already here")
	failures, err = f.mgr.Validate(ctx, nil)
	if err != nil {
		t.Fatalf("third validate: %v", err)
	}
	if len(failures) != 1 || failures[0].Err != nil {
		t.Fatalf("disk conflict should fail with nil error, got %+v", failures)
	}
}

func TestSequenceCollectionAndPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	renderDir := filepath.Join(testsupport.BaseDir(f.cfg), "renders")
	frames := testsupport.WriteFrames(t, renderDir, "beauty", "exr", 1, 3)

	items, err := f.mgr.CollectFiles(ctx, []string{renderDir})
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("collected %d items, want one sequence", len(items))
	}
	item := items[0]
	if item.Type() != "file.render.sequence" {
		t.Fatalf("item type = %q", item.Type())
	}
	if !item.Properties().Bool(publish.PropIsSequence) {
		t.Fatal("sequence flag not set")
	}
	if got := item.Properties().Strings(publish.PropSequencePaths); len(got) != len(frames) {
		t.Fatalf("sequence paths = %d, want %d", len(got), len(frames))
	}

	if failures, err := f.mgr.Validate(ctx, nil); err != nil || len(failures) != 0 {
		t.Fatalf("validate: %v %v", failures, err)
	}
	if err := f.mgr.Publish(ctx, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	published := item.Properties().Strings("published_files")
	if len(published) != 3 {
		t.Fatalf("published %d frames, want 3", len(published))
	}
	for _, path := range published {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("published frame missing: %v", err)
		}
	}
}

func TestSessionCollectionUsesConfiguredDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "scenes")
	testsupport.WriteFile(t, filepath.Join(sessionDir, "shot.ma"), "maya scene")

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	reg := hook.NewRegistry()
	basic.Register(reg, cfg, store, logger)

	resolver := settings.NewResolver([]settings.Environment{{
		Name:  "alpha",
		Match: settings.Match{Project: "alpha"},
		Collector: &settings.PluginDefinition{
			Hook: basic.CollectorHook,
			Settings: map[string]any{
				"Session Dirs": []any{sessionDir},
			},
		},
		PublishPlugins: []settings.PluginDefinition{
			{Name: "Publish to Registry", Hook: basic.PublishHook},
		},
	}})
	mgr, err := manager.New(manager.Options{
		Logger:   logger,
		Registry: reg,
		Resolver: resolver,
		Context:  project.Context{Project: "alpha", Entity: "shotA", Task: "layout"},
	})
	if err != nil {
		t.Fatal(err)
	}

	items, err := mgr.CollectSession(context.Background())
	if err != nil {
		t.Fatalf("CollectSession: %v", err)
	}
	if len(items) != 1 || items[0].Type() != "file.maya" {
		t.Fatalf("session items = %+v", items)
	}
}

// sessionManager wires a manager whose collector settings come entirely from
// the config, with optional overrides layered in by the environment.
func sessionManager(t *testing.T, cfg *config.Config, collectorSettings map[string]any, publishSettings map[string]any) (*manager.Manager, *registry.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	reg := hook.NewRegistry()
	basic.Register(reg, cfg, store, logger)

	resolver := settings.NewResolver([]settings.Environment{{
		Name:  "alpha",
		Match: settings.Match{Project: "alpha"},
		Collector: &settings.PluginDefinition{
			Hook:     basic.CollectorHook,
			Settings: collectorSettings,
		},
		PublishPlugins: []settings.PluginDefinition{
			{Name: "Publish to Registry", Hook: basic.PublishHook, Settings: publishSettings},
		},
	}})
	mgr, err := manager.New(manager.Options{
		Logger:   logger,
		Registry: reg,
		Resolver: resolver,
		Context:  project.Context{Project: "alpha", Entity: "shotA", Step: "surfacing", Task: "texturing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return mgr, store
}

func TestSessionCollectionDefaultsToConfigDirs(t *testing.T) {
	base := t.TempDir()
	sessionDir := filepath.Join(base, "scenes")
	cfg := testsupport.NewConfig(t, testsupport.WithSessionDirs(sessionDir))
	testsupport.WriteFile(t, filepath.Join(sessionDir, "shot.ma"), "maya scene")

	// No environment-level "Session Dirs"; the configured dirs must apply.
	mgr, _ := sessionManager(t, cfg, nil, nil)
	items, err := mgr.CollectSession(context.Background())
	if err != nil {
		t.Fatalf("CollectSession: %v", err)
	}
	if len(items) != 1 || items[0].Type() != "file.maya" {
		t.Fatalf("session items = %+v", items)
	}
}

func TestSessionCollectionFiltersByConfiguredExtensions(t *testing.T) {
	base := t.TempDir()
	sessionDir := filepath.Join(base, "scenes")
	cfg := testsupport.NewConfig(t,
		testsupport.WithSessionDirs(sessionDir),
		testsupport.WithSessionExtensions(".ma"))
	testsupport.WriteFile(t, filepath.Join(sessionDir, "shot.ma"), "maya scene")
	testsupport.WriteFile(t, filepath.Join(sessionDir, "diffuse.jpg"), "texture")

	mgr, _ := sessionManager(t, cfg, nil, nil)
	items, err := mgr.CollectSession(context.Background())
	if err != nil {
		t.Fatalf("CollectSession: %v", err)
	}
	if len(items) != 1 || items[0].Type() != "file.maya" {
		t.Fatalf("session items = %+v, want only the maya scene", items)
	}
}

func TestInPlacePublishRegistersSourceWithoutCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAllowInPlace())
	source := filepath.Join(testsupport.BaseDir(cfg), "work", "texture.v001.jpg")
	testsupport.WriteFile(t, source, "texture bytes")

	mgr, store := sessionManager(t, cfg, nil, map[string]any{"Publish Template": ""})
	ctx := context.Background()
	if _, err := mgr.CollectFiles(ctx, []string{source}); err != nil {
		t.Fatal(err)
	}
	if failures, err := mgr.Validate(ctx, nil); err != nil || len(failures) != 0 {
		t.Fatalf("validate: %v %v", failures, err)
	}
	if err := mgr.Publish(ctx, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	item := mgr.Tree().Items()[0]
	if got := item.Properties().String(publish.PropPublishPath); got != source {
		t.Fatalf("publish path = %q, want source %q", got, source)
	}
	if published := item.Properties().Strings("published_files"); len(published) != 0 {
		t.Fatalf("in-place publish copied files: %v", published)
	}
	records, err := store.List(ctx, registry.Filter{Project: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Path != source {
		t.Fatalf("registry records = %+v", records)
	}

	// Undo must drop the record but never touch the source.
	plugin := basic.NewFilePublisher(cfg, store, logging.NewNop())
	if err := plugin.Undo(ctx, nil, item); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("source removed by in-place undo: %v", err)
	}
	records, err = store.List(ctx, registry.Filter{Project: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("registry record not removed: %+v", records)
	}
}

func TestEmptyTemplateWithoutInPlaceFailsValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "work", "texture.v001.jpg")
	testsupport.WriteFile(t, source, "texture bytes")

	mgr, _ := sessionManager(t, cfg, nil, map[string]any{"Publish Template": ""})
	ctx := context.Background()
	if _, err := mgr.CollectFiles(ctx, []string{source}); err != nil {
		t.Fatal(err)
	}
	failures, err := mgr.Validate(ctx, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %+v, want 1", failures)
	}
	if !errors.Is(failures[0].Err, pipeline.ErrConfiguration) {
		t.Fatalf("failure error = %v, want configuration error", failures[0].Err)
	}
}

func TestUndoRemovesFilesAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := filepath.Join(testsupport.BaseDir(f.cfg), "work", "texture.v001.jpg")
	testsupport.WriteFile(t, source, "texture bytes")
	if _, err := f.mgr.CollectFiles(ctx, []string{source}); err != nil {
		t.Fatal(err)
	}
	if failures, err := f.mgr.Validate(ctx, nil); err != nil || len(failures) != 0 {
		t.Fatalf("validate: %v %v", failures, err)
	}
	if err := f.mgr.Publish(ctx, nil); err != nil {
		t.Fatal(err)
	}

	item := f.mgr.Tree().Items()[0]
	publishedPath := item.Properties().String(publish.PropPublishPath)

	plugin := basic.NewFilePublisher(f.cfg, f.store, logging.NewNop())
	if err := plugin.Undo(ctx, nil, item); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, err := os.Stat(publishedPath); !os.IsNotExist(err) {
		t.Fatalf("published file still present: %v", err)
	}
	records, err := f.store.List(ctx, registry.Filter{Project: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("registry record not removed: %+v", records)
	}
}
