package hook_test

import (
	"context"
	"errors"
	"testing"

	"parcel/internal/hook"
	"parcel/internal/logging"
	"parcel/internal/pipeline"
	"parcel/internal/project"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

type fakePlugin struct {
	filters []string
	schema  map[string]*settings.Schema

	acceptance  hook.Acceptance
	acceptErr   error
	validateOK  bool
	validateErr error
	publishErr  error
	finalizeErr error
	undoErr     error
	panicOn     string

	calls []string
}

func (f *fakePlugin) SettingsSchema() map[string]*settings.Schema {
	if f.schema == nil {
		return map[string]*settings.Schema{}
	}
	return f.schema
}

func (f *fakePlugin) ItemFilters() []string { return f.filters }

func (f *fakePlugin) InitTaskSettings(_ context.Context, values settings.Values, _ *publish.Item) (settings.Values, error) {
	f.calls = append(f.calls, "init")
	return values, nil
}

func (f *fakePlugin) Accept(context.Context, settings.Values, *publish.Item) (hook.Acceptance, error) {
	f.calls = append(f.calls, "accept")
	if f.panicOn == "accept" {
		panic("accept blew up")
	}
	return f.acceptance, f.acceptErr
}

func (f *fakePlugin) Validate(context.Context, settings.Values, *publish.Item) (bool, error) {
	f.calls = append(f.calls, "validate")
	return f.validateOK, f.validateErr
}

func (f *fakePlugin) Publish(context.Context, settings.Values, *publish.Item) error {
	f.calls = append(f.calls, "publish")
	return f.publishErr
}

func (f *fakePlugin) Finalize(context.Context, settings.Values, *publish.Item) error {
	f.calls = append(f.calls, "finalize")
	return f.finalizeErr
}

func (f *fakePlugin) Undo(context.Context, settings.Values, *publish.Item) error {
	f.calls = append(f.calls, "undo")
	return f.undoErr
}

func linkedItem(t *testing.T) *publish.Item {
	t.Helper()
	tree := publish.NewTree()
	item := tree.Root().CreateItem("file.texture", "Texture", "tex")
	item.SetContext(project.Context{Project: "alpha", Entity: "shotA", Task: "texturing"})
	return item
}

func newInstance(t *testing.T, impl hook.PublishPlugin) *hook.PublishInstance {
	t.Helper()
	inst, err := hook.NewPublishInstance("Publish to Registry", "basic.publish_file", impl, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	return inst
}

func TestMatchesItemFilters(t *testing.T) {
	inst := newInstance(t, &fakePlugin{filters: []string{"file.*"}})
	tree := publish.NewTree()
	tex := tree.Root().CreateItem("file.texture", "Texture", "tex")
	layer := tree.Root().CreateItem("file.texture.layer", "Layer", "diffuse")
	session := tree.Root().CreateItem("maya.session", "Session", "scene")
	if !inst.Matches(tex) || !inst.Matches(layer) {
		t.Fatal("file.* should match file-rooted types")
	}
	if inst.Matches(session) {
		t.Fatal("file.* must not match maya.session")
	}
	open := newInstance(t, &fakePlugin{})
	if !open.Matches(session) {
		t.Fatal("plugin without filters should match everything")
	}
}

func TestAcceptErrorIsRejection(t *testing.T) {
	impl := &fakePlugin{acceptErr: errors.New("boom"), acceptance: hook.Acceptance{Accepted: true}}
	inst := newInstance(t, impl)
	got := inst.RunAccept(context.Background(), inst.Settings(), linkedItem(t))
	if got.Accepted {
		t.Fatal("accept error must convert to a rejection")
	}
}

func TestAcceptPanicIsRejection(t *testing.T) {
	impl := &fakePlugin{panicOn: "accept", acceptance: hook.Acceptance{Accepted: true}}
	inst := newInstance(t, impl)
	got := inst.RunAccept(context.Background(), inst.Settings(), linkedItem(t))
	if got.Accepted {
		t.Fatal("accept panic must convert to a rejection")
	}
}

func TestValidateRefusesUnlinkedContext(t *testing.T) {
	impl := &fakePlugin{validateOK: true}
	inst := newInstance(t, impl)
	tree := publish.NewTree()
	item := tree.Root().CreateItem("file.texture", "Texture", "tex")
	item.SetContext(project.Context{Project: "alpha", Entity: "shotA"})
	task := publish.NewTask(item, inst, inst.Settings())

	ok, err := inst.RunValidate(context.Background(), task)
	if ok {
		t.Fatal("unlinked context must not validate")
	}
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	for _, call := range impl.calls {
		if call == "validate" {
			t.Fatal("hook must not run for an unlinked context")
		}
	}
}

func TestValidateErrorIsReturned(t *testing.T) {
	impl := &fakePlugin{validateErr: errors.New("missing frames")}
	inst := newInstance(t, impl)
	task := publish.NewTask(linkedItem(t), inst, inst.Settings())
	ok, err := inst.RunValidate(context.Background(), task)
	if ok || !errors.Is(err, pipeline.ErrValidation) {
		t.Fatalf("ok=%v err=%v, want validation error", ok, err)
	}
}

func TestValidateFalseWithoutErrorIsNotAnError(t *testing.T) {
	inst := newInstance(t, &fakePlugin{validateOK: false})
	task := publish.NewTask(linkedItem(t), inst, inst.Settings())
	ok, err := inst.RunValidate(context.Background(), task)
	if ok || err != nil {
		t.Fatalf("ok=%v err=%v, want false with nil error", ok, err)
	}
}

func TestPublishErrorIsReturned(t *testing.T) {
	inst := newInstance(t, &fakePlugin{publishErr: errors.New("disk full")})
	task := publish.NewTask(linkedItem(t), inst, inst.Settings())
	if err := inst.RunPublish(context.Background(), task); !errors.Is(err, pipeline.ErrHook) {
		t.Fatalf("err = %v, want ErrHook", err)
	}
}

func TestUndoErrorIsSwallowed(t *testing.T) {
	impl := &fakePlugin{undoErr: errors.New("already gone")}
	inst := newInstance(t, impl)
	task := publish.NewTask(linkedItem(t), inst, inst.Settings())
	inst.RunUndo(context.Background(), task)
	if len(impl.calls) == 0 || impl.calls[len(impl.calls)-1] != "undo" {
		t.Fatal("undo was not invoked")
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := hook.NewRegistry()
	reg.RegisterPublishPlugin("basic.publish_file", func() hook.PublishPlugin { return &fakePlugin{} })

	first, err := reg.NewPublishPlugin("basic.publish_file")
	if err != nil {
		t.Fatalf("NewPublishPlugin: %v", err)
	}
	second, _ := reg.NewPublishPlugin("basic.publish_file")
	if first == second {
		t.Fatal("registry must build fresh hook values")
	}
	if _, err := reg.NewCollector("missing"); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestBadItemFilterIsConfigurationError(t *testing.T) {
	_, err := hook.NewPublishInstance("p", "h", &fakePlugin{filters: []string{"[unclosed"}}, nil, logging.NewNop())
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
