package basic

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"parcel/internal/config"
	"parcel/internal/fileutil"
	"parcel/internal/hook"
	"parcel/internal/logging"
	"parcel/internal/pathinfo"
	"parcel/internal/pipeline"
	"parcel/internal/publish"
	"parcel/internal/registry"
	"parcel/internal/settings"
)

// Property keys private to the file publish plugin.
const (
	propPublishedFiles  = "published_files"
	propPublishInPlace  = "publish_in_place"
	propPublishRecordID = "publish_record_id"
)

// FilePublisher copies an item's file (or frame sequence) into the publish
// root and records it in the registry. Undo removes the copies and the
// registry record.
type FilePublisher struct {
	cfg    *config.Config
	store  *registry.Store
	logger *slog.Logger
}

func NewFilePublisher(cfg *config.Config, store *registry.Store, logger *slog.Logger) *FilePublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FilePublisher{
		cfg:    cfg,
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "publish_file")),
	}
}

func (p *FilePublisher) SettingsSchema() map[string]*settings.Schema {
	return map[string]*settings.Schema{
		"Publish Template": {
			Type:         settings.KindTemplate,
			DefaultValue: "{project}/{entity}/{name}.v{version}.{ext}",
			Description:  "Publish path relative to the publish root. Empty registers the source in place when in-place publishing is enabled.",
		},
		"Publish Type": {
			Type:         settings.KindString,
			DefaultValue: "File",
			Description:  "Published file type recorded in the registry.",
		},
	}
}

func (p *FilePublisher) ItemFilters() []string { return []string{"file.*"} }

// InitTaskSettings swaps the publish type for a more specific one derived
// from the item's taxonomy when the environment left the default in place.
func (p *FilePublisher) InitTaskSettings(_ context.Context, values settings.Values, item *publish.Item) (settings.Values, error) {
	if values.String("Publish Type") == "File" {
		if derived := derivePublishType(item.Type()); derived != "" {
			setting, _ := values.Get("Publish Type")
			if err := setting.SetValue(derived); err != nil {
				return nil, err
			}
		}
	}
	return values, nil
}

// Accept takes on any item carrying a path property.
func (p *FilePublisher) Accept(_ context.Context, _ settings.Values, item *publish.Item) (hook.Acceptance, error) {
	if !item.Properties().Has(publish.PropPath) {
		return hook.Acceptance{}, nil
	}
	return hook.Acceptance{Accepted: true, Enabled: true, Visible: true, Checked: true}, nil
}

// Validate checks the source exists, derives the publish name, version and
// destination path, and stamps them onto the item. A registry record for
// the same (context, name) is a warning; an existing file at the
// destination is a failure.
func (p *FilePublisher) Validate(ctx context.Context, values settings.Values, item *publish.Item) (bool, error) {
	props := item.Properties()
	path := props.String(publish.PropPath)
	if path == "" {
		return false, pipeline.Wrap(pipeline.ErrValidation, "", "validate",
			fmt.Sprintf("item %q has no path property", item.Name()), nil)
	}
	for _, source := range sourceFiles(props) {
		if _, err := os.Stat(source); err != nil {
			return false, pipeline.Wrap(pipeline.ErrValidation, "", "validate",
				fmt.Sprintf("source file missing: %s", source), err)
		}
	}

	pctx := item.Context()
	name := pathinfo.PublishName(path)
	version, err := p.store.NextVersion(ctx, pctx, name)
	if err != nil {
		return false, err
	}
	publishPath, inPlace, err := p.publishPath(values, item, name, version)
	if err != nil {
		return false, err
	}

	props.Set(publish.PropPublishName, name)
	props.Set(publish.PropPublishVersion, version)
	props.Set(publish.PropPublishPath, publishPath)
	props.Set(publish.PropPublishType, values.String("Publish Type"))
	props.Set(propPublishInPlace, inPlace)

	conflicts, err := p.store.Conflicts(ctx, pctx, name)
	if err != nil {
		return false, err
	}
	if len(conflicts) > 0 {
		p.logger.Warn("publishes already registered for this name; a new version will be created",
			logging.String(logging.FieldItem, item.Name()),
			logging.String("publish_name", name),
			logging.Int("existing", len(conflicts)))
	}
	if !inPlace && fileutil.Exists(publishPath) {
		p.logger.Error("destination already exists on disk",
			logging.String(logging.FieldItem, item.Name()),
			logging.String("publish_path", publishPath))
		return false, nil
	}
	return true, nil
}

// Publish copies the source files to the publish path and registers the
// publish. The copied paths and the record id are stamped onto the item so
// Undo can reverse both.
func (p *FilePublisher) Publish(ctx context.Context, values settings.Values, item *publish.Item) error {
	props := item.Properties()
	publishPath := props.String(publish.PropPublishPath)
	if publishPath == "" {
		return pipeline.Wrap(pipeline.ErrValidation, "", "publish",
			fmt.Sprintf("item %q was not validated; no publish path derived", item.Name()), nil)
	}
	var copied []string
	switch {
	case props.Bool(propPublishInPlace):
		// The source is registered where it sits; nothing is copied and
		// undo has no files to remove.
	case props.Bool(publish.PropIsSequence):
		if err := fileutil.EnsureDir(filepath.Dir(publishPath)); err != nil {
			return fmt.Errorf("create publish directory: %w", err)
		}
		for _, source := range props.Strings(publish.PropSequencePaths) {
			frame, ok := pathinfo.FrameNumber(source)
			if !ok {
				return fmt.Errorf("sequence member %s has no frame number", source)
			}
			dest := sequenceFramePath(publishPath, frame)
			if err := fileutil.CopyFileVerified(source, dest); err != nil {
				p.cleanup(copied)
				return fmt.Errorf("copy frame: %w", err)
			}
			copied = append(copied, dest)
		}
	default:
		if err := fileutil.EnsureDir(filepath.Dir(publishPath)); err != nil {
			return fmt.Errorf("create publish directory: %w", err)
		}
		if err := fileutil.CopyFileVerified(props.String(publish.PropPath), publishPath); err != nil {
			return fmt.Errorf("copy file: %w", err)
		}
		copied = append(copied, publishPath)
	}
	props.Set(propPublishedFiles, copied)

	fields := props.Map(publish.PropFields)
	if desc := props.String("description"); desc != "" {
		merged := make(map[string]any, len(fields)+1)
		for key, value := range fields {
			merged[key] = value
		}
		merged["description"] = desc
		fields = merged
	}
	record, err := p.store.RegisterPublish(ctx, registry.RegisterRequest{
		Context:         item.Context(),
		Name:            props.String(publish.PropPublishName),
		Path:            publishPath,
		Version:         props.Int(publish.PropPublishVersion),
		PublishType:     props.String(publish.PropPublishType),
		ThumbnailPath:   props.String("thumbnail_path"),
		DependencyPaths: dependencyPaths(item),
		Fields:          fields,
	})
	if err != nil {
		p.cleanup(copied)
		props.Delete(propPublishedFiles)
		return fmt.Errorf("register publish: %w", err)
	}
	props.Set(propPublishRecordID, record.ID)
	p.logger.Info("published",
		logging.String(logging.FieldItem, item.Name()),
		logging.String("publish_path", publishPath),
		logging.Int("version", record.Version))
	return nil
}

// Finalize logs the completed publish. Registration happened in Publish;
// finalize stays idempotent.
func (p *FilePublisher) Finalize(_ context.Context, _ settings.Values, item *publish.Item) error {
	props := item.Properties()
	if !props.Has(propPublishRecordID) {
		return pipeline.Wrap(pipeline.ErrValidation, "", "finalize",
			fmt.Sprintf("item %q has no publish record; publish did not run", item.Name()), nil)
	}
	p.logger.Info("finalized",
		logging.String(logging.FieldItem, item.Name()),
		logging.String("publish_path", props.String(publish.PropPublishPath)))
	return nil
}

// Undo removes the copied files and deletes the registry record.
func (p *FilePublisher) Undo(ctx context.Context, _ settings.Values, item *publish.Item) error {
	props := item.Properties()
	p.cleanup(props.Strings(propPublishedFiles))
	props.Delete(propPublishedFiles)
	if props.Has(propPublishRecordID) {
		id := int64(props.Int(propPublishRecordID))
		if _, err := p.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete publish record: %w", err)
		}
		props.Delete(propPublishRecordID)
	}
	return nil
}

func (p *FilePublisher) cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("could not remove published file",
				logging.String("path", path),
				logging.Error(err))
		}
	}
}

// publishPath derives the destination from the publish template. An empty
// template means the source is published where it sits, which is only legal
// when in-place publishing is enabled.
func (p *FilePublisher) publishPath(values settings.Values, item *publish.Item, name string, version int) (string, bool, error) {
	path := item.Properties().String(publish.PropPath)
	template := strings.TrimSpace(values.String("Publish Template"))
	if template == "" {
		if !p.cfg.Publish.AllowInPlace {
			return "", false, pipeline.Wrap(pipeline.ErrConfiguration, "", "publish template",
				"empty publish template requires in-place publishing to be enabled", nil)
		}
		return path, true, nil
	}

	fields := item.Context().Fields()
	fields["name"] = strippedName(name)
	fields["version"] = fmt.Sprintf("%0*d", p.cfg.Publish.VersionPadding, version)
	fields["ext"] = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	fields["file"] = filepath.Base(path)

	relative, err := pathinfo.ExpandTemplate(template, fields)
	if err != nil {
		return "", false, pipeline.Wrap(pipeline.ErrConfiguration, "", "publish template", "", err)
	}
	return filepath.Join(p.cfg.Paths.PublishRoot, relative), false, nil
}

// sourceFiles lists the on-disk files backing the item: the sequence
// members for a sequence item, otherwise the single path.
func sourceFiles(props publish.Properties) []string {
	if props.Bool(publish.PropIsSequence) {
		return props.Strings(publish.PropSequencePaths)
	}
	return []string{props.String(publish.PropPath)}
}

// dependencyPaths gathers publish paths already derived on ancestor items,
// so a child publish records what it was published alongside.
func dependencyPaths(item *publish.Item) []string {
	var deps []string
	for parent := item.Parent(); parent != nil; parent = parent.Parent() {
		if path := parent.Properties().String(publish.PropPublishPath); path != "" {
			deps = append(deps, path)
		}
	}
	return deps
}

// strippedName removes the frame token and extension from a publish name so
// it can slot into a path template.
func strippedName(name string) string {
	base := name
	if idx := strings.IndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return strings.TrimRight(base, "#._-")
}

// derivePublishType maps "file.texture" to "Texture".
func derivePublishType(itemType string) string {
	parts := strings.Split(itemType, ".")
	if len(parts) < 2 {
		return ""
	}
	return displayCaser.String(strings.Join(parts[1:], " "))
}

// sequenceFramePath produces the destination for one frame: a '#' run in
// the publish path is replaced by the padded frame number, otherwise the
// frame is inserted before the extension with four-digit padding.
func sequenceFramePath(publishPath string, frame int) string {
	dir := filepath.Dir(publishPath)
	base := filepath.Base(publishPath)
	if width := strings.Count(base, "#"); width > 0 {
		token := fmt.Sprintf("%0*d", width, frame)
		return filepath.Join(dir, strings.Replace(base, strings.Repeat("#", width), token, 1))
	}
	ext := filepath.Ext(base)
	return filepath.Join(dir, fmt.Sprintf("%s.%04d%s", strings.TrimSuffix(base, ext), frame, ext))
}
