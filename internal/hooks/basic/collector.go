package basic

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"parcel/internal/config"
	"parcel/internal/logging"
	"parcel/internal/pathinfo"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

// defaultItemTypes maps lowercase file extensions to item taxonomy types.
// Environments override or extend the map through the "Item Types" setting.
var defaultItemTypes = map[string]any{
	"jpg":  "file.texture",
	"jpeg": "file.texture",
	"png":  "file.texture",
	"tif":  "file.texture",
	"tiff": "file.texture",
	"tx":   "file.texture",
	"exr":  "file.render",
	"dpx":  "file.render",
	"ma":   "file.maya",
	"mb":   "file.maya",
	"nk":   "file.nuke",
	"hip":  "file.houdini",
	"abc":  "file.geometry",
	"usd":  "file.geometry",
	"vdb":  "file.volume",
	"mov":  "file.video",
	"mp4":  "file.video",
}

// Collector is the generic file and session collector. Files become items
// typed by extension; folders are scanned for frame sequences; session
// collection walks the configured session directories.
type Collector struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewCollector(cfg *config.Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "collector")),
	}
}

// SettingsSchema seeds the session settings from the application config, so
// session collection works out of the box; environments can still override
// both per context.
func (c *Collector) SettingsSchema() map[string]*settings.Schema {
	var sessionDirs, sessionExts []string
	if c.cfg != nil {
		sessionDirs = c.cfg.Session.Dirs
		sessionExts = c.cfg.Session.Extensions
	}
	return map[string]*settings.Schema{
		"Item Types": {
			Type:         settings.KindDict,
			Values:       &settings.Schema{Type: settings.KindString},
			DefaultValue: defaultItemTypes,
			Description:  "Maps file extensions to item types.",
		},
		"Session Dirs": {
			Type:         settings.KindList,
			Values:       &settings.Schema{Type: settings.KindString},
			DefaultValue: sessionDirs,
			Description:  "Directories scanned during session collection.",
		},
		"Session Extensions": {
			Type:         settings.KindList,
			Values:       &settings.Schema{Type: settings.KindString},
			DefaultValue: sessionExts,
			Description:  "Restricts session collection to these extensions. Empty collects every recognized type.",
		},
		"Collect Sequences": {
			Type:         settings.KindBool,
			DefaultValue: true,
			Description:  "Group numbered frames in folders into sequence items.",
		},
	}
}

// ProcessFile collects one path. A regular file becomes a single item; a
// folder is scanned for frame sequences and loose files.
func (c *Collector) ProcessFile(_ context.Context, values settings.Values, parent *publish.Item, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return c.collectFolder(values, parent, path, nil)
	}
	c.collectFile(values, parent, path)
	return nil
}

// ProcessCurrentSession walks the configured session directories and
// collects everything in them, restricted to the session extensions when
// any are configured.
func (c *Collector) ProcessCurrentSession(ctx context.Context, values settings.Values, parent *publish.Item) error {
	dirs := values.StringList("Session Dirs")
	if len(dirs) == 0 {
		c.logger.Info("no session directories configured; nothing to collect")
		return nil
	}
	allowed := extensionSet(values.StringList("Session Extensions"))
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			c.logger.Warn("session directory unavailable",
				logging.String("dir", dir),
				logging.Error(err))
			continue
		}
		if err := c.collectFolder(values, parent, dir, allowed); err != nil {
			return err
		}
	}
	return nil
}

// extensionSet normalizes configured extensions (with or without a leading
// dot) into a lookup set. Nil means no restriction.
func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if trimmed != "" {
			set[trimmed] = true
		}
	}
	return set
}

// OnContextChanged re-derives the template fields stamped on the item from
// its (possibly new) context and path.
func (c *Collector) OnContextChanged(_ context.Context, _ settings.Values, item *publish.Item) error {
	path := item.Properties().String(publish.PropPath)
	fields := item.Context().Fields()
	if path != "" {
		fields["name"] = pathinfo.PublishName(path)
		if version, ok := pathinfo.VersionNumber(path); ok {
			fields["version"] = fmt.Sprintf("%d", version)
		}
		fields["ext"] = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	item.Properties().Set(publish.PropFields, fields)
	return nil
}

func (c *Collector) collectFolder(values settings.Values, parent *publish.Item, folder string, allowed map[string]bool) error {
	types := values.StringMap("Item Types")
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("read folder %s: %w", folder, err)
	}

	inSequence := make(map[string]bool)
	if values.Bool("Collect Sequences") {
		var extensions []string
		for ext := range types {
			if allowed != nil && !allowed[ext] {
				continue
			}
			extensions = append(extensions, "."+ext)
		}
		sequences, err := pathinfo.FrameSequences(folder, extensions)
		if err != nil {
			return err
		}
		for _, seq := range sequences {
			c.collectSequence(values, parent, seq)
			for _, frame := range seq.Paths {
				inSequence[frame] = true
			}
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if inSequence[path] {
			continue
		}
		ext := extensionOf(path)
		if _, ok := types[ext]; !ok {
			continue
		}
		if allowed != nil && !allowed[ext] {
			continue
		}
		c.collectFile(values, parent, path)
	}
	return nil
}

func (c *Collector) collectFile(values settings.Values, parent *publish.Item, path string) {
	itemType := c.itemTypeFor(values, path)
	item := parent.CreateItem(itemType, typeDisplay(itemType), filepath.Base(path))
	item.Properties().Set(publish.PropPath, path)
	item.Properties().Set(publish.PropIsSequence, false)
	c.logger.Info("collected file",
		logging.String(logging.FieldItem, item.Name()),
		logging.String(logging.FieldItemType, itemType))
}

func (c *Collector) collectSequence(values settings.Values, parent *publish.Item, seq pathinfo.FrameSequence) {
	itemType := c.itemTypeFor(values, seq.Pattern) + ".sequence"
	item := parent.CreateItem(itemType, typeDisplay(itemType), filepath.Base(seq.Pattern))
	item.Properties().Set(publish.PropPath, seq.Pattern)
	item.Properties().Set(publish.PropIsSequence, true)
	item.Properties().Set(publish.PropSequencePaths, seq.Paths)
	c.logger.Info("collected sequence",
		logging.String(logging.FieldItem, item.Name()),
		logging.Int("frames", len(seq.Paths)))
}

func (c *Collector) itemTypeFor(values settings.Values, path string) string {
	if itemType, ok := values.StringMap("Item Types")[extensionOf(path)]; ok {
		return itemType
	}
	return "file.unknown"
}

func extensionOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

var displayCaser = cases.Title(language.English)

// typeDisplay turns "file.texture.sequence" into "Texture Sequence".
func typeDisplay(itemType string) string {
	parts := strings.Split(itemType, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return displayCaser.String(strings.Join(parts, " "))
}
