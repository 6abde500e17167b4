package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates the target path (and parents) with the given contents.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteFrames creates a numbered frame sequence like "name.0001.ext" in dir
// and returns the created paths in frame order.
func WriteFrames(t testing.TB, dir, name, ext string, first, count int) []string {
	t.Helper()

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		frame := first + i
		path := filepath.Join(dir, fmt.Sprintf("%s.%04d.%s", name, frame, ext))
		WriteFile(t, path, fmt.Sprintf("frame %d", frame))
		paths = append(paths, path)
	}
	return paths
}
