package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestOrganizer(t *testing.T, opts Options, meta MetadataClient) *Organizer {
	t.Helper()
	org, err := NewOrganizer(testConfig(), opts, meta, NewArchiveExtractor(), nil)
	if err != nil {
		t.Fatalf("NewOrganizer failed: %v", err)
	}
	return org
}

func TestRun_EmbeddedTagWins(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	photo := filepath.Join(source, "IMG_0001.jpg")
	writeTestFile(t, photo, "photo bytes")
	writeTestFile(t, photo+".json", `{"photoTakenTime":{"timestamp":"946684800"}}`)

	meta := newFakeMetadata()
	meta.setTag(photo, TagImageTaken, "2021-05-03 10:00:00")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 2}, meta)
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	moved := filepath.Join(target, "2021", "05", "IMG_0001.jpg")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("Expected %s to exist: %v", moved, err)
	}
	// The tag wins over the sidecar, but the sidecar still travels along.
	if _, err := os.Stat(filepath.Join(target, "2021", "05", "IMG_0001.jpg.json")); err != nil {
		t.Errorf("Sidecar was not moved with the item: %v", err)
	}
	if _, err := os.Stat(photo); !os.IsNotExist(err) {
		t.Error("Source file still present after move")
	}
	if got := org.Stats().Moved.Load(); got != 1 {
		t.Errorf("Expected 1 move, got %d", got)
	}
}

func TestRun_FilenamePatternFallback(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTestFile(t, filepath.Join(source, "VID_20200714_153000.mp4"), "video bytes")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	moved := filepath.Join(target, "2020", "07", "VID_20200714_153000.mp4")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("Expected %s to exist: %v", moved, err)
	}
}

func TestRun_NoDateSkips(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	photo := filepath.Join(source, "mystery.jpg")
	writeTestFile(t, photo, "photo bytes")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(photo); err != nil {
		t.Errorf("Skipped file must stay at its source: %v", err)
	}
	if got := org.Stats().Skipped.Load(); got != 1 {
		t.Errorf("Expected 1 skip, got %d", got)
	}
	if got := org.Stats().Moved.Load(); got != 0 {
		t.Errorf("Expected no moves, got %d", got)
	}
}

func TestRun_DuplicateHandling(t *testing.T) {
	for _, removeDuplicates := range []bool{false, true} {
		name := "keep source"
		if removeDuplicates {
			name = "remove source"
		}
		t.Run(name, func(t *testing.T) {
			source := t.TempDir()
			target := t.TempDir()

			photo := filepath.Join(source, "IMG_20210503_100000.jpg")
			writeTestFile(t, photo, "identical bytes")
			existing := filepath.Join(target, "2021", "05", "IMG_20210503_100000.jpg")
			writeTestFile(t, existing, "identical bytes")

			org := newTestOrganizer(t, Options{
				Source:           source,
				Target:           target,
				RemoveDuplicates: removeDuplicates,
				Workers:          1,
			}, newFakeMetadata())
			if err := org.Run(); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if _, err := os.Stat(existing); err != nil {
				t.Errorf("Destination must survive untouched: %v", err)
			}
			_, err := os.Stat(photo)
			if removeDuplicates && !os.IsNotExist(err) {
				t.Error("Source duplicate should have been removed")
			}
			if !removeDuplicates && err != nil {
				t.Errorf("Source duplicate should have been left in place: %v", err)
			}
			if got := org.Stats().Duplicates.Load(); got != 1 {
				t.Errorf("Expected 1 duplicate, got %d", got)
			}
		})
	}
}

func TestRun_SizeConflictQuarantines(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	photo := filepath.Join(source, "IMG_20210503_100000.jpg")
	writeTestFile(t, photo, "short")
	existing := filepath.Join(target, "2021", "05", "IMG_20210503_100000.jpg")
	writeTestFile(t, existing, "a longer existing payload")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(existing); err != nil {
		t.Errorf("Existing file must survive: %v", err)
	}
	quarantined := filepath.Join(target, "2021", "05", ConflictsDirName, "IMG_20210503_100000.jpg")
	if _, err := os.Stat(quarantined); err != nil {
		t.Errorf("Expected quarantined copy at %s: %v", quarantined, err)
	}
}

func TestRun_HashConflictRenames(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	photo := filepath.Join(source, "IMG_20210503_100000.jpg")
	writeTestFile(t, photo, "payload-A")
	existing := filepath.Join(target, "2021", "05", "IMG_20210503_100000.jpg")
	writeTestFile(t, existing, "payload-B")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	content, err := os.ReadFile(existing)
	if err != nil || string(content) != "payload-B" {
		t.Errorf("Existing file was modified: %q, %v", content, err)
	}

	entries, err := os.ReadDir(filepath.Join(target, "2021", "05"))
	if err != nil {
		t.Fatal(err)
	}
	var renamed string
	for _, e := range entries {
		name := e.Name()
		if name != "IMG_20210503_100000.jpg" && name != "media_organizer.log" && !e.IsDir() {
			renamed = name
		}
	}
	if renamed == "" {
		t.Fatal("Conflicting file was not placed beside the occupant")
	}
	if !strings.Contains(renamed, "_copy_") {
		t.Errorf("Renamed file %s missing _copy_ token", renamed)
	}
}

func TestRun_ConcurrentSameNameKeepsEveryFile(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	// Same name, same resolved month, equal sizes: every pair of workers
	// contends for the identical destination path, and every conflict
	// rename is synthesized within the same wall-clock second.
	payloads := []string{"payload-A", "payload-B", "payload-C", "payload-D"}
	for i, payload := range payloads {
		writeTestFile(t, filepath.Join(source, fmt.Sprintf("card%d", i), "IMG_20210503_100000.jpg"), payload)
	}

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: len(payloads)}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := make(map[string]string) // content -> path
	filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || strings.HasPrefix(info.Name(), "media_organizer.log") {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			t.Fatal(readErr)
		}
		if prev, dup := found[string(content)]; dup {
			t.Errorf("Content %q present twice: %s and %s", content, prev, path)
		}
		found[string(content)] = path
		return nil
	})

	if len(found) != len(payloads) {
		t.Fatalf("Expected %d files in target, got %d: %v", len(payloads), len(found), found)
	}
	for _, payload := range payloads {
		if found[payload] == "" {
			t.Errorf("Payload %q was silently destroyed", payload)
		}
	}
	if _, err := os.Stat(filepath.Join(target, "2021", "05", "IMG_20210503_100000.jpg")); err != nil {
		t.Errorf("Plain destination path missing: %v", err)
	}
	for i := range payloads {
		src := filepath.Join(source, fmt.Sprintf("card%d", i), "IMG_20210503_100000.jpg")
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Errorf("Source %s was not relocated", src)
		}
	}
}

func TestRun_PreviewMutatesNothing(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	photo := filepath.Join(source, "IMG_20210503_100000.jpg")
	writeTestFile(t, photo, "photo bytes")
	writeTestFile(t, photo+".json", `{"photoTakenTime":{"timestamp":"1620028800"}}`)

	org := newTestOrganizer(t, Options{Source: source, Target: target, Preview: true, Workers: 2}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(photo); err != nil {
		t.Errorf("Preview must not move the source: %v", err)
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Preview must not write into the target, found %d entries", len(entries))
	}
	// Classification still happened.
	if got := org.Stats().Moved.Load(); got != 1 {
		t.Errorf("Preview should classify the move, got %d", got)
	}
}

func TestRun_CyrillicNameTransliterated(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTestFile(t, filepath.Join(source, "отпуск_20210503_100000.jpg"), "photo bytes")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	moved := filepath.Join(target, "2021", "05", "otpusk_20210503_100000.jpg")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("Expected transliterated destination %s: %v", moved, err)
	}
}

func TestRun_RemovesEmptySourceDirs(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	nested := filepath.Join(source, "camera", "roll")
	writeTestFile(t, filepath.Join(nested, "IMG_20210503_100000.jpg"), "photo bytes")
	keeper := filepath.Join(source, "keep")
	writeTestFile(t, filepath.Join(keeper, "notes.txt"), "not media")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, newFakeMetadata())
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(nested); !os.IsNotExist(err) {
		t.Error("Emptied nested directory was not removed")
	}
	if _, err := os.Stat(filepath.Join(source, "camera")); !os.IsNotExist(err) {
		t.Error("Emptied parent directory was not removed")
	}
	if _, err := os.Stat(keeper); err != nil {
		t.Errorf("Non-empty directory must survive: %v", err)
	}
}

func TestRun_RestampNormalizesTimestamps(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	photo := filepath.Join(source, "IMG_0001.jpg")
	writeTestFile(t, photo, "photo bytes")

	meta := newFakeMetadata()
	meta.setTag(photo, TagImageTaken, "2021-05-03 10:00:00")

	org := newTestOrganizer(t, Options{Source: source, Target: target, Workers: 1}, meta)
	if err := org.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	moved := filepath.Join(target, "2021", "05", "IMG_0001.jpg")
	info, err := os.Stat(moved)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2021, 5, 3, 10, 0, 0, 0, time.Local)
	if !info.ModTime().Truncate(time.Second).Equal(want) {
		t.Errorf("Expected mtime %v, got %v", want, info.ModTime())
	}
	if meta.stamped[moved] != "2021-05-03 10:00:00" {
		t.Errorf("Embedded tag was not re-stamped: %q", meta.stamped[moved])
	}
}
