package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirStore(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	sink, err := NewDir(filepath.Join(base, "artifacts"))
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Store("scan-1", KindScreenshot, []byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "artifacts", "scan-1.screenshot.png"))
	if err != nil {
		t.Fatalf("artifact file missing: %v", err)
	}
	if len(data) != 4 {
		t.Errorf("stored %d bytes, want 4", len(data))
	}
}

func TestDirStoreLastWriteWins(t *testing.T) {
	t.Parallel()

	sink, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Store("s", KindNetworkLog, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := sink.Store("s", KindNetworkLog, []byte("two")); err != nil {
		t.Fatalf("duplicate Store() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(sink.Base, "s.network_log.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("got %q, want last write", data)
	}
}

func TestDirStoreSanitizesScanID(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	sink, err := NewDir(filepath.Join(base, "safe"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Store("../../escape", KindScreenshot, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "safe", "escape.screenshot.png")); err != nil {
		t.Errorf("artifact not confined to base dir: %v", err)
	}
}

func TestDirStoreUnknownKind(t *testing.T) {
	t.Parallel()

	sink, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Store("s", Kind("har"), nil); err == nil {
		t.Error("Store() with unknown kind should error")
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	if err := (Discard{}).Store("any", KindScreenshot, []byte("x")); err != nil {
		t.Errorf("Discard.Store() error = %v", err)
	}
}
