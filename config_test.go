package portals

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigOverlaysDefaults(t *testing.T) {
	c, err := ParseConfig([]byte("close_delay_ticks: 12\nstorage:\n  driver: sqlite\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := DefaultConfig()
	want.CloseDelay = 12
	want.Storage.Driver = "sqlite"
	if c != want {
		t.Fatalf("got %+v\nwant %+v", c, want)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	c, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != DefaultConfig() {
		t.Fatalf("empty config should equal the defaults")
	}
}

func TestParseConfigRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "close_delay: 3\n",
		"unknown driver":    "storage:\n  driver: redis\n",
		"wrong type":        "max_charge: lots\n",
		"negative":          "close_delay_ticks: -1\n",
		"delay past cool":   "player_teleport_delay_ticks: 40\n",
		"inverted bounds":   "bounds:\n  min_y: 10\n  max_y: 0\n",
		"unknown bound key": "bounds:\n  height: 10\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("got %v, want a not exist error", err)
	}
}

func TestSetConfigValidates(t *testing.T) {
	te := newTestEngine(t)
	bad := DefaultConfig()
	bad.Storage.Driver = "redis"
	if err := te.SetConfig(bad); err == nil {
		t.Fatalf("expected error")
	}
	good := DefaultConfig()
	good.CloseDelay = 3
	if err := te.SetConfig(good); err != nil {
		t.Fatalf("set config: %v", err)
	}
	if te.Config().CloseDelay != 3 {
		t.Fatalf("config not applied")
	}
}

func TestWatchConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	if err := os.WriteFile(path, []byte("close_delay_ticks: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	replaceFile(t, path, "close_delay_ticks: 7\n")
	select {
	case c := <-w.Configs:
		if c.CloseDelay != 7 {
			t.Fatalf("reloaded close delay: got %d, want 7", c.CloseDelay)
		}
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload")
	}
}

func TestWatchConfigLoadsLastWriteOfBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	if err := os.WriteFile(path, []byte("close_delay_ticks: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	// A half written file followed right away by the full one.
	if err := os.WriteFile(path, []byte("close_delay_ti"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	replaceFile(t, path, "close_delay_ticks: 9\n")

	select {
	case c := <-w.Configs:
		if c.CloseDelay != 9 {
			t.Fatalf("reloaded close delay: got %d, want 9", c.CloseDelay)
		}
	case err := <-w.Errors:
		t.Fatalf("partial file loaded: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload")
	}
}

func TestWatchConfigReportsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	w, err := WatchConfig(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	replaceFile(t, path, "close_delay: 7\n")
	select {
	case c := <-w.Configs:
		t.Fatalf("bad config accepted: %+v", c)
	case err := <-w.Errors:
		if !strings.Contains(err.Error(), "config") {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no error reported")
	}
}

// replaceFile swaps data in at path with a rename, the way editors save.
func replaceFile(t *testing.T, path, data string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
}
