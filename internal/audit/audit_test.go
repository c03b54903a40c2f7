package audit

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/syncany/internal/configs"
)

func newInitializedDir(t *testing.T) configs.AppDir {
	t.Helper()
	dir, err := configs.NewAppDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAppDir failed: %v", err)
	}
	if _, err := dir.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return dir
}

func TestLog_AppendsEntries(t *testing.T) {
	dir := newInitializedDir(t)
	cfg := &configs.Config{MachineName: "laptop-1234abcd", DisplayName: "alice"}

	entry := NewEntry(OpInit, cfg)
	entry.RepoID = "repo-1"
	entry.Encrypted = true
	Log(dir, entry)
	Log(dir, NewEntry(OpGenLink, cfg))
	Log(dir, NewEntry(OpConnect, nil))

	entries, err := ReadEntries(dir)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Operation != OpInit || entries[0].RepoID != "repo-1" || !entries[0].Encrypted {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[0].Machine != "laptop-1234abcd" || entries[0].DisplayName != "alice" {
		t.Errorf("Expected machine fields from config, got %+v", entries[0])
	}
	if entries[2].Machine != "" {
		t.Errorf("Expected empty machine without config, got %q", entries[2].Machine)
	}

	info, err := os.Stat(dir.AuditFile())
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %v", info.Mode().Perm())
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	dir := newInitializedDir(t)
	Log(dir, Entry{Operation: OpEncode})

	entries, err := ReadEntries(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one entry, got %v (%v)", entries, err)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000000Z", entries[0].Timestamp); err != nil {
		t.Errorf("Expected microsecond UTC timestamp, got %q", entries[0].Timestamp)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	dir := newInitializedDir(t)
	Log(dir, Entry{Operation: OpDecode, File: "repo.toml"})

	data, err := os.ReadFile(dir.AuditFile())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &raw); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	for _, field := range []string{"repo_id", "plugin", "encrypted", "read_only", "transformer"} {
		if _, ok := raw[field]; ok {
			t.Errorf("Expected %s to be omitted", field)
		}
	}
	if raw["file"] != "repo.toml" {
		t.Errorf("Expected file field, got %v", raw["file"])
	}
}

func TestLog_NotInitialized(t *testing.T) {
	dir, err := configs.NewAppDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAppDir failed: %v", err)
	}

	Log(dir, Entry{Operation: OpInit})

	if _, err := os.Stat(dir.AuditFile()); !os.IsNotExist(err) {
		t.Error("Expected no audit log outside an initialized folder")
	}
	entries, err := ReadEntries(dir)
	if err != nil || entries != nil {
		t.Errorf("Expected no entries, got %v (%v)", entries, err)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"op":"init"}
not json
{"op":"connect","read_only":true}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !entries[1].ReadOnly {
		t.Error("Expected read_only to be parsed")
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries(nil)
	if err != nil || entries != nil {
		t.Errorf("Expected nil entries, got %v (%v)", entries, err)
	}
}
