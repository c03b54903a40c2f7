package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/PolarWolf314/syncany/internal/configs"
)

// Operation names.
const (
	OpInit    = "init"
	OpConnect = "connect"
	OpGenLink = "genlink"
	OpEncode  = "encode"
	OpDecode  = "decode"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp   string `json:"ts"`      // RFC3339 with microseconds.
	Machine     string `json:"machine"` // Machine name from config.toml.
	DisplayName string `json:"user"`    // Display name from config.toml.
	Operation   string `json:"op"`      // Operation name.

	// Optional fields depending on operation.
	RepoID      string `json:"repo_id,omitempty"`     // For init/connect.
	Plugin      string `json:"plugin,omitempty"`      // For init/connect.
	Encrypted   bool   `json:"encrypted,omitempty"`   // For init/connect/genlink.
	ReadOnly    bool   `json:"read_only,omitempty"`   // For connect.
	Transformer string `json:"transformer,omitempty"` // For init/encode/decode.
	File        string `json:"file,omitempty"`        // For encode/decode.
}

// Log appends an entry to the audit log of dir.
// Operations should not fail just because audit logging failed, so errors
// are ignored.
func Log(dir configs.AppDir, entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	if _, err := os.Stat(dir.Path()); err != nil {
		// Not initialized, skip logging.
		return
	}

	f, err := os.OpenFile(dir.AuditFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// NewEntry returns an entry with the machine fields filled from cfg.
func NewEntry(op string, cfg *configs.Config) Entry {
	entry := Entry{Operation: op}
	if cfg != nil {
		entry.Machine = cfg.MachineName
		entry.DisplayName = cfg.DisplayName
	}
	return entry
}

// ReadEntries reads all entries from the audit log of dir.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(dir configs.AppDir) ([]Entry, error) {
	data, err := os.ReadFile(dir.AuditFile())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
