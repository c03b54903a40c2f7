// Package audit records repository operations performed on this machine.
//
// Every init, connect, genlink, encode and decode is appended to a JSON
// Lines log in the local application directory:
//
//	.syncany/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Machine and display name
//   - Operation name
//   - Operation-specific details (repo id, plugin, read-only access, etc.)
//
// Entries never contain passwords, keys or plugin settings.
//
// # Usage
//
//	entry := audit.NewEntry(audit.OpConnect, cfg)
//	entry.RepoID = repo.RepoID
//	audit.Log(appDir, entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
package audit
