// Package configs manages the local configuration of a synced folder.
//
// Configuration is stored in TOML format in the folder's .syncany directory:
//
//	.syncany/
//	  config.toml   machine name, display name, master key, connection
//	  repo.toml     copy of the repository file
//	  master.toml   copy of the master file (encrypted repositories only)
//	  local.key     random key wrapping the master key
//	  audit.jsonl   operation log
//	  cache/ db/ logs/ state/
//
// # Master Key
//
// The derived master key is never written in the clear. Its key material is
// encrypted with AES-256-GCM under local.key, a random per-machine key
// created with 0600 permissions. The salt is stored next to it so the key
// can be re-derived from the passwords on another machine.
//
// # Connection
//
// For unencrypted repositories the connection is a plain [connection]
// table. For encrypted repositories it is serialized, encrypted under the
// master key and stored base64 encoded as encrypted_connection.
//
// # Repository and Master Files
//
// RepoTO and MasterTO are the TOML documents uploaded to the remote
// storage. The repository file lists the transformer chain and the verify
// key; the master file holds only the salt.
package configs
