// Package storage defines the remote storage collaborator of a repository.
//
// A Plugin describes a storage type and its options; a TransferManager
// created from it moves whole files. Repositories use two well-known files:
//
//   - "syncany": the repository file (transformer list, verify key)
//   - "master": the master key salt, present only for encrypted repositories
//
// The built-in "local" plugin stores files in a directory and is used for
// tests and local repositories.
package storage
