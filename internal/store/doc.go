// Package store provides file-based persistence for keybridge.
//
// Every write is synced under a temp name and renamed into place with mode
// 0600, so a crash never leaves a half-written preference file or keyring
// behind. A missing file reads as empty rather than as an error.
//
// The package includes:
//   - ReadFile / WriteFile, used by internal/config and the CLI's --out
//   - KeyringFileStore, the reference provider's on-disk keyring
package store
