package config

import (
	"os"
	"path/filepath"
)

// RuntimeDirEnvVar is the environment variable pointing at a runtime
// directory, consulted by ResolveSocketPath's second tier (spec §6).
const RuntimeDirEnvVar = "TRIAD_RUNTIME_DIR"

// Conventional socket file names (spec §6).
const (
	DispatcherSocketName  = "triad-dispatcher.sock"
	MemoryAgentSocketName = "triad-memoryd.sock"
	ToolHostSocketName    = "triad-toolhostd.sock"
)

// ResolveSocketPath implements the client↔dispatcher socket path
// resolution order from spec §6 (the same order applies to the two
// inter-daemon sockets, since none of them gets a bespoke scheme):
//
//  1. explicit, if non-empty (explicit configuration)
//  2. $TRIAD_RUNTIME_DIR/name, if the env var is set (env var pointing to
//     a runtime directory)
//  3. $XDG_RUNTIME_DIR/name, if set (the conventional runtime directory)
//  4. /tmp/name, if /tmp exists
//  5. <user cache dir>/name
//
// name is one of the XSocketName constants (DispatcherSocketName,
// MemoryAgentSocketName, ToolHostSocketName).
func ResolveSocketPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv(RuntimeDirEnvVar); dir != "" {
		return filepath.Join(dir, name)
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, name)
	}
	if info, err := os.Stat("/tmp"); err == nil && info.IsDir() {
		return filepath.Join("/tmp", name)
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, name)
	}
	return filepath.Join(os.TempDir(), name)
}
