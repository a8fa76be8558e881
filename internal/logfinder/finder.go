// Package logfinder provides game client log file detection.
package logfinder

import (
	"os"
	"path/filepath"
)

// EnvLogPath is the environment variable name for specifying the log file.
const EnvLogPath = "POELOG_LOGFILE"

// LogFileName is the name of the client log inside an installation's logs directory.
const LogFileName = "Client.txt"

// installDirs lists installation directories relative to the two program
// files roots, in priority order: both game variants under Steam, then
// both variants under the standalone launcher.
var installDirs = []struct {
	steam bool
	parts []string
}{
	{true, []string{"Steam", "steamapps", "common", "Path of Exile"}},
	{true, []string{"Steam", "steamapps", "common", "Path of Exile 2"}},
	{false, []string{"Grinding Gear Games", "Path of Exile"}},
	{false, []string{"Grinding Gear Games", "Path of Exile 2"}},
}

// programFilesRoots returns the program files directories to search.
// The 32-bit root comes first because both launchers install there by default.
func programFilesRoots() []string {
	var roots []string
	for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles"} {
		if v := os.Getenv(env); v != "" {
			roots = append(roots, v)
		}
	}
	if len(roots) == 0 {
		roots = []string{`C:\Program Files (x86)`, `C:\Program Files`}
	}
	return roots
}

// DefaultLogPaths returns candidate client log paths in priority order.
func DefaultLogPaths() []string {
	var paths []string
	for _, root := range programFilesRoots() {
		for _, d := range installDirs {
			elems := append([]string{root}, d.parts...)
			elems = append(elems, "logs", LogFileName)
			paths = append(paths, filepath.Join(elems...))
		}
	}
	return paths
}

// FindLogFile returns the client log path and whether it currently exists.
//
// Priority:
//  1. explicit (if non-empty)
//  2. POELOG_LOGFILE environment variable
//  3. The first existing path from DefaultLogPaths()
//  4. The first entry of DefaultLogPaths() as a placeholder
//
// An explicit or environment path is returned even if it does not exist,
// since the game may create it later. Existing paths have symlinks resolved.
func FindLogFile(explicit string) (string, bool) {
	if explicit != "" {
		return resolve(explicit)
	}

	if envPath := os.Getenv(EnvLogPath); envPath != "" {
		return resolve(envPath)
	}

	candidates := DefaultLogPaths()
	for _, p := range candidates {
		if resolved, ok := resolve(p); ok {
			return resolved, true
		}
	}

	if len(candidates) == 0 {
		return LogFileName, false
	}
	return candidates[0], false
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// resolve returns path with symlinks resolved and whether it is an existing file.
func resolve(path string) (string, bool) {
	if !Exists(path) {
		return path, false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		// Fallback to original path if symlink resolution fails
		resolved = path
	}
	return resolved, true
}
