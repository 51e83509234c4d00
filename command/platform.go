package command

import (
	"runtime"
	"strings"
)

// Platform supplies the platform specific programs for file management and
// for the script-wrapped latexml tools.
type Platform interface {
	Name() string
	Remove(paths ...string) []string
	Move(src, dst string) []string
	Copy(src, dst string) []string
	// Script returns the executable name of a tool installed as a script.
	Script(tool string) string
}

// PlatformFor selects the command set for a platform identifier such as
// runtime.GOOS, "win32" or "win". An empty id means the host platform.
func PlatformFor(id string) Platform {
	if id == "" {
		id = runtime.GOOS
	}
	id = strings.ToLower(id)
	if strings.HasPrefix(id, "windows") || strings.HasPrefix(id, "win32") || id == "win" {
		return Windows{}
	}
	return Posix{}
}

// Posix uses coreutils in verbose mode.
type Posix struct{}

func (Posix) Name() string { return "posix" }

func (Posix) Remove(paths ...string) []string {
	return append([]string{"rm", "-v"}, paths...)
}

func (Posix) Move(src, dst string) []string { return []string{"mv", "-v", src, dst} }
func (Posix) Copy(src, dst string) []string { return []string{"cp", "-v", src, dst} }
func (Posix) Script(tool string) string     { return tool }

// Windows goes through PowerShell cmdlets.
type Windows struct{}

func (Windows) Name() string { return "windows" }

func (Windows) Remove(paths ...string) []string {
	return []string{"powershell.exe", "Remove-Item", "-Recurse", "-Force", "-Verbose", strings.Join(paths, ",")}
}

func (Windows) Move(src, dst string) []string {
	return []string{"powershell.exe", "Move-Item", "-Verbose", src, dst}
}

func (Windows) Copy(src, dst string) []string {
	return []string{"powershell.exe", "Copy-Item", "-Verbose", src, dst}
}

func (Windows) Script(tool string) string {
	if strings.HasSuffix(strings.ToLower(tool), ".bat") {
		return tool
	}
	return tool + ".bat"
}
