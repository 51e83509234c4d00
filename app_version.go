package main

import (
	"runtime/debug"
)

// appVer is set with -ldflags "-X main.appVer=...".
var appVer string

// appVersion reports the module version for go install builds, the
// ldflags-injected version otherwise, and for local builds the VCS revision
// the binary was built from.
func appVersion() string {
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	if appVer != "" {
		return appVer
	}
	if ok {
		if rev := buildSetting(info, "vcs.revision"); rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			if buildSetting(info, "vcs.modified") == "true" {
				rev += "-dirty"
			}
			return "devel-" + rev
		}
	}
	return "#UNAVAILABLE"
}

func buildSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
