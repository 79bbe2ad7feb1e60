// SPDX-License-Identifier: MIT
//
// Configuration management - Version info
//

package config

import (
	"runtime/debug"
)

type VersionInfo struct {
	Version string
	Date    string
}

// String formats as "v1.2.3 (2025-01-02)", falling back to the module
// version recorded by the toolchain when no version was set at link time.
func (vi *VersionInfo) String() string {
	v := vi.Version
	if v == "" {
		v = "(devel)"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
			v = bi.Main.Version
		}
	}
	if vi.Date != "" {
		v += " (" + vi.Date + ")"
	}
	return v
}

var versionInfo VersionInfo

func GetVersion() *VersionInfo {
	return &versionInfo
}

func SetVersion(vi *VersionInfo) {
	versionInfo = *vi
}
