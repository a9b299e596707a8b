// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batched

import (
	"fmt"
	"runtime/debug"
)

const modulePath = "github.com/LynnColeArt/batched"

// Version reports the version and checksum of the batched module linked
// into the running binary. Commands built inside this module report the
// main module, whose version is usually "(devel)". Both values are empty
// when the binary carries no build information.
func Version() (version, sum string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return moduleVersion(info)
}

func moduleVersion(info *debug.BuildInfo) (version, sum string) {
	if info.Main.Path == modulePath {
		return info.Main.Version, info.Main.Sum
	}
	for _, m := range info.Deps {
		if m.Path != modulePath {
			continue
		}
		if r := m.Replace; r != nil {
			if r.Version == "" {
				return fmt.Sprintf("%s=>%s", m.Version, r.Path), r.Sum
			}
			return fmt.Sprintf("%s=>%s %s", m.Version, r.Path, r.Version), r.Sum
		}
		return m.Version, m.Sum
	}
	return "", ""
}
