//go:build linux

package fs

import (
	"io/fs"
	"syscall"
	"time"

	"bt-restic/internal/bt"
)

// fillStat copies ownership and the access/change times from the raw stat.
func fillStat(n *bt.Node, info fs.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	n.UID = stat.Uid
	n.GID = stat.Gid
	n.ATime = time.Unix(int64(stat.Atim.Sec), int64(stat.Atim.Nsec))
	n.CTime = time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec))
}
