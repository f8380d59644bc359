//go:build !linux

package fs

import (
	"io/fs"

	"bt-restic/internal/bt"
)

func fillStat(n *bt.Node, info fs.FileInfo) {
	n.ATime = info.ModTime()
	n.CTime = info.ModTime()
}
