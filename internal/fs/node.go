package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bt-restic/internal/bt"
)

// NodeFromInfo describes a path the way restic's ls reports it.
func NodeFromInfo(path string, info fs.FileInfo) *bt.Node {
	n := &bt.Node{
		Name:  filepath.Base(path),
		Path:  path,
		Mode:  uint32(info.Mode()),
		MTime: info.ModTime(),
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		n.Type = "dir"
	case mode&os.ModeSymlink != 0:
		n.Type = "symlink"
	case mode&os.ModeDevice != 0:
		n.Type = "dev"
	case mode&os.ModeNamedPipe != 0:
		n.Type = "fifo"
	case mode&os.ModeSocket != 0:
		n.Type = "socket"
	default:
		n.Type = "file"
		n.Size = uint64(info.Size())
	}

	fillStat(n, info)
	return n
}

// StatNode runs Lstat on path and converts the result.
func StatNode(path string) (*bt.Node, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return NodeFromInfo(path, info), nil
}
