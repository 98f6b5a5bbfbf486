//go:build unix

package cmd

import (
	"os"
	"syscall"
)

// hardLinkCount returns the link count of a stat result, or 1 when the
// platform stat shape is unavailable.
func hardLinkCount(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Nlink)
	}
	return 1
}
