//go:build debug

package ui

import (
	"io/fs"
	"os"
)

// DistFS returns a live filesystem rooted at ui/dist (debug: reads from disk),
// so edits to index.html show up without recompiling Go.
func DistFS() fs.FS {
	return os.DirFS("ui/dist")
}
