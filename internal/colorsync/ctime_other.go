//go:build !windows

package colorsync

import (
	"os"
	"time"
)

// Creation time is not portable outside Windows; the modification time of
// a freshly created directory is the closest stand-in.
func platformCreationTime(os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
