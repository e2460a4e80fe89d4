//go:build !linux && !darwin

package storage

import (
	"os"
	"time"
)

// birthTime is unavailable here; callers sort such files as oldest.
func birthTime(_ string, _ os.FileInfo) time.Time {
	return time.Time{}
}
