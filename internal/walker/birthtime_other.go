//go:build !linux

package walker

import "time"

func birthTime(string) (time.Time, bool) {
	return time.Time{}, false
}
