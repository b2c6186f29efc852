package internal

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// sidecarData mirrors the Google Photos takeout sidecar structure. Only the
// capture timestamp is consumed; exports carry it either as a JSON string or
// a bare number, so both are tolerated.
type sidecarData struct {
	PhotoTakenTime struct {
		Timestamp json.Number `json:"timestamp"`
	} `json:"photoTakenTime"`
}

// SidecarTakenTime parses photoTakenTime.timestamp from a JSON sidecar and
// converts the epoch to local wall-clock time. Any malformed or incomplete
// sidecar reports absence, never an error.
func SidecarTakenTime(path string) (time.Time, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}

	var sidecar sidecarData
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return time.Time{}, false
	}

	epoch, err := strconv.ParseInt(sidecar.PhotoTakenTime.Timestamp.String(), 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}, false
	}

	return time.Unix(epoch, 0).In(time.Local), true
}
