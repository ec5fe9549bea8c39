package storage_objects

import (
	"fmt"
	"strings"
	"time"
)

// Object path layout inside the bucket. Kept stable for interoperability
// with earlier deployments:
//
//	{userId}/{customerId}/{date}/{recordingId}/segment_{index}.{ext}
//	{userId}/{customerId}/{date}/{recordingId}/recording.{ext}

// SegmentPath returns the bucket path of one uploaded segment.
func SegmentPath(userId, customerId string, recordedOn time.Time, recordingId string, index int, mime string) string {
	return fmt.Sprintf("%s/%s/%s/%s/segment_%d.%s",
		userId, customerId, recordedOn.UTC().Format("2006-01-02"), recordingId, index, ExtensionForMime(mime))
}

// RecordingPath returns the bucket path of the stitched final artifact.
func RecordingPath(userId, customerId string, recordedOn time.Time, recordingId, mime string) string {
	return fmt.Sprintf("%s/%s/%s/%s/recording.%s",
		userId, customerId, recordedOn.UTC().Format("2006-01-02"), recordingId, ExtensionForMime(mime))
}

// ExtensionForMime maps a recording MIME descriptor to a file extension.
// Unknown descriptors fall back to webm, the primary capture container.
func ExtensionForMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/mp4"):
		return "mp4"
	default:
		return "webm"
	}
}
