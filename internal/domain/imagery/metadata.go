package imagery

import "time"

// Metadata is the geospatial record extracted from a drone image. Absent
// fields stay nil; a heading of 0 is a real northward heading, not absence.
type Metadata struct {
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Altitude    *float64   `json:"altitude,omitempty"`
	AltitudeRef string     `json:"altitudeRef,omitempty"`
	Heading     *float64   `json:"heading,omitempty"`
	HeadingRef  string     `json:"headingRef,omitempty"`
	CaptureTime *time.Time `json:"captureTime,omitempty"`
	CameraMake  string     `json:"cameraMake,omitempty"`
	CameraModel string     `json:"cameraModel,omitempty"`
}

// HasLocation reports whether the image is mappable. Both coordinates are
// required; altitude and heading alone do not place an image on the map.
func (m *Metadata) HasLocation() bool {
	return m != nil && m.Latitude != nil && m.Longitude != nil
}

// HasHeading reports whether a camera direction was recovered.
func (m *Metadata) HasHeading() bool {
	return m != nil && m.Heading != nil
}

// Summary produces the compact overlay payload returned alongside resource
// listings.
func (m *Metadata) Summary() map[string]interface{} {
	summary := map[string]interface{}{
		"hasCoordinates": m.HasLocation(),
		"hasDirection":   m.HasHeading(),
	}
	if m.HasHeading() {
		summary["direction"] = *m.Heading
	}
	return summary
}

func (m *Metadata) empty() bool {
	return m.Latitude == nil && m.Longitude == nil && m.Altitude == nil &&
		m.Heading == nil && m.CaptureTime == nil &&
		m.CameraMake == "" && m.CameraModel == ""
}
