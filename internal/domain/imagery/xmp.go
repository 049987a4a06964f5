package imagery

import (
	"bytes"
	"regexp"
	"strings"
)

// xmpBlockKey is where the parsed XMP packet sits inside the tag tree.
const xmpBlockKey = "XMP"

var (
	xmpPacketStart = []byte("<x:xmpmeta")
	xmpPacketEnd   = []byte("</x:xmpmeta>")

	// Attribute form, e.g. drone-dji:GimbalYawDegree="+12.30"
	xmpAttrPattern = regexp.MustCompile(`([A-Za-z][\w-]*):([A-Za-z][\w]*)="([^"]*)"`)
	// Element form, e.g. <drone-dji:FlightYawDegree>+12.30</drone-dji:FlightYawDegree>
	xmpElemPattern = regexp.MustCompile(`<([A-Za-z][\w-]*):([A-Za-z][\w]*)>([^<]+)</[A-Za-z][\w-]*:[A-Za-z][\w]*>`)
)

// scanXMP pulls the XMP packet out of a JPEG APP1 segment and flattens its
// properties into a map keyed by local name. DJI and similar vendors write
// drone telemetry here (GimbalYawDegree, FlightYawDegree, RelativeAltitude)
// rather than in EXIF proper.
func scanXMP(data []byte) map[string]interface{} {
	start := bytes.Index(data, xmpPacketStart)
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], xmpPacketEnd)
	if end < 0 {
		return nil
	}
	packet := data[start : start+end+len(xmpPacketEnd)]

	props := make(map[string]interface{})

	for _, match := range xmpAttrPattern.FindAllSubmatch(packet, -1) {
		ns, name, raw := string(match[1]), string(match[2]), string(match[3])
		if strings.EqualFold(ns, "xmlns") || strings.EqualFold(ns, "xml") {
			continue
		}
		storeXMPProperty(props, name, raw)
	}
	for _, match := range xmpElemPattern.FindAllSubmatch(packet, -1) {
		name, raw := string(match[2]), strings.TrimSpace(string(match[3]))
		storeXMPProperty(props, name, raw)
	}

	if len(props) == 0 {
		return nil
	}
	return props
}

// storeXMPProperty keeps numeric values as floats and leaves the rest as
// strings. Vendors prefix positive angles with "+", which ParseFloat accepts.
func storeXMPProperty(props map[string]interface{}, name, raw string) {
	if _, exists := props[name]; exists {
		return
	}
	if f, ok := asFloat(raw); ok {
		props[name] = f
		return
	}
	if raw != "" {
		props[name] = raw
	}
}
