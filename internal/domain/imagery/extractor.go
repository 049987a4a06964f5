package imagery

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Extract pulls geospatial metadata out of an image. It never fails: images
// without metadata, truncated files and hostile inputs all resolve to nil.
// Images carrying partial metadata produce a partial record.
func Extract(data []byte) *Metadata {
	if len(data) == 0 {
		return nil
	}

	x, err := decodeExif(bytes.NewReader(data))
	if err != nil {
		x = nil
	}
	xmp := scanXMP(data)

	if x == nil && xmp == nil {
		return nil
	}

	fields := make(map[string]interface{})
	if x != nil {
		collector := &tagCollector{fields: fields}
		_ = x.Walk(collector)
	}
	if xmp != nil {
		fields[xmpBlockKey] = xmp
	}

	meta := &Metadata{}

	if x != nil {
		if lat, lon, err := x.LatLong(); err == nil {
			meta.Latitude = &lat
			meta.Longitude = &lon
		}
		meta.CaptureTime = captureTime(x)
		meta.CameraMake = stringTag(x, exif.Make)
		meta.CameraModel = stringTag(x, exif.Model)
	}

	if alt, ref, ok := resolveAltitude(fields); ok {
		meta.Altitude = &alt
		meta.AltitudeRef = ref
	}

	if heading, ok := resolveHeading(fields); ok {
		meta.Heading = &heading
		if ref, ok := lookupField(fields, "GPSImgDirectionRef"); ok {
			if s, ok := ref.(string); ok {
				meta.HeadingRef = s
			}
		}
	}

	if meta.empty() {
		return nil
	}
	return meta
}

// decodeExif shields callers from goexif panics on malformed maker notes.
func decodeExif(r *bytes.Reader) (x *exif.Exif, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			x = nil
			err = fmt.Errorf("exif decode panic: %v", rec)
		}
	}()
	return exif.Decode(r)
}

// tagCollector flattens the walked IFD tags into the generic tree the
// heading and altitude probes operate on.
type tagCollector struct {
	fields map[string]interface{}
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if value, ok := tagValue(tag); ok {
		c.fields[string(name)] = value
	}
	return nil
}

func tagValue(tag *tiff.Tag) (interface{}, bool) {
	if tag == nil {
		return nil, false
	}
	switch tag.Format() {
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return nil, false
		}
		return float64(num) / float64(den), true
	case tiff.IntVal:
		v, err := tag.Int(0)
		if err != nil {
			return nil, false
		}
		return float64(v), true
	case tiff.FloatVal:
		v, err := tag.Float(0)
		if err != nil {
			return nil, false
		}
		return v, true
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil, false
		}
		return s, true
	default:
		return nil, false
	}
}

// knownAltitudeFields are probed in order before the keyword fallback.
// RelativeAltitude (height above takeoff) only applies when no absolute
// value is present.
var knownAltitudeFields = []string{
	"GPSAltitude",
	"AbsoluteAltitude",
	"RelativeAltitude",
}

func resolveAltitude(fields map[string]interface{}) (float64, string, bool) {
	for _, name := range knownAltitudeFields {
		value, ok := searchAnywhere(fields, name)
		if !ok {
			continue
		}
		alt, ok := asFloat(value)
		if !ok {
			continue
		}
		ref := altitudeRef(fields)
		// GPSAltitudeRef 1 means below sea level
		if name == "GPSAltitude" && ref == "1" && alt > 0 {
			alt = -alt
		}
		return alt, ref, true
	}

	value, ok := searchNested(fields, func(key string) bool {
		return strings.Contains(strings.ToLower(key), "altitude")
	})
	if !ok {
		return 0, "", false
	}
	alt, ok := asFloat(value)
	if !ok {
		return 0, "", false
	}
	return alt, altitudeRef(fields), true
}

func altitudeRef(fields map[string]interface{}) string {
	value, ok := lookupField(fields, "GPSAltitudeRef")
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return fmt.Sprintf("%.0f", typed)
	default:
		return ""
	}
}

// searchAnywhere looks for an exact name at top level first, then in nested
// blocks including XMP.
func searchAnywhere(fields map[string]interface{}, name string) (interface{}, bool) {
	if value, ok := lookupField(fields, name); ok {
		return value, true
	}
	if value, ok := searchNested(fields, func(key string) bool {
		return strings.EqualFold(key, name)
	}); ok {
		return value, true
	}
	if xmp, ok := fields[xmpBlockKey].(map[string]interface{}); ok {
		if value, ok := lookupField(xmp, name); ok {
			return value, true
		}
	}
	return nil, false
}

var captureTimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05.999",
	time.RFC3339,
}

func captureTime(x *exif.Exif) *time.Time {
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		for _, layout := range captureTimeLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return &ts
			}
		}
	}
	return nil
}

func stringTag(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}
