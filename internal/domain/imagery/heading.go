package imagery

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Heading recovery walks a fixed chain of strategies over the decoded tag
// tree. Order matters: explicit GPS direction tags outrank vendor yaw tags,
// and the fuzzy keyword scan only runs when nothing named is present. XMP is
// always the last resort.

// knownHeadingFields are probed in this exact order wherever they appear.
var knownHeadingFields = []string{
	"GPSImgDirection",
	"GimbalYawDegree",
	"FlightYawDegree",
	"CameraYaw",
	"Yaw",
	"GPSDestBearing",
	"GPSTrack",
	"Direction",
	"Heading",
	"Bearing",
}

// headingKeywords drive the substring fallback.
var headingKeywords = []string{"direction", "heading", "yaw", "bearing", "orient"}

type headingStrategy func(fields map[string]interface{}) (float64, bool)

var headingStrategies = []headingStrategy{
	headingFromKnownFields,
	headingFromNestedKnownFields,
	headingFromKeywordScan,
	headingFromXMP,
}

// resolveHeading runs the strategy chain and returns the first usable value.
func resolveHeading(fields map[string]interface{}) (float64, bool) {
	for _, strategy := range headingStrategies {
		if value, ok := strategy(fields); ok {
			return value, true
		}
	}
	return 0, false
}

// headingFromKnownFields checks well-known tag names at the top level.
func headingFromKnownFields(fields map[string]interface{}) (float64, bool) {
	for _, name := range knownHeadingFields {
		if value, ok := lookupField(fields, name); ok {
			if f, ok := asFloat(value); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// headingFromNestedKnownFields searches known names depth-first through
// nested blocks, skipping the XMP subtree.
func headingFromNestedKnownFields(fields map[string]interface{}) (float64, bool) {
	for _, name := range knownHeadingFields {
		if value, ok := searchNested(fields, func(key string) bool {
			return strings.EqualFold(key, name)
		}); ok {
			if f, ok := asFloat(value); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// headingFromKeywordScan matches any key containing a heading-ish keyword.
func headingFromKeywordScan(fields map[string]interface{}) (float64, bool) {
	value, ok := searchNested(fields, keyMatchesHeadingKeyword)
	if !ok {
		return 0, false
	}
	return asFloat(value)
}

// headingFromXMP scopes the probe to the XMP packet.
func headingFromXMP(fields map[string]interface{}) (float64, bool) {
	xmp, ok := fields[xmpBlockKey].(map[string]interface{})
	if !ok {
		return 0, false
	}
	for _, name := range knownHeadingFields {
		if value, ok := lookupField(xmp, name); ok {
			if f, ok := asFloat(value); ok {
				return f, true
			}
		}
	}
	for _, key := range sortedKeys(xmp) {
		if keyMatchesHeadingKeyword(key) {
			if f, ok := asFloat(xmp[key]); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func keyMatchesHeadingKeyword(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range headingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// lookupField finds a key case-insensitively in a flat map.
func lookupField(fields map[string]interface{}, name string) (interface{}, bool) {
	if value, ok := fields[name]; ok {
		return value, true
	}
	for key, value := range fields {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return nil, false
}

// searchNested walks the tag tree depth-first in sorted key order so the
// probe is deterministic. The XMP subtree is excluded; it has its own
// strategy at the end of the chain.
func searchNested(fields map[string]interface{}, match func(key string) bool) (interface{}, bool) {
	for _, key := range sortedKeys(fields) {
		if key == xmpBlockKey {
			continue
		}
		value := fields[key]
		switch typed := value.(type) {
		case map[string]interface{}:
			if found, ok := searchNested(typed, match); ok {
				return found, true
			}
		case []byte, []interface{}:
			// binary blobs and arrays are never headings
		default:
			if match(key) {
				if _, ok := asFloat(value); ok {
					return value, true
				}
			}
		}
	}
	return nil, false
}

// asFloat coerces tag values to a finite float64. Rational strings ("123/2")
// are divided out; anything non-finite fails the coercion.
func asFloat(value interface{}) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, isFinite(typed)
	case float32:
		return float64(typed), isFinite(float64(typed))
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case string:
		s := strings.TrimSpace(typed)
		if s == "" {
			return 0, false
		}
		if num, den, ok := strings.Cut(s, "/"); ok {
			n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
			d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
			if errN != nil || errD != nil || d == 0 {
				return 0, false
			}
			result := n / d
			return result, isFinite(result)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, isFinite(f)
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
