package imagery

import (
	"testing"
)

const xmpSample = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
   xmlns:drone-dji="http://www.dji.com/drone-dji/1.0/"
   drone-dji:AbsoluteAltitude="+182.30"
   drone-dji:RelativeAltitude="+97.10"
   drone-dji:GimbalYawDegree="+33.50"
   drone-dji:FlightYawDegree="+34.10"/>
 </rdf:RDF>
</x:xmpmeta>`

func TestExtractNilAndGarbageInputs(t *testing.T) {
	if meta := Extract(nil); meta != nil {
		t.Fatalf("expected nil for empty input, got %+v", meta)
	}
	if meta := Extract([]byte{0x00}); meta != nil {
		t.Fatalf("expected nil for single byte, got %+v", meta)
	}
	if meta := Extract([]byte("definitely not an image")); meta != nil {
		t.Fatalf("expected nil for text input, got %+v", meta)
	}
}

func TestExtractReadsDroneXMP(t *testing.T) {
	// No EXIF block at all: the XMP packet alone must still yield heading
	// and altitude, which is how DJI writes gimbal telemetry.
	payload := append([]byte{0xFF, 0xD8, 0xFF, 0xE1}, []byte(xmpSample)...)

	meta := Extract(payload)
	if meta == nil {
		t.Fatalf("expected metadata from XMP packet")
	}
	if meta.HasLocation() {
		t.Fatalf("no coordinates present, HasLocation must be false")
	}
	if !meta.HasHeading() {
		t.Fatalf("expected heading from GimbalYawDegree")
	}
	if *meta.Heading != 33.5 {
		t.Fatalf("expected gimbal yaw 33.5, got %v", *meta.Heading)
	}
	if meta.Altitude == nil || *meta.Altitude != 182.3 {
		t.Fatalf("expected absolute altitude 182.3, got %+v", meta.Altitude)
	}
}

func TestSummaryShape(t *testing.T) {
	heading := 10.0
	meta := &Metadata{Heading: &heading}

	summary := meta.Summary()
	if summary["hasCoordinates"] != false {
		t.Fatalf("expected hasCoordinates false")
	}
	if summary["hasDirection"] != true {
		t.Fatalf("expected hasDirection true")
	}
	if summary["direction"] != 10.0 {
		t.Fatalf("expected direction 10.0, got %v", summary["direction"])
	}

	bare := (&Metadata{}).Summary()
	if _, present := bare["direction"]; present {
		t.Fatalf("direction must be omitted when no heading exists")
	}
}

func TestScanXMPElementForm(t *testing.T) {
	packet := []byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/">
<drone-dji:FlightYawDegree>+120.5</drone-dji:FlightYawDegree>
</x:xmpmeta>`)

	props := scanXMP(packet)
	if props == nil {
		t.Fatalf("expected parsed XMP properties")
	}
	value, ok := props["FlightYawDegree"]
	if !ok {
		t.Fatalf("expected FlightYawDegree, got %v", props)
	}
	if value != 120.5 {
		t.Fatalf("expected 120.5, got %v", value)
	}
}

func TestScanXMPIgnoresNamespaceDeclarations(t *testing.T) {
	props := scanXMP([]byte(xmpSample))
	if props == nil {
		t.Fatalf("expected properties")
	}
	if _, ok := props["rdf"]; ok {
		t.Fatalf("xmlns declarations must not become properties")
	}
	if _, ok := props["x"]; ok {
		t.Fatalf("xmlns declarations must not become properties")
	}
}

func TestScanXMPMissingPacket(t *testing.T) {
	if props := scanXMP([]byte("plain jpeg bytes")); props != nil {
		t.Fatalf("expected nil without packet, got %v", props)
	}
	if props := scanXMP([]byte("<x:xmpmeta unterminated")); props != nil {
		t.Fatalf("expected nil for unterminated packet, got %v", props)
	}
}
