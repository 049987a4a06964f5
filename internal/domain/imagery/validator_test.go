package imagery

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
)

func testValidator(t *testing.T, cfg config.UploadConfig) *Validator {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(func() {
		_ = logger.Close()
	})
	return NewValidator(&cfg, logger)
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func defaultUploadCfg() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize:    1 << 20,
		MaxPixels:      1 << 20,
		MaxWidth:       1024,
		MaxHeight:      1024,
		AllowedFormats: []string{"jpeg", "jpg", "png", "tiff", "tif"},
	}
}

func TestValidateBytesAcceptsPNG(t *testing.T) {
	v := testValidator(t, defaultUploadCfg())

	result := v.ValidateBytes(pngBytes(t, 8, 8), "png")
	if !result.IsValid {
		t.Fatalf("expected valid png, got error: %v", result.Error)
	}
	if result.Format != "png" || result.Width != 8 || result.Height != 8 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateBytesRejectsOversize(t *testing.T) {
	cfg := defaultUploadCfg()
	cfg.MaxFileSize = 16
	v := testValidator(t, cfg)

	result := v.ValidateBytes(pngBytes(t, 8, 8), "png")
	if result.IsValid {
		t.Fatalf("expected size rejection")
	}
	if result.SecurityRisk != "file too large" {
		t.Fatalf("unexpected risk: %s", result.SecurityRisk)
	}
}

func TestValidateBytesRejectsDisallowedFormat(t *testing.T) {
	v := testValidator(t, defaultUploadCfg())

	result := v.ValidateBytes(pngBytes(t, 8, 8), "bmp")
	if result.IsValid {
		t.Fatalf("expected format rejection")
	}
	if result.SecurityRisk != "unapproved format" {
		t.Fatalf("unexpected risk: %s", result.SecurityRisk)
	}
}

func TestValidateBytesRejectsCorruptData(t *testing.T) {
	v := testValidator(t, defaultUploadCfg())

	result := v.ValidateBytes([]byte("not an image at all"), "png")
	if result.IsValid {
		t.Fatalf("expected decode rejection")
	}
	if result.SecurityRisk != "corrupted image data" {
		t.Fatalf("unexpected risk: %s", result.SecurityRisk)
	}
}

func TestValidateBytesRejectsExcessiveDimensions(t *testing.T) {
	cfg := defaultUploadCfg()
	cfg.MaxWidth = 4
	cfg.MaxHeight = 4
	v := testValidator(t, cfg)

	result := v.ValidateBytes(pngBytes(t, 8, 8), "png")
	if result.IsValid {
		t.Fatalf("expected dimension rejection")
	}
	if result.SecurityRisk != "dimensions too large" {
		t.Fatalf("unexpected risk: %s", result.SecurityRisk)
	}
}

func TestValidateBytesTIFFSignatureOnly(t *testing.T) {
	v := testValidator(t, defaultUploadCfg())

	littleEndian := append([]byte{0x49, 0x49, 0x2A, 0x00}, make([]byte, 32)...)
	result := v.ValidateBytes(littleEndian, "tiff")
	if !result.IsValid {
		t.Fatalf("expected little-endian tiff accepted, got %v", result.Error)
	}

	bigEndian := append([]byte{0x4D, 0x4D, 0x00, 0x2A}, make([]byte, 32)...)
	if result := v.ValidateBytes(bigEndian, "tif"); !result.IsValid {
		t.Fatalf("expected big-endian tiff accepted, got %v", result.Error)
	}

	if result := v.ValidateBytes([]byte("PK\x03\x04zipzip"), "tiff"); result.IsValid {
		t.Fatalf("expected signature mismatch rejection")
	}
}
