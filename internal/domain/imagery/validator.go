package imagery

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
)

// ValidationResult reports the outcome of the upload checks.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	SecurityRisk string
	Error        error
}

// Validator performs layered checks against incoming image payloads before
// they reach the metadata extractor or the blob store.
type Validator struct {
	config *config.UploadConfig
	logger *logging.Logger
}

func NewValidator(cfg *config.UploadConfig, logger *logging.Logger) *Validator {
	return &Validator{
		config: cfg,
		logger: logger,
	}
}

var imageSignatures = map[string][][]byte{
	"jpeg": {{0xFF, 0xD8}},
	"jpg":  {{0xFF, 0xD8}},
	"png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"gif":  {{0x47, 0x49, 0x46, 0x38}},
	"webp": {{0x52, 0x49, 0x46, 0x46}},
	"bmp":  {{0x42, 0x4D}},
	"tiff": {{0x49, 0x49, 0x2A, 0x00}, {0x4D, 0x4D, 0x00, 0x2A}},
	"tif":  {{0x49, 0x49, 0x2A, 0x00}, {0x4D, 0x4D, 0x00, 0x2A}},
}

// ValidateBytes runs the full check chain on raw upload bytes.
func (v *Validator) ValidateBytes(raw []byte, declaredFormat string) ValidationResult {
	result := ValidationResult{IsValid: false}

	if len(raw) == 0 {
		result.Error = fmt.Errorf("empty image payload")
		return result
	}

	if int64(len(raw)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf(
			"file size exceeds limit: %d bytes (max %d bytes)",
			len(raw),
			v.config.MaxFileSize,
		)
		result.SecurityRisk = "file too large"
		v.logger.Warn(
			"detected oversized image: size=%d max_size=%d format=%s",
			len(raw),
			v.config.MaxFileSize,
			declaredFormat,
		)
		return result
	}

	if declaredFormat != "" && !v.isFormatAllowed(declaredFormat) {
		result.Error = fmt.Errorf("unsupported format: %s", declaredFormat)
		result.SecurityRisk = "unapproved format"
		return result
	}

	// TIFF is accepted on signature alone; the stdlib decoders do not
	// cover it and survey orthophotos routinely exceed decode limits.
	format := strings.ToLower(declaredFormat)
	if format == "tiff" || format == "tif" {
		if !v.validateFileSignature(raw, format) {
			result.Error = fmt.Errorf("tiff signature mismatch")
			result.SecurityRisk = "signature mismatch"
			return result
		}
		result.IsValid = true
		result.Format = format
		result.FileSize = int64(len(raw))
		return result
	}

	decodeResult := v.validateImageDecoding(raw, declaredFormat)
	if !decodeResult.IsValid {
		if declaredFormat != "" && !v.validateFileSignature(raw, declaredFormat) {
			actualHeader := fmt.Sprintf("%x", raw[:min(len(raw), 16)])
			v.logger.Warn(
				"file signature mismatch: declared_format=%s actual_header=%s",
				declaredFormat,
				actualHeader,
			)
		}
		return decodeResult
	}

	result = decodeResult
	result.IsValid = true
	result.FileSize = int64(len(raw))
	return result
}

func (v *Validator) isFormatAllowed(format string) bool {
	if v.config == nil || len(v.config.AllowedFormats) == 0 {
		return true
	}
	if format == "" {
		return true
	}

	format = strings.ToLower(format)
	for _, allowed := range v.config.AllowedFormats {
		if strings.ToLower(allowed) == format {
			return true
		}
	}
	return false
}

func (v *Validator) validateFileSignature(raw []byte, format string) bool {
	signatures, ok := imageSignatures[strings.ToLower(format)]
	if !ok || len(signatures) == 0 {
		return true
	}
	for _, signature := range signatures {
		if len(raw) >= len(signature) && bytes.Equal(signature, raw[:len(signature)]) {
			return true
		}
	}
	return false
}

func (v *Validator) scanForMaliciousContent(raw []byte) bool {
	executableSignatures := [][]byte{
		{0x4D, 0x5A},
		{0x25, 0x50, 0x44, 0x46},
	}
	for _, signature := range executableSignatures {
		if bytes.HasPrefix(raw, signature) {
			v.logger.Warn("detected executable signature: signature_hex=%x", signature)
			return true
		}
	}

	compressionSignatures := [][]byte{
		{0x50, 0x4B, 0x03, 0x04},
		{0x1F, 0x8B, 0x08},
	}
	for _, signature := range compressionSignatures {
		if bytes.HasPrefix(raw, signature) {
			v.logger.Warn("detected compressed archive: signature_hex=%x", signature)
			return true
		}
	}

	lowered := strings.ToLower(string(raw))
	if strings.Contains(lowered, "<svg") {
		return v.checkSVGScripts(lowered)
	}

	return false
}

func (v *Validator) checkSVGScripts(lowered string) bool {
	suspiciousStrings := []string{
		"<script",
		"javascript:",
		"vbscript:",
		"onload=",
		"onerror=",
		"eval(",
		"document.cookie",
		"window.location",
		"<iframe",
		"<object",
		"<embed",
	}

	for _, suspicious := range suspiciousStrings {
		if strings.Contains(lowered, suspicious) {
			v.logger.Warn("detected suspicious SVG content: token=%s", suspicious)
			return true
		}
	}
	return false
}

func (v *Validator) validateImageDecoding(raw []byte, format string) ValidationResult {
	result := ValidationResult{Format: format}
	reader := bytes.NewReader(raw)

	cfg, actualFormat, err := image.DecodeConfig(reader)
	if err != nil {
		result.Error = fmt.Errorf("decode image config: %w", err)
		result.SecurityRisk = "corrupted image data"
		return result
	}

	if actualFormat != "" {
		result.Format = actualFormat
	}

	if cfg.Width > v.config.MaxWidth || cfg.Height > v.config.MaxHeight {
		result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight)
		result.SecurityRisk = "dimensions too large"
		return result
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if totalPixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)", totalPixels, v.config.MaxPixels)
		result.SecurityRisk = "pixel count too high"
		return result
	}

	if v.config.EnableDeepScan && v.scanForMaliciousContent(raw) {
		result.Error = fmt.Errorf("potential malicious content detected")
		result.SecurityRisk = "suspicious content"
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))

	v.logger.Debug(
		"image validation success: format=%s width=%d height=%d size=%d",
		result.Format,
		result.Width,
		result.Height,
		result.FileSize,
	)

	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
