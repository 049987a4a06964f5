package config

import "time"

// Default returns the baseline configuration applied before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Auth: AuthConfig{
				Enabled:  true,
				TokenTTL: 24 * time.Hour,
			},
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "./web",
			PublicURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			DSN:     "pilotforce.db",
			BlobDir: "./data/blobs",
		},
		Presign: PresignConfig{
			KeyID:            "pilotforce-local",
			BasePath:         "/api/files",
			DefaultTTL:       time.Hour,
			RefreshThreshold: 10 * time.Minute,
			Cache: PresignCacheConfig{
				Driver: "memory",
				TTL:    5 * time.Minute,
				Memory: &PresignMemoryCache{
					GCInterval: time.Minute,
				},
			},
		},
		Upload: UploadConfig{
			MaxFileSize:    50 * 1024 * 1024,
			MaxPixels:      268435456, // 256M pixels, survey-grade orthophotos are large
			MaxWidth:       32768,
			MaxHeight:      32768,
			AllowedFormats: []string{"jpeg", "jpg", "png", "webp", "gif", "tiff", "tif"},
			EnableDeepScan: false,
		},
		GeoTIFF: GeoTIFFConfig{
			Enabled:       true,
			SweepInterval: 5 * time.Minute,
			LinkTTL:       14 * 24 * time.Hour,
		},
	}
}
