package config

import (
	"time"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
	Storage StorageConfig `yaml:"storage"`
	Presign PresignConfig `yaml:"presign"`
	Upload  UploadConfig  `yaml:"upload"`
	GeoTIFF GeoTIFFConfig `yaml:"geotiff"`
}

type ServerConfig struct {
	Host string     `yaml:"host"`
	Port int        `yaml:"port"`
	Auth AuthConfig `yaml:"auth"`
}

type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
	// PublicURL is the externally reachable base used when issuing signed links.
	PublicURL string `yaml:"public_url"`
}

type StorageConfig struct {
	DSN     string `yaml:"dsn"`
	BlobDir string `yaml:"blob_dir"`
}

type PresignConfig struct {
	KeyID            string             `yaml:"key_id"`
	Secret           string             `yaml:"secret"`
	BasePath         string             `yaml:"base_path"`
	DefaultTTL       time.Duration      `yaml:"default_ttl"`
	RefreshThreshold time.Duration      `yaml:"refresh_threshold"`
	Cache            PresignCacheConfig `yaml:"cache"`
	// RemoteEndpoint delegates reissue calls to another node when set.
	RemoteEndpoint string `yaml:"remote_endpoint,omitempty"`
	RemoteToken    string `yaml:"remote_token,omitempty"`
}

type PresignCacheConfig struct {
	Driver string              `yaml:"driver"`
	TTL    time.Duration       `yaml:"ttl"`
	Redis  *PresignRedisCache  `yaml:"redis,omitempty"`
	Memory *PresignMemoryCache `yaml:"memory,omitempty"`
}

type PresignRedisCache struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type PresignMemoryCache struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

type UploadConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
	EnableDeepScan bool     `yaml:"enable_deep_scan"`
}

type GeoTIFFConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	LinkTTL       time.Duration `yaml:"link_ttl"`
}
