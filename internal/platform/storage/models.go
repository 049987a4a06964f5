package storage

import (
	"time"

	"gorm.io/datatypes"
)

// User is an operator account. CompanyID scopes what the account can see.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"uniqueIndex;size:64"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Username     string `gorm:"size:128"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:32;default:user"`
	CompanyID    string `gorm:"index;size:64"`
	PhoneNumber  string `gorm:"size:32"`
	Status       string `gorm:"size:32;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Company struct {
	ID          uint   `gorm:"primaryKey"`
	CompanyID   string `gorm:"uniqueIndex;size:64"`
	Name        string `gorm:"size:255"`
	EmailDomain string `gorm:"index;size:255"`
	Status      string `gorm:"size:32;default:active"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Asset is a surveyable site owned by a company. Coordinates holds the
// boundary polygon as GeoJSON.
type Asset struct {
	ID          uint   `gorm:"primaryKey"`
	AssetID     string `gorm:"uniqueIndex;size:64"`
	CompanyID   string `gorm:"index;size:64"`
	UserID      string `gorm:"index;size:64"`
	Name        string `gorm:"size:255"`
	AssetType   string `gorm:"size:64"`
	Address     string `gorm:"size:255"`
	Postcode    string `gorm:"size:16"`
	Area        float64
	CenterLat   *float64
	CenterLon   *float64
	Coordinates datatypes.JSON
	Status      string `gorm:"size:32;default:active"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking is a scheduled drone flight against a single asset.
type Booking struct {
	ID              uint   `gorm:"primaryKey"`
	BookingID       string `gorm:"uniqueIndex;size:64"`
	CompanyID       string `gorm:"index;size:64"`
	UserID          string `gorm:"index;size:64"`
	AssetID         string `gorm:"size:64"`
	AssetName       string `gorm:"size:255"`
	JobTypes        datatypes.JSON
	FlightDate      string `gorm:"size:32"`
	Location        string `gorm:"size:255"`
	Postcode        string `gorm:"size:16"`
	Status          string `gorm:"size:32;default:pending"`
	Notes           string
	ScheduleDetails datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Resource is an uploaded file attached to a booking. URL carries the last
// signed link handed out for it; Geolocation holds the extracted image
// metadata verbatim.
type Resource struct {
	ID            uint   `gorm:"primaryKey"`
	ResourceID    string `gorm:"uniqueIndex;size:64"`
	BookingID     string `gorm:"index;size:64"`
	FileName      string `gorm:"size:255"`
	ContentType   string `gorm:"size:128"`
	Size          int64
	ObjectKey     string `gorm:"size:512"`
	URL           string `gorm:"size:2048"`
	IsImage       bool
	ResourceType  string `gorm:"size:32"`
	Geolocation   datatypes.JSON
	Status        string `gorm:"size:32;default:active"`
	IsChunkedFile bool
	IsComplete    bool
	SessionID     string `gorm:"index;size:64"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChunkSession tracks a chunked GeoTIFF upload until reassembly finishes.
type ChunkSession struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"uniqueIndex;size:64"`
	BookingID   string `gorm:"index;size:64"`
	FileName    string `gorm:"size:255"`
	ContentType string `gorm:"size:128"`
	TotalChunks int
	ChunkCount  int
	Status      string `gorm:"size:32;default:pending"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
