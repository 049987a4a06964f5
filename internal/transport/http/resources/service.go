package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/domain/eventbus"
	"pilotforce-server-go/internal/domain/geotiff"
	"pilotforce-server-go/internal/domain/imagery"
	"pilotforce-server-go/internal/domain/presign"
	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
	"pilotforce-server-go/internal/platform/storage"
)

// Service exposes resource uploads, listings, chunked GeoTIFF ingestion,
// signed file serving and the presign endpoints.
type Service struct {
	cfg         *config.Config
	logger      *logging.Logger
	validator   *imagery.Validator
	blobs       *storage.BlobStore
	resources   *storage.ResourceRepository
	sessions    *storage.ChunkSessionRepository
	bookings    *storage.BookingRepository
	signer      *presign.Signer
	refresher   *presign.Refresher
	reassembler *geotiff.Reassembler
	bus         *eventbus.Bus
}

func NewService(
	cfg *config.Config,
	logger *logging.Logger,
	validator *imagery.Validator,
	blobs *storage.BlobStore,
	resources *storage.ResourceRepository,
	sessions *storage.ChunkSessionRepository,
	bookings *storage.BookingRepository,
	signer *presign.Signer,
	refresher *presign.Refresher,
	reassembler *geotiff.Reassembler,
	bus *eventbus.Bus,
) *Service {
	return &Service{
		cfg:         cfg,
		logger:      logger,
		validator:   validator,
		blobs:       blobs,
		resources:   resources,
		sessions:    sessions,
		bookings:    bookings,
		signer:      signer,
		refresher:   refresher,
		reassembler: reassembler,
		bus:         bus,
	}
}

// Register wires the service's routes into the router groups.
func (s *Service) Register(router *httptransport.Router) {
	// File downloads authenticate via the URL signature, not a bearer token.
	router.API.GET("/files/*objectKey", s.handleServeFile)

	secured := router.Secured
	if secured == nil {
		secured = router.API
	}
	secured.POST("/bookings/:bookingId/resources", s.handleUpload)
	secured.GET("/bookings/:bookingId/resources", s.handleList)
	secured.DELETE("/resources/:resourceId", s.handleDelete)

	secured.POST("/resources/presign", s.handlePresign)
	secured.POST("/resources/presign/batch", s.handlePresignBatch)
	secured.POST("/resources/cache/clear", s.handleCacheClear)
	secured.GET("/resources/cache/stats", s.handleCacheStats)

	secured.POST("/bookings/:bookingId/chunks", s.handleChunkUpload)
	secured.POST("/bookings/:bookingId/chunks/manifest", s.handleManifest)
	secured.POST("/resources/geotiff/reassemble", s.handleReassemble)
}

var imageFormats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true, "tiff": true, "tif": true,
}

func formatOf(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
}

func canAccessBooking(c *gin.Context, booking *storage.Booking) bool {
	if c.GetString("role") == "admin" {
		return true
	}
	return booking.CompanyID != "" && booking.CompanyID == c.GetString("company_id")
}

// authorizeBooking loads the path's booking and enforces company scoping.
// Unknown and cross-company bookings both answer 404.
func (s *Service) authorizeBooking(c *gin.Context) (*storage.Booking, bool) {
	booking, err := s.bookings.FindByBookingID(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load booking", nil)
		return nil, false
	}
	if booking == nil || !canAccessBooking(c, booking) {
		httptransport.RespondError(c, 404, "booking not found", nil)
		return nil, false
	}
	return booking, true
}

// handleUpload accepts a multipart file, validates it, extracts image
// metadata and stores both the bytes and the database record.
func (s *Service) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	bookingID := c.Param("bookingId")
	if _, ok := s.authorizeBooking(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httptransport.RespondError(c, 400, "file field required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httptransport.RespondError(c, 400, "unreadable upload", nil)
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		httptransport.RespondError(c, 400, "unreadable upload", nil)
		return
	}

	format := formatOf(fileHeader.Filename)
	isImage := imageFormats[format]
	if isImage {
		result := s.validator.ValidateBytes(raw, format)
		if !result.IsValid {
			message := "image failed validation"
			if result.Error != nil {
				message = result.Error.Error()
			}
			s.logger.WarnTag("HTTP", "upload rejected for booking %s: %s", bookingID, message)
			httptransport.RespondError(c, 422, message, gin.H{"securityRisk": result.SecurityRisk})
			return
		}
	}

	// Metadata extraction never blocks an upload; a nil result just means
	// the file carried nothing usable.
	var geolocation datatypes.JSON
	var meta *imagery.Metadata
	if isImage {
		if meta = imagery.Extract(raw); meta != nil {
			if encoded, err := json.Marshal(meta); err == nil {
				geolocation = datatypes.JSON(encoded)
			}
		}
	}

	objectKey := fmt.Sprintf("resources/%s/%d_%s", bookingID, time.Now().UnixMilli(), fileHeader.Filename)
	size, err := s.blobs.Put(objectKey, bytes.NewReader(raw))
	if err != nil {
		s.logger.ErrorTag("HTTP", "blob write failed: %v", err)
		httptransport.RespondError(c, 500, "failed to store file", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(fileHeader.Filename))
	}

	resourceType := "file"
	if isImage {
		resourceType = "image"
	}
	resource := &storage.Resource{
		ResourceID:   "res_" + uuid.NewString(),
		BookingID:    bookingID,
		FileName:     fileHeader.Filename,
		ContentType:  contentType,
		Size:         size,
		ObjectKey:    objectKey,
		URL:          s.signer.Sign(objectKey, 0),
		IsImage:      isImage,
		ResourceType: resourceType,
		Geolocation:  geolocation,
		Status:       "active",
	}
	if err := s.resources.Create(ctx, resource); err != nil {
		s.logger.ErrorTag("HTTP", "resource record failed: %v", err)
		httptransport.RespondError(c, 500, "failed to record resource", nil)
		return
	}

	s.bus.PublishAsync(eventbus.EventResourceCreated, eventbus.ResourceEvent{
		ResourceID: resource.ResourceID,
		BookingID:  bookingID,
		ObjectKey:  objectKey,
		IsImage:    isImage,
	})

	s.logger.InfoTag("HTTP", "resource %s uploaded to booking %s (%d bytes)", resource.ResourceID, bookingID, size)
	payload := gin.H{"resource": resource}
	if meta != nil {
		payload["metadataSummary"] = meta.Summary()
	}
	httptransport.RespondSuccess(c, 201, payload, "resource uploaded")
}

// handleList returns a booking's resources with their stored URLs renewed
// when close to expiry.
func (s *Service) handleList(c *gin.Context) {
	ctx := c.Request.Context()
	bookingID := c.Param("bookingId")
	if _, ok := s.authorizeBooking(c); !ok {
		return
	}

	list, err := s.resources.ListByBooking(ctx, bookingID)
	if err != nil {
		httptransport.RespondError(c, 500, "failed to list resources", nil)
		return
	}

	urls := make([]string, 0, len(list))
	for _, res := range list {
		urls = append(urls, res.URL)
	}
	started := time.Now()
	refreshed := s.refresher.RefreshMany(ctx, urls)
	if len(urls) > 0 {
		s.bus.PublishAsync(eventbus.EventURLRefreshed, eventbus.RefreshEvent{
			Count:   len(urls),
			Elapsed: time.Since(started),
		})
	}

	for i := range list {
		fresh := refreshed[list[i].URL]
		if fresh != list[i].URL {
			list[i].URL = fresh
			if err := s.resources.Update(ctx, &list[i]); err != nil {
				s.logger.WarnTag("HTTP", "failed to persist refreshed url: %v", err)
			}
		}
	}

	httptransport.RespondSuccess(c, 200, gin.H{"resources": list, "count": len(list)}, "")
}

func (s *Service) handleDelete(c *gin.Context) {
	ctx := c.Request.Context()
	resourceID := c.Param("resourceId")

	resource, err := s.resources.FindByResourceID(ctx, resourceID)
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load resource", nil)
		return
	}
	if resource == nil {
		httptransport.RespondError(c, 404, "resource not found", nil)
		return
	}
	booking, err := s.bookings.FindByBookingID(ctx, resource.BookingID)
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load booking", nil)
		return
	}
	if booking == nil || !canAccessBooking(c, booking) {
		httptransport.RespondError(c, 404, "resource not found", nil)
		return
	}
	if err := s.resources.Delete(ctx, resourceID); err != nil {
		httptransport.RespondError(c, 500, "failed to delete resource", nil)
		return
	}
	if err := s.blobs.Delete(resource.ObjectKey); err != nil {
		s.logger.WarnTag("HTTP", "failed to delete blob %s: %v", resource.ObjectKey, err)
	}

	s.bus.PublishAsync(eventbus.EventResourceDeleted, eventbus.ResourceEvent{
		ResourceID: resourceID,
		BookingID:  resource.BookingID,
		ObjectKey:  resource.ObjectKey,
	})
	httptransport.RespondSuccess(c, 200, gin.H{"resourceId": resourceID}, "resource deleted")
}

// handlePresign exchanges one URL for a fresh signed link.
func (s *Service) handlePresign(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "url required", nil)
		return
	}
	fresh := s.refresher.RefreshOne(c.Request.Context(), req.URL)
	httptransport.RespondSuccess(c, 200, gin.H{"presignedUrl": fresh}, "")
}

func (s *Service) handlePresignBatch(c *gin.Context) {
	var req struct {
		URLs []string `json:"urls" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "urls required", nil)
		return
	}
	started := time.Now()
	refreshed := s.refresher.RefreshMany(c.Request.Context(), req.URLs)
	s.bus.PublishAsync(eventbus.EventURLRefreshed, eventbus.RefreshEvent{
		Count:   len(req.URLs),
		Elapsed: time.Since(started),
	})
	httptransport.RespondSuccess(c, 200, gin.H{"presignedUrls": refreshed}, "")
}

func (s *Service) handleCacheClear(c *gin.Context) {
	if err := s.refresher.ClearCache(c.Request.Context()); err != nil {
		httptransport.RespondError(c, 500, "failed to clear cache", nil)
		return
	}
	s.logger.InfoTag("PRESIGN", "url cache cleared")
	httptransport.RespondSuccess(c, 200, nil, "cache cleared")
}

func (s *Service) handleCacheStats(c *gin.Context) {
	stats, err := s.refresher.CacheStats(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, 500, "failed to read cache stats", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, stats, "")
}

// handleServeFile streams a blob after verifying the URL signature.
func (s *Service) handleServeFile(c *gin.Context) {
	raw := c.Request.URL.String()
	if err := s.signer.Verify(raw); err != nil {
		httptransport.RespondError(c, 403, "invalid or expired link", nil)
		return
	}
	objectKey, err := s.signer.ObjectKey(raw)
	if err != nil {
		httptransport.RespondError(c, 400, "invalid object key", nil)
		return
	}

	reader, err := s.blobs.Open(objectKey)
	if err != nil {
		httptransport.RespondError(c, 404, "file not found", nil)
		return
	}
	defer reader.Close()

	size, _ := s.blobs.Size(objectKey)
	contentType := mime.TypeByExtension(path.Ext(objectKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(200, size, contentType, reader, nil)
}

// handleChunkUpload stores one part of a chunked GeoTIFF upload.
func (s *Service) handleChunkUpload(c *gin.Context) {
	bookingID := c.Param("bookingId")
	if _, ok := s.authorizeBooking(c); !ok {
		return
	}
	sessionID := c.PostForm("sessionId")
	if sessionID == "" {
		httptransport.RespondError(c, 400, "sessionId required", nil)
		return
	}
	index, err := strconv.Atoi(c.PostForm("chunkIndex"))
	if err != nil || index < 0 {
		httptransport.RespondError(c, 400, "chunkIndex must be a non-negative integer", nil)
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		httptransport.RespondError(c, 400, "chunk field required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httptransport.RespondError(c, 400, "unreadable chunk", nil)
		return
	}
	defer file.Close()

	key := geotiff.ChunkKey(bookingID, sessionID, index)
	size, err := s.blobs.Put(key, file)
	if err != nil {
		s.logger.ErrorTag("GEOTIFF", "chunk write failed: %v", err)
		httptransport.RespondError(c, 500, "failed to store chunk", nil)
		return
	}

	httptransport.RespondSuccess(c, 200, gin.H{
		"sessionId":  sessionID,
		"chunkIndex": index,
		"size":       size,
	}, "chunk stored")
}

// handleManifest accepts the completion manifest for a chunked upload and
// kicks off reassembly.
func (s *Service) handleManifest(c *gin.Context) {
	bookingID := c.Param("bookingId")
	if _, ok := s.authorizeBooking(c); !ok {
		return
	}

	var manifest geotiff.Manifest
	if err := c.ShouldBindJSON(&manifest); err != nil {
		httptransport.RespondError(c, 400, "invalid manifest", nil)
		return
	}
	manifest.BookingID = bookingID

	if err := s.reassembler.HandleManifest(c.Request.Context(), manifest); err != nil {
		s.logger.ErrorTag("GEOTIFF", "manifest handling failed: %v", err)
		httptransport.RespondError(c, 422, "manifest rejected", gin.H{"error": err.Error()})
		return
	}
	httptransport.RespondSuccess(c, 202, gin.H{"sessionId": manifest.SessionID}, "manifest accepted")
}

// handleReassemble retries a stuck session on demand, or sweeps every
// pending session when no sessionId is given.
func (s *Service) handleReassemble(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.SessionID == "" {
		s.reassembler.Sweep(c.Request.Context())
		httptransport.RespondSuccess(c, 202, nil, "pending sessions swept")
		return
	}

	done, err := s.reassembler.Retry(c.Request.Context(), req.SessionID)
	if err != nil {
		httptransport.RespondError(c, 422, "reassembly failed", gin.H{"error": err.Error()})
		return
	}
	httptransport.RespondSuccess(c, 200, gin.H{
		"sessionId": req.SessionID,
		"complete":  done,
	}, "")
}
