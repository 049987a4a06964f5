package webapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/platform/storage"
)

type bookingRequest struct {
	AssetID         string          `json:"assetId"`
	AssetName       string          `json:"assetName"`
	JobTypes        []string        `json:"jobTypes"`
	FlightDate      string          `json:"flightDate"`
	Location        string          `json:"location"`
	Postcode        string          `json:"postcode"`
	Notes           string          `json:"notes"`
	ScheduleDetails json.RawMessage `json:"scheduleDetails"`
}

// normalizePostcode uppercases and collapses whitespace so stored postcodes
// compare equal regardless of how the caller typed them.
func normalizePostcode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

func newBookingID() string {
	return fmt.Sprintf("booking_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// canAccessBooking scopes bookings to the caller's company; admins see all.
func canAccessBooking(c *gin.Context, booking *storage.Booking) bool {
	if c.GetString("role") == "admin" {
		return true
	}
	return booking.CompanyID != "" && booking.CompanyID == c.GetString("company_id")
}

func (s *Service) handleListBookings(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		list []storage.Booking
		err  error
	)
	if c.GetString("role") == "admin" {
		list, err = s.bookings.ListAll(ctx)
	} else {
		list, err = s.bookings.ListByCompany(ctx, c.GetString("company_id"))
	}
	if err != nil {
		s.logger.ErrorTag("HTTP", "list bookings failed: %v", err)
		httptransport.RespondError(c, 500, "failed to list bookings", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, gin.H{"bookings": list, "count": len(list)}, "")
}

func (s *Service) handleCreateBooking(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid booking payload", nil)
		return
	}
	if req.AssetName == "" || req.FlightDate == "" {
		httptransport.RespondError(c, 400, "assetName and flightDate required", nil)
		return
	}

	jobTypes, _ := json.Marshal(req.JobTypes)
	booking := &storage.Booking{
		BookingID:       newBookingID(),
		CompanyID:       c.GetString("company_id"),
		UserID:          c.GetString("user_id"),
		AssetID:         req.AssetID,
		AssetName:       req.AssetName,
		JobTypes:        datatypes.JSON(jobTypes),
		FlightDate:      req.FlightDate,
		Location:        req.Location,
		Postcode:        normalizePostcode(req.Postcode),
		Status:          "pending",
		Notes:           req.Notes,
		ScheduleDetails: datatypes.JSON(req.ScheduleDetails),
	}
	if err := s.bookings.Create(c.Request.Context(), booking); err != nil {
		s.logger.ErrorTag("HTTP", "create booking failed: %v", err)
		httptransport.RespondError(c, 500, "failed to create booking", nil)
		return
	}

	s.logger.InfoTag("HTTP", "booking %s created for asset %s", booking.BookingID, booking.AssetName)
	httptransport.RespondSuccess(c, 201, booking, "booking created")
}

func (s *Service) handleGetBooking(c *gin.Context) {
	booking, err := s.bookings.FindByBookingID(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load booking", nil)
		return
	}
	if booking == nil || !canAccessBooking(c, booking) {
		httptransport.RespondError(c, 404, "booking not found", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, booking, "")
}

func (s *Service) handleUpdateBooking(c *gin.Context) {
	ctx := c.Request.Context()
	booking, err := s.bookings.FindByBookingID(ctx, c.Param("bookingId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load booking", nil)
		return
	}
	if booking == nil || !canAccessBooking(c, booking) {
		httptransport.RespondError(c, 404, "booking not found", nil)
		return
	}

	var req struct {
		bookingRequest
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid booking payload", nil)
		return
	}

	if req.AssetName != "" {
		booking.AssetName = req.AssetName
	}
	if req.FlightDate != "" {
		booking.FlightDate = req.FlightDate
	}
	if req.Location != "" {
		booking.Location = req.Location
	}
	if req.Postcode != "" {
		booking.Postcode = normalizePostcode(req.Postcode)
	}
	if req.Notes != "" {
		booking.Notes = req.Notes
	}
	if req.Status != "" {
		booking.Status = req.Status
	}
	if req.JobTypes != nil {
		jobTypes, _ := json.Marshal(req.JobTypes)
		booking.JobTypes = datatypes.JSON(jobTypes)
	}
	if len(req.ScheduleDetails) > 0 {
		booking.ScheduleDetails = datatypes.JSON(req.ScheduleDetails)
	}

	if err := s.bookings.Update(ctx, booking); err != nil {
		s.logger.ErrorTag("HTTP", "update booking failed: %v", err)
		httptransport.RespondError(c, 500, "failed to update booking", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, booking, "booking updated")
}

func (s *Service) handleDeleteBooking(c *gin.Context) {
	ctx := c.Request.Context()
	booking, err := s.bookings.FindByBookingID(ctx, c.Param("bookingId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load booking", nil)
		return
	}
	if booking == nil || !canAccessBooking(c, booking) {
		httptransport.RespondError(c, 404, "booking not found", nil)
		return
	}
	if err := s.bookings.Delete(ctx, booking.BookingID); err != nil {
		httptransport.RespondError(c, 500, "failed to delete booking", nil)
		return
	}
	s.logger.InfoTag("HTTP", "booking %s deleted", booking.BookingID)
	httptransport.RespondSuccess(c, 200, gin.H{"bookingId": booking.BookingID}, "booking deleted")
}
