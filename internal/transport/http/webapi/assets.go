package webapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/platform/storage"
)

type assetRequest struct {
	Name        string          `json:"name"`
	AssetType   string          `json:"assetType"`
	Address     string          `json:"address"`
	Postcode    string          `json:"postcode"`
	Area        float64         `json:"area"`
	CenterLat   *float64        `json:"centerLat"`
	CenterLon   *float64        `json:"centerLon"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func newAssetID() string {
	return fmt.Sprintf("asset_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// canAccessAsset scopes assets to the caller's company; admins see all.
func canAccessAsset(c *gin.Context, asset *storage.Asset) bool {
	if c.GetString("role") == "admin" {
		return true
	}
	return asset.CompanyID != "" && asset.CompanyID == c.GetString("company_id")
}

func (s *Service) handleListAssets(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		list []storage.Asset
		err  error
	)
	if c.GetString("role") == "admin" {
		list, err = s.assets.ListAll(ctx)
	} else {
		list, err = s.assets.ListByCompany(ctx, c.GetString("company_id"))
	}
	if err != nil {
		s.logger.ErrorTag("HTTP", "list assets failed: %v", err)
		httptransport.RespondError(c, 500, "failed to list assets", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, gin.H{"assets": list, "count": len(list)}, "")
}

func (s *Service) handleCreateAsset(c *gin.Context) {
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid asset payload", nil)
		return
	}
	if req.Name == "" {
		httptransport.RespondError(c, 400, "asset name required", nil)
		return
	}

	asset := &storage.Asset{
		AssetID:     newAssetID(),
		CompanyID:   c.GetString("company_id"),
		UserID:      c.GetString("user_id"),
		Name:        req.Name,
		AssetType:   req.AssetType,
		Address:     req.Address,
		Postcode:    normalizePostcode(req.Postcode),
		Area:        req.Area,
		CenterLat:   req.CenterLat,
		CenterLon:   req.CenterLon,
		Coordinates: datatypes.JSON(req.Coordinates),
		Status:      "active",
	}
	if err := s.assets.Create(c.Request.Context(), asset); err != nil {
		s.logger.ErrorTag("HTTP", "create asset failed: %v", err)
		httptransport.RespondError(c, 500, "failed to create asset", nil)
		return
	}

	s.logger.InfoTag("HTTP", "asset %s created (%s)", asset.AssetID, asset.Name)
	httptransport.RespondSuccess(c, 201, asset, "asset created")
}

func (s *Service) handleGetAsset(c *gin.Context) {
	asset, err := s.assets.FindByAssetID(c.Request.Context(), c.Param("assetId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load asset", nil)
		return
	}
	if asset == nil || !canAccessAsset(c, asset) {
		httptransport.RespondError(c, 404, "asset not found", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, asset, "")
}

func (s *Service) handleUpdateAsset(c *gin.Context) {
	ctx := c.Request.Context()
	asset, err := s.assets.FindByAssetID(ctx, c.Param("assetId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load asset", nil)
		return
	}
	if asset == nil || !canAccessAsset(c, asset) {
		httptransport.RespondError(c, 404, "asset not found", nil)
		return
	}

	var req struct {
		assetRequest
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid asset payload", nil)
		return
	}

	if req.Name != "" {
		asset.Name = req.Name
	}
	if req.AssetType != "" {
		asset.AssetType = req.AssetType
	}
	if req.Address != "" {
		asset.Address = req.Address
	}
	if req.Postcode != "" {
		asset.Postcode = normalizePostcode(req.Postcode)
	}
	if req.Area > 0 {
		asset.Area = req.Area
	}
	if req.CenterLat != nil {
		asset.CenterLat = req.CenterLat
	}
	if req.CenterLon != nil {
		asset.CenterLon = req.CenterLon
	}
	if len(req.Coordinates) > 0 {
		asset.Coordinates = datatypes.JSON(req.Coordinates)
	}
	if req.Status != "" {
		asset.Status = req.Status
	}

	if err := s.assets.Update(ctx, asset); err != nil {
		s.logger.ErrorTag("HTTP", "update asset failed: %v", err)
		httptransport.RespondError(c, 500, "failed to update asset", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, asset, "asset updated")
}

func (s *Service) handleDeleteAsset(c *gin.Context) {
	ctx := c.Request.Context()
	asset, err := s.assets.FindByAssetID(ctx, c.Param("assetId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load asset", nil)
		return
	}
	if asset == nil || !canAccessAsset(c, asset) {
		httptransport.RespondError(c, 404, "asset not found", nil)
		return
	}
	if err := s.assets.Delete(ctx, asset.AssetID); err != nil {
		httptransport.RespondError(c, 500, "failed to delete asset", nil)
		return
	}
	s.logger.InfoTag("HTTP", "asset %s deleted", asset.AssetID)
	httptransport.RespondSuccess(c, 200, gin.H{"assetId": asset.AssetID}, "asset deleted")
}
