package webapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
	"pilotforce-server-go/internal/platform/storage"
)

// Service exposes the operator-facing web API: authentication, bookings and
// the admin surface.
type Service struct {
	cfg       *config.Config
	logger    *logging.Logger
	auth      *Authenticator
	users     *storage.UserRepository
	companies *storage.CompanyRepository
	assets    *storage.AssetRepository
	bookings  *storage.BookingRepository
}

func NewService(
	cfg *config.Config,
	logger *logging.Logger,
	auth *Authenticator,
	users *storage.UserRepository,
	companies *storage.CompanyRepository,
	assets *storage.AssetRepository,
	bookings *storage.BookingRepository,
) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		auth:      auth,
		users:     users,
		companies: companies,
		assets:    assets,
		bookings:  bookings,
	}
}

// Register wires the service's routes into the router groups. The auth
// endpoints only exist when an authenticator is configured; with auth
// disabled there is nothing to issue tokens against.
func (s *Service) Register(router *httptransport.Router) {
	secured := router.Secured
	if secured == nil {
		secured = router.API
	}

	if s.auth != nil {
		router.API.POST("/auth/login", s.handleLogin)
		router.API.POST("/auth/signup", s.handleSignup)
		secured.POST("/auth/refresh", s.handleRefresh)
	}

	secured.GET("/assets", s.handleListAssets)
	secured.POST("/assets", s.handleCreateAsset)
	secured.GET("/assets/:assetId", s.handleGetAsset)
	secured.PUT("/assets/:assetId", s.handleUpdateAsset)
	secured.DELETE("/assets/:assetId", s.handleDeleteAsset)

	secured.GET("/bookings", s.handleListBookings)
	secured.POST("/bookings", s.handleCreateBooking)
	secured.GET("/bookings/:bookingId", s.handleGetBooking)
	secured.PUT("/bookings/:bookingId", s.handleUpdateBooking)
	secured.DELETE("/bookings/:bookingId", s.handleDeleteBooking)

	admin := secured.Group("/admin")
	admin.Use(AdminMiddleware())
	admin.GET("/users", s.handleAdminListUsers)
	admin.POST("/users", s.handleAdminCreateUser)
	admin.PUT("/users/:userId", s.handleAdminUpdateUser)
	admin.DELETE("/users/:userId", s.handleAdminDeleteUser)
	admin.GET("/companies", s.handleAdminListCompanies)
	admin.POST("/companies", s.handleAdminCreateCompany)
	admin.PUT("/companies/:companyId", s.handleAdminUpdateCompany)
	admin.DELETE("/companies/:companyId", s.handleAdminDeleteCompany)
	admin.GET("/system", s.handleAdminSystemInfo)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	Email       string `json:"email" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
}

type authResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CompanyID string `json:"companyId"`
}

func (s *Service) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "email and password required", nil)
		return
	}

	user, err := s.users.FindByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		s.logger.ErrorTag("AUTH", "login lookup failed: %v", err)
		httptransport.RespondError(c, 500, "login failed", nil)
		return
	}
	if user == nil || user.Status != "active" {
		httptransport.RespondError(c, 401, "invalid credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httptransport.RespondError(c, 401, "invalid credentials", nil)
		return
	}

	token, err := s.auth.GenerateJWT(user.UserID, user.Username, user.Role, user.CompanyID)
	if err != nil {
		s.logger.ErrorTag("AUTH", "token generation failed: %v", err)
		httptransport.RespondError(c, 500, "login failed", nil)
		return
	}

	s.logger.InfoTag("AUTH", "user %s logged in", user.UserID)
	httptransport.RespondSuccess(c, 200, authResponse{
		Token:     token,
		UserID:    user.UserID,
		Username:  user.Username,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	}, "")
}

func (s *Service) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "email, username and password required", nil)
		return
	}
	email := strings.ToLower(req.Email)

	existing, err := s.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		s.logger.ErrorTag("AUTH", "signup lookup failed: %v", err)
		httptransport.RespondError(c, 500, "signup failed", nil)
		return
	}
	if existing != nil {
		httptransport.RespondError(c, 409, "account already exists", nil)
		return
	}

	// New accounts join the company whose mail domain matches theirs.
	companyID := ""
	if at := strings.LastIndex(email, "@"); at > 0 {
		company, err := s.companies.FindByEmailDomain(c.Request.Context(), email[at+1:])
		if err != nil {
			s.logger.WarnTag("AUTH", "company domain lookup failed: %v", err)
		} else if company != nil {
			companyID = company.CompanyID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httptransport.RespondError(c, 500, "signup failed", nil)
		return
	}

	user := &storage.User{
		UserID:       "user_" + uuid.NewString(),
		Email:        email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         "user",
		CompanyID:    companyID,
		PhoneNumber:  req.PhoneNumber,
		Status:       "active",
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		s.logger.ErrorTag("AUTH", "signup create failed: %v", err)
		httptransport.RespondError(c, 500, "signup failed", nil)
		return
	}

	token, err := s.auth.GenerateJWT(user.UserID, user.Username, user.Role, user.CompanyID)
	if err != nil {
		httptransport.RespondError(c, 500, "signup failed", nil)
		return
	}

	s.logger.InfoTag("AUTH", "user %s signed up", user.UserID)
	httptransport.RespondSuccess(c, 201, authResponse{
		Token:     token,
		UserID:    user.UserID,
		Username:  user.Username,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	}, "account created")
}

func (s *Service) handleRefresh(c *gin.Context) {
	userID := c.GetString("user_id")
	user, err := s.users.FindByUserID(c.Request.Context(), userID)
	if err != nil || user == nil {
		httptransport.RespondError(c, 401, "account no longer valid", nil)
		return
	}
	token, err := s.auth.GenerateJWT(user.UserID, user.Username, user.Role, user.CompanyID)
	if err != nil {
		httptransport.RespondError(c, 500, "refresh failed", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, gin.H{"token": token}, "")
}
