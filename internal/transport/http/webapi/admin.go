package webapi

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/crypto/bcrypt"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/platform/storage"
)

type adminUserView struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	CompanyID   string    `json:"companyId"`
	PhoneNumber string    `json:"phoneNumber"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) handleAdminListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context(), c.Query("companyId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to list users", nil)
		return
	}
	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, adminUserView{
			UserID:      u.UserID,
			Email:       u.Email,
			Username:    u.Username,
			Role:        u.Role,
			CompanyID:   u.CompanyID,
			PhoneNumber: u.PhoneNumber,
			Status:      u.Status,
			CreatedAt:   u.CreatedAt,
		})
	}
	httptransport.RespondSuccess(c, 200, gin.H{"users": views, "count": len(views)}, "")
}

func (s *Service) handleAdminCreateUser(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		Username  string `json:"username" binding:"required"`
		Password  string `json:"password" binding:"required"`
		Role      string `json:"role"`
		CompanyID string `json:"companyId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "email, username and password required", nil)
		return
	}
	role := req.Role
	if role == "" {
		role = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httptransport.RespondError(c, 500, "failed to create user", nil)
		return
	}
	user := &storage.User{
		UserID:       "user_" + uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		CompanyID:    req.CompanyID,
		Status:       "active",
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		s.logger.ErrorTag("ADMIN", "create user failed: %v", err)
		httptransport.RespondError(c, 500, "failed to create user", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "user %s created with role %s", user.UserID, role)
	httptransport.RespondSuccess(c, 201, gin.H{"userId": user.UserID}, "user created")
}

// handleAdminUpdateUser applies partial updates; setting status to
// "disabled" locks the account out of login.
func (s *Service) handleAdminUpdateUser(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.users.FindByUserID(ctx, c.Param("userId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load user", nil)
		return
	}
	if user == nil {
		httptransport.RespondError(c, 404, "user not found", nil)
		return
	}

	var req struct {
		Username    string `json:"username"`
		Role        string `json:"role"`
		CompanyID   string `json:"companyId"`
		PhoneNumber string `json:"phoneNumber"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid user payload", nil)
		return
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.CompanyID != "" {
		user.CompanyID = req.CompanyID
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Status != "" {
		user.Status = req.Status
	}

	if err := s.users.Update(ctx, user); err != nil {
		httptransport.RespondError(c, 500, "failed to update user", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "user %s updated", user.UserID)
	httptransport.RespondSuccess(c, 200, gin.H{"userId": user.UserID, "status": user.Status}, "user updated")
}

func (s *Service) handleAdminDeleteUser(c *gin.Context) {
	userID := c.Param("userId")
	if userID == c.GetString("user_id") {
		httptransport.RespondError(c, 400, "cannot delete your own account", nil)
		return
	}
	if err := s.users.Delete(c.Request.Context(), userID); err != nil {
		httptransport.RespondError(c, 500, "failed to delete user", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "user %s deleted", userID)
	httptransport.RespondSuccess(c, 200, gin.H{"userId": userID}, "user deleted")
}

func (s *Service) handleAdminListCompanies(c *gin.Context) {
	companies, err := s.companies.List(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, 500, "failed to list companies", nil)
		return
	}
	httptransport.RespondSuccess(c, 200, gin.H{"companies": companies, "count": len(companies)}, "")
}

func (s *Service) handleAdminCreateCompany(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		EmailDomain string `json:"emailDomain"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "company name required", nil)
		return
	}
	company := &storage.Company{
		CompanyID:   "company_" + uuid.NewString(),
		Name:        req.Name,
		EmailDomain: req.EmailDomain,
		Status:      "active",
	}
	if err := s.companies.Create(c.Request.Context(), company); err != nil {
		s.logger.ErrorTag("ADMIN", "create company failed: %v", err)
		httptransport.RespondError(c, 500, "failed to create company", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "company %s created", company.CompanyID)
	httptransport.RespondSuccess(c, 201, company, "company created")
}

func (s *Service) handleAdminUpdateCompany(c *gin.Context) {
	ctx := c.Request.Context()
	company, err := s.companies.FindByCompanyID(ctx, c.Param("companyId"))
	if err != nil {
		httptransport.RespondError(c, 500, "failed to load company", nil)
		return
	}
	if company == nil {
		httptransport.RespondError(c, 404, "company not found", nil)
		return
	}

	var req struct {
		Name        string `json:"name"`
		EmailDomain string `json:"emailDomain"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, 400, "invalid company payload", nil)
		return
	}
	if req.Name != "" {
		company.Name = req.Name
	}
	if req.EmailDomain != "" {
		company.EmailDomain = req.EmailDomain
	}
	if req.Status != "" {
		company.Status = req.Status
	}

	if err := s.companies.Update(ctx, company); err != nil {
		httptransport.RespondError(c, 500, "failed to update company", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "company %s updated", company.CompanyID)
	httptransport.RespondSuccess(c, 200, company, "company updated")
}

func (s *Service) handleAdminDeleteCompany(c *gin.Context) {
	companyID := c.Param("companyId")
	if err := s.companies.Delete(c.Request.Context(), companyID); err != nil {
		httptransport.RespondError(c, 500, "failed to delete company", nil)
		return
	}
	s.logger.InfoTag("ADMIN", "company %s deleted", companyID)
	httptransport.RespondSuccess(c, 200, gin.H{"companyId": companyID}, "company deleted")
}

// handleAdminSystemInfo reports host health for the admin dashboard.
func (s *Service) handleAdminSystemInfo(c *gin.Context) {
	info := gin.H{
		"goVersion":  runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"numCPU":     runtime.NumCPU(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info["memoryTotal"] = vm.Total
		info["memoryUsed"] = vm.Used
		info["memoryPercent"] = vm.UsedPercent
	}
	if h, err := host.Info(); err == nil {
		info["hostname"] = h.Hostname
		info["platform"] = h.Platform
		info["uptimeSeconds"] = h.Uptime
	}

	httptransport.RespondSuccess(c, 200, info, "")
}
