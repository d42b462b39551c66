package public

import (
	"github.com/Rishiupp/pettrack-api/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UserLoginRequest is the login payload.
type UserLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserLogin exchanges phone + password for a JWT.
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Login(req.Phone, req.Password)
	if err != nil {
		requestLog(c).Warnw("user_login_failed", "phone", req.Phone, "error", err)
		respondLoginError(c, err)
		return
	}

	requestLog(c).Infow("user_login_success", "user_id", user.ID)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":            user.ID,
			"phone":         user.Phone,
			"display_name":  user.DisplayName,
			"role":          user.Role,
			"premium_until": user.PremiumUntil,
		},
	})
}

// GetCurrentUser returns the authenticated user's profile.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "user fetch failed", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "user not found", nil)
		return
	}

	response.Success(c, gin.H{
		"id":            user.ID,
		"phone":         user.Phone,
		"email":         user.Email,
		"display_name":  user.DisplayName,
		"role":          user.Role,
		"status":        user.Status,
		"premium_until": user.PremiumUntil,
		"created_at":    user.CreatedAt,
	})
}
