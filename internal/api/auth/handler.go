package auth

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gsa-hub/config"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
)

type Handler struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *zap.Logger
}

func NewHandler(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{DB: db, Cfg: cfg, Log: log}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isEmailValid(email string) bool {
	pattern := `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`
	matched, _ := regexp.MatchString(pattern, email)
	return matched
}

// Register is POST /register: creates the tenant and its first user in one
// transaction. A valid ?ref code carried from the share link binds the new
// user (and tenant) to the referrer; the binding is immutable afterwards.
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		TenantName   string `json:"tenantName"`
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		CpfCnpj      string `json:"cpfCnpj"`
		ReferralCode string `json:"referralCode"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}
	if !isEmailValid(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	// An unknown referral code is dropped silently rather than failing the
	// registration: the account matters more than the coupon.
	var referrerTenantID *uint
	var referredBy *string
	if input.ReferralCode != "" {
		ownerID, err := referrals.OwnerTenantID(h.DB, input.ReferralCode)
		switch {
		case err == nil:
			referrerTenantID = &ownerID
			code := input.ReferralCode
			referredBy = &code
		case err == referrals.ErrCodeNotFound:
			h.Log.Warn("registration with unknown referral code", zap.String("code", input.ReferralCode))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate referral code"})
			return
		}
	}

	tenantName := input.TenantName
	if tenantName == "" {
		tenantName = input.Name
	}

	var user users.User
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		tenant := tenants.Tenant{
			Name:             tenantName,
			ReferrerTenantID: referrerTenantID,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		user = users.User{
			TenantID:       tenant.ID,
			Name:           input.Name,
			Email:          input.Email,
			Password:       &hashed,
			AuthProvider:   "local",
			CpfCnpj:        input.CpfCnpj,
			Role:           "user",
			ReferredByCode: referredBy,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account created successfully"})
}

// Login is POST /login.
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.signToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}

// Me is GET /me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := h.DB.Preload("Tenant").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               user.ID,
		"tenant_id":        user.TenantID,
		"name":             user.Name,
		"email":            user.Email,
		"cpf_cnpj":         user.CpfCnpj,
		"role":             user.Role,
		"referred_by_code": user.ReferredByCode,
	})
}

func (h *Handler) signToken(user *users.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"email":     user.Email,
		"role":      user.Role,
		"exp":       time.Now().Add(time.Hour * 24).Unix(),
	})
	return token.SignedString([]byte(h.Cfg.JWTSecret))
}
