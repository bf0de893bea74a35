package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharmatrust/drugtrace/internal/config"
	"github.com/pharmatrust/drugtrace/internal/middleware"
	"github.com/pharmatrust/drugtrace/internal/models"
	"github.com/pharmatrust/drugtrace/internal/repository"
	"github.com/pharmatrust/drugtrace/pkg/utils"
)

// AuthHandler handles user registration and login.
type AuthHandler struct {
	users *repository.UserRepository
	cfg   *config.Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *repository.UserRepository, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg}
}

type registerUserRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Role          string `json:"role" binding:"required"`
	Name          string `json:"name" binding:"required"`
	APIKey        string `json:"apiKey" binding:"required"`
}

// Register creates a new user bound to a wallet address and a single role.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !utils.IsWalletAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}
	role := models.ParseRole(req.Role)
	if role == models.RoleNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role: " + req.Role})
		return
	}

	keyHash, err := bcrypt.GenerateFromPassword([]byte(req.APIKey), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash api key"})
		return
	}

	user := &models.User{
		WalletAddress: utils.NormalizeAddress(req.WalletAddress),
		Role:          role,
		Name:          req.Name,
		APIKeyHash:    string(keyHash),
		IsRegistered:  true,
		CreatedAt:     time.Now(),
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if err == repository.ErrDuplicate {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this wallet address already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	log.Printf("user registered: %s as %s", user.WalletAddress, user.Role)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"data": gin.H{
			"walletAddress": user.WalletAddress,
			"role":          user.Role,
		},
	})
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	APIKey        string `json:"apiKey" binding:"required"`
}

// Login verifies the caller's API key and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByWallet(c.Request.Context(), utils.NormalizeAddress(req.WalletAddress))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up user"})
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.APIKeyHash), []byte(req.APIKey)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := middleware.IssueToken(h.cfg, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"walletAddress": user.WalletAddress,
		"role":          user.Role,
	})
}

// GetUser returns one user by wallet address.
func (h *AuthHandler) GetUser(c *gin.Context) {
	walletAddress := utils.NormalizeAddress(c.Param("wallet"))

	user, err := h.users.GetByWallet(c.Request.Context(), walletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers returns all registered users.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}
