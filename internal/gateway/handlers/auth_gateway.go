package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mesa-system/internal/database/models"
	"mesa-system/internal/utils"
)

type AuthHTTPHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewAuthHTTPHandler(db *gorm.DB, tokenTTL time.Duration) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		db:       db,
		tokenTTL: tokenTTL,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Fullname string `json:"fullname" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

var validRoles = map[string]bool{
	models.RoleAdmin:      true,
	models.RoleRestoAdmin: true,
	models.RoleResto:      true,
	models.RoleKitchen:    true,
	models.RoleCustomer:   true,
}

func (h *AuthHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if !validRoles[req.Role] {
		c.JSON(http.StatusBadRequest, errorResponse("Unknown role"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var existing models.User
	if err := h.db.WithContext(ctx).
		Where("username = ? OR email = ?", req.Username, req.Email).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, errorResponse("Username or email already exists"))
		return
	} else if err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Error hashing password"))
		return
	}

	newUser := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(pwHash),
		Fullname: req.Fullname,
		Role:     req.Role,
		IsActive: true,
	}
	if err := h.db.WithContext(ctx).Create(&newUser).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Error creating user"))
		return
	}

	token, exp, err := utils.GenerateToken(newUser.ID, newUser.Username, newUser.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Error generating token"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("User registered successfully", gin.H{
		"token":      token,
		"expires_at": exp,
		"user": userView{
			ID:       newUser.ID,
			Username: newUser.Username,
			Fullname: newUser.Fullname,
			Role:     newUser.Role,
		},
	}))
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", req.Username, true).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Error generating token"))
		return
	}

	now := time.Now()
	user.LastLogin = &now
	h.db.WithContext(ctx).Model(&user).Update("last_login", now)

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user": userView{
			ID:       user.ID,
			Username: user.Username,
			Fullname: user.Fullname,
			Role:     user.Role,
		},
	}))
}
