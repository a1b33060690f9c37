package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "vestra/internal/errors"
	"vestra/internal/middleware"
	"vestra/internal/models"
	"vestra/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	investors services.InvestorServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(investors services.InvestorServicer) *AuthHandler {
	return &AuthHandler{investors: investors}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"max=100"`
	Surname   string `json:"surname" binding:"max=100"`
	Phone     string `json:"phone" binding:"max=32"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func investorJSON(investor *models.Investor) gin.H {
	return gin.H{
		"id":             investor.ID,
		"email":          investor.Email,
		"first_name":     investor.FirstName,
		"surname":        investor.Surname,
		"account_number": investor.AccountNumber,
	}
}

// Register handles investor registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investor, err := h.investors.Register(req.Email, req.Password, req.FirstName, req.Surname, req.Phone)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := middleware.GenerateToken(investor)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":    token,
		"investor": investorJSON(investor),
	})
}

// Login handles investor login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	investor, err := h.investors.AttemptLogin(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := middleware.GenerateToken(investor)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"investor": investorJSON(investor),
	})
}
