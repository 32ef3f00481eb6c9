package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/middleware"
	"github.com/kengoodridge/ai-chatbot/internal/models"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/jwt"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

type RegisterDTO struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

var errEmailTaken = errors.New("email already registered")

// Register creates a user; the first registered user becomes admin.
func (s *Service) Register(email, password string) (*models.UserModel, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.Model(&models.UserModel{}).Count(&total).Error; err != nil {
		return nil, err
	}

	user := models.UserModel{
		Email:    email,
		Password: string(hash),
		IsAdmin:  total == 0,
	}
	return &user, s.db.Create(&user).Error
}

// Login verifies credentials and returns the user.
func (s *Service) Login(email, password string) (*models.UserModel, error) {
	var user models.UserModel
	err := s.db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.GET("/me", authMW, h.me)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}
	user, err := h.svc.Register(dto.Email, dto.Password)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	h.respondWithToken(c, user, true)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}
	user, err := h.svc.Login(dto.Email, dto.Password)
	if err != nil {
		response.Unauthorized(c)
		return
	}
	h.respondWithToken(c, user, false)
}

func (h *Handler) me(c *gin.Context) {
	var user models.UserModel
	if err := h.svc.db.First(&user, "id = ?", middleware.CurrentUserID(c)).Error; err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, user)
}

func (h *Handler) respondWithToken(c *gin.Context, user *models.UserModel, created bool) {
	token, err := jwt.Sign(user.ID, tokenTTL)
	if err != nil {
		response.InternalError(c)
		return
	}
	body := gin.H{"token": token, "user": user}
	if created {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}
