package controller

import (
	"errors"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/service"
	"exam_eval_backend/internal/util"
	"fmt"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	Cfg         *config.Store
}

func NewAuthController(authService *service.AuthService, cfg *config.Store) *AuthController {
	return &AuthController{
		AuthService: authService,
		Cfg:         cfg,
	}
}

type SignupRequest struct {
	FullName string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student teacher"`
}

// Signup godoc
// @Summary Register a new user
// @Description Create a student or teacher account
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body SignupRequest true "Signup details"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := &model.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.UserRole(req.Role),
	}

	if err := c.AuthService.Register(user); err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"message": "Signup successful"})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=student teacher"`
}

// Login godoc
// @Summary Log in
// @Description Verify credentials and role, return a bearer token and the
// @Description role-specific dashboard redirect
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(req.Email, req.Password, model.UserRole(req.Role))
	if err != nil {
		if errors.Is(err, util.ErrInvalidCredentials) {
			util.Unauthorized(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	frontendBase := c.Cfg.Load().Frontend.BaseURL
	redirect := frontendBase + "/student-dashboard.html"
	if user.Role == model.Teacher {
		redirect = frontendBase + "/teacher-dashboard.html"
	}

	util.Success(ctx, gin.H{
		"message":  fmt.Sprintf("Welcome, %s", user.FullName),
		"redirect": redirect,
		"name":     user.FullName,
		"token":    token,
	})
}
