package api

import (
	"accounts/internal/apperr"
	"accounts/internal/entity/converter"
	"accounts/internal/entity/dto"
	"accounts/internal/service"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const jwtCookieName = "jwt"

func (h *HTTPHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.authService.Signup(ctx, service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendToken(c, http.StatusCreated, res)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendToken(c, http.StatusOK, res)
}

func (h *HTTPHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.authService.ForgotPassword(ctx, req.Email, h.publicBaseURL(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Status: dto.StatusSuccess, Message: service.MsgResetSent})
}

func (h *HTTPHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.authService.ResetPassword(ctx, c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendToken(c, http.StatusCreated, res)
}

func (h *HTTPHandler) UpdatePassword(c *gin.Context) {
	var req dto.UpdatePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.authService.UpdatePassword(ctx, CurrentUser(c), req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendToken(c, http.StatusOK, res)
}

// sendToken 写入 jwt cookie 并返回令牌与用户信息
func (h *HTTPHandler) sendToken(c *gin.Context, status int, res *service.AuthResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtCookieName, res.Session.Token, int(h.cfg.CookieMaxAge().Seconds()), "/", "", h.cfg.IsProduction(), true)

	c.JSON(status, dto.AuthResponse{
		Status:    dto.StatusSuccess,
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Data:      dto.UserData{User: converter.UserToSummary(res.User)},
	})
}

// bindJSON 解析 JSON 请求体；空请求体视为空对象
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return apperr.Wrap(err, apperr.KindBadRequest, http.StatusBadRequest, "Invalid request payload")
}
