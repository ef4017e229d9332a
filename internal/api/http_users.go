package api

import (
	"accounts/internal/entity/converter"
	"accounts/internal/entity/dto"
	"accounts/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAllUsers 管理员获取全部用户
func (h *HTTPHandler) GetAllUsers(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	users, err := h.userService.GetAllUsers(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.UserListResponse{
		Status:  dto.StatusSuccess,
		Results: len(users),
		Data:    dto.UsersData{Users: converter.UsersToSummaries(users)},
	})
}

// GetUser 管理员按 ID 获取用户
func (h *HTTPHandler) GetUser(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.userService.GetUser(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{Status: dto.StatusSuccess, Data: dto.UserData{User: converter.UserToSummary(user)}})
}

func (h *HTTPHandler) GetMe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.userService.GetMe(ctx, CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{Status: dto.StatusSuccess, Data: dto.UserData{User: converter.UserToSummary(user)}})
}

func (h *HTTPHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateMeRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.userService.UpdateMe(ctx, CurrentUser(c), service.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{Status: dto.StatusSuccess, Data: dto.UserData{User: converter.UserToSummary(user)}})
}

func (h *HTTPHandler) DeleteMe(c *gin.Context) {
	var req dto.DeleteMeRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.userService.DeleteMe(ctx, CurrentUser(c), req.Password); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
