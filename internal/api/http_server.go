package api

import (
	"accounts/internal/auth"
	"accounts/internal/config"
	"accounts/internal/email"
	"accounts/internal/entity"
	"accounts/internal/model"
	"accounts/internal/service"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const msgNoPublicBaseURL = "PUBLIC_BASE_URL is not set, password reset links will use the request Host header"

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg     config.Config
	repo    model.Repository
	limiter RateLimiter

	// 服务层
	authService *service.AuthService
	userService *service.UserService
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, mailer email.Mailer, limiter RateLimiter) (*HTTPHandler, error) {
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	if err != nil {
		return nil, err
	}

	if cfg.IsProduction() && normalisePublicBase(cfg.PublicBaseURL) == "" {
		logrus.Warn(msgNoPublicBaseURL)
	}

	authSvc := service.NewAuthService(repo, authManager, auth.NewHasher(cfg.BcryptCost), mailer)
	return &HTTPHandler{
		cfg:         cfg,
		repo:        repo,
		limiter:     limiter,
		authService: authSvc,
		userService: service.NewUserService(repo, authSvc),
	}, nil
}

// Router 注册中间件与全部路由
func (h *HTTPHandler) Router() *gin.Engine {
	production := h.cfg.IsProduction()

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.Use(ErrorHandler(production))
	r.Use(gin.CustomRecovery(RecoveryHandler(production)))
	r.Use(SecurityHeadersMiddleware(production))
	r.Use(CORSMiddleware())
	r.Use(BodyLimitMiddleware(h.cfg.BodyLimitBytes))
	r.NoRoute(NotFoundHandler)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")
	apiGroup.Use(RateLimitMiddleware(h.limiter))

	users := apiGroup.Group("/v1/users")
	users.POST("/signup", h.Signup)
	users.POST("/login", h.Login)
	users.POST("/forgotPassword", h.ForgotPassword)
	users.PATCH("/resetPassword/:token", h.ResetPassword)

	protected := users.Group("")
	protected.Use(h.Protect())
	protected.PATCH("/updatePassword", h.UpdatePassword)
	protected.GET("/me", h.GetMe)
	protected.PATCH("/updateMe", h.UpdateMe)
	protected.DELETE("/deleteMe", h.DeleteMe)

	admin := protected.Group("")
	admin.Use(h.RestrictTo(entity.UserRoleAdmin))
	admin.GET("/allUsers", h.GetAllUsers)
	admin.GET("/:id", h.GetUser)

	return r
}

// requestContext 为存储调用设置超时
func (h *HTTPHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// publicBaseURL 返回邮件中链接使用的服务地址
func (h *HTTPHandler) publicBaseURL(c *gin.Context) string {
	if base := normalisePublicBase(h.cfg.PublicBaseURL); base != "" {
		return base
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
