package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailaprogramare/contest-backend/internal/auth"
	"github.com/hailaprogramare/contest-backend/internal/export"
	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/service"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

const (
	userTokenTTL  = 24 * time.Hour
	adminTokenTTL = 12 * time.Hour
)

// IdentityVerifier validates a third-party credential and returns the
// profile it asserts.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*model.Identity, error)
}

type Handler struct {
	team  *service.TeamService
	flags *service.FlagService
	admin *service.AdminService

	verifier      IdentityVerifier
	healthChecker HealthChecker

	staticDir      string
	requestTimeout time.Duration

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger:         logger,
		requestTimeout: 10 * time.Second,
	}
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithFlagService(flags *service.FlagService) *Handler {
	h.flags = flags
	return h
}

func (h *Handler) WithAdminService(admin *service.AdminService) *Handler {
	h.admin = admin
	return h
}

func (h *Handler) WithIdentityVerifier(v IdentityVerifier) *Handler {
	h.verifier = v
	return h
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithStaticDir(dir string) *Handler {
	h.staticDir = dir
	return h
}

func (h *Handler) WithRequestTimeout(d time.Duration) *Handler {
	h.requestTimeout = d
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(RequestTimeout(h.requestTimeout))

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	api := e.Group("/api")

	api.GET("/flags", h.GetFlags)
	api.POST("/auth/google", h.GoogleLogin)
	api.POST("/admin/login", h.AdminLogin)

	team := api.Group("/team", AuthMiddleware(auth.TokenTypeUser, auth.TokenTypeAdmin))

	team.POST("", h.RegisterTeam)
	team.GET("", h.GetMyTeam)
	team.PUT("", h.UpdateTeam)
	team.DELETE("", h.DeleteTeam)
	team.POST("/join", h.JoinTeam)
	team.POST("/leave", h.LeaveTeam)
	team.POST("/solution", h.SubmitSolution)

	admin := api.Group("/admin", AuthMiddleware(auth.TokenTypeAdmin))

	admin.GET("/teams", h.ListTeams)
	admin.GET("/teams/export", h.ExportTeams)
	admin.GET("/teams/:id", h.GetTeamDetail)
	admin.DELETE("/teams/:id", h.AdminDeleteTeam)
	admin.POST("/flags/:name/toggle", h.ToggleFlag)
	admin.PUT("/subjects/:section", h.SetSubjectLink)

	// The SPA build is served at the root; unknown non-API paths fall
	// back to index.html so client routing keeps working on reload.
	if h.staticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  h.staticDir,
			Index: "index.html",
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasPrefix(path, "/api") || path == "/health"
			},
		}))
	}
}

func (h *Handler) GoogleLogin(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Credential string `json:"credential" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	identity, err := h.verifier.Verify(e.Request().Context(), req.Credential)
	if err != nil {
		l.Warn("identity verification failed", zap.Error(err))
		return h.transportError(e, service.NewError(service.ErrorCodeUnauthorized, "identity verification failed"))
	}

	token, err := auth.GenerateUserToken(identity, userTokenTTL)
	if err != nil {
		l.Error("failed to issue session token", zap.Error(err))
		return h.transportError(e, service.NewError(service.ErrorCodeUnspecified, "failed to issue session token"))
	}

	l.Info("user signed in", zap.String("sub", identity.Sub))

	return e.JSON(http.StatusOK, struct {
		Token string          `json:"token"`
		User  *model.Identity `json:"user"`
	}{Token: token, User: identity})
}

func (h *Handler) AdminLogin(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if serr := h.admin.Authenticate(e.Request().Context(), req.Password); serr != nil {
		return h.transportError(e, serr)
	}

	token, err := auth.GenerateAdminToken(adminTokenTTL)
	if err != nil {
		l.Error("failed to issue admin token", zap.Error(err))
		return h.transportError(e, service.NewError(service.ErrorCodeUnspecified, "failed to issue admin token"))
	}

	return e.JSON(http.StatusOK, struct {
		Token string `json:"token"`
	}{Token: token})
}

func (h *Handler) GetFlags(e echo.Context) error {
	snapshot, serr := h.flags.Snapshot(e.Request().Context())
	if serr != nil {
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, snapshot)
}

func (h *Handler) RegisterTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	claims := claimsFromContext(e)

	profile := &model.TeamProfile{}
	if err := h.decodeRequest(e, profile); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("registering team", zap.String("team_name", profile.Name), zap.String("owner_sub", claims.Subject))

	team, serr := h.team.Register(e.Request().Context(), claims.Identity(), profile)
	if serr != nil {
		l.Error("failed to register team", zap.String("team_name", profile.Name), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusCreated, team)
}

func (h *Handler) GetMyTeam(e echo.Context) error {
	claims := claimsFromContext(e)

	view, serr := h.team.Get(e.Request().Context(), claims.Subject)
	if serr != nil {
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	claims := claimsFromContext(e)

	profile := &model.TeamProfile{}
	if err := h.decodeRequest(e, profile); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, serr := h.team.Update(e.Request().Context(), claims.Subject, profile)
	if serr != nil {
		l.Error("failed to update team", zap.String("owner_sub", claims.Subject), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) DeleteTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	claims := claimsFromContext(e)

	if serr := h.team.Delete(e.Request().Context(), claims.Subject); serr != nil {
		l.Error("failed to delete team", zap.String("owner_sub", claims.Subject), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) JoinTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	claims := claimsFromContext(e)

	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	view, serr := h.team.Join(e.Request().Context(), claims.Identity(), req.Code)
	if serr != nil {
		l.Error("failed to join team", zap.String("user_sub", claims.Subject), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, view)
}

func (h *Handler) LeaveTeam(e echo.Context) error {
	claims := claimsFromContext(e)

	if serr := h.team.Leave(e.Request().Context(), claims.Subject); serr != nil {
		return h.transportError(e, serr)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitSolution(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	claims := claimsFromContext(e)

	var req struct {
		SolutionURL string `json:"solution_url" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, serr := h.team.SubmitSolution(e.Request().Context(), claims.Subject, req.SolutionURL)
	if serr != nil {
		l.Error("failed to submit solution", zap.String("user_sub", claims.Subject), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) ListTeams(e echo.Context) error {
	teams, serr := h.admin.ListTeams(e.Request().Context(), e.QueryParam("search"))
	if serr != nil {
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) GetTeamDetail(e echo.Context) error {
	detail, serr := h.admin.GetTeam(e.Request().Context(), e.Param("id"))
	if serr != nil {
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, detail)
}

func (h *Handler) AdminDeleteTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	id := e.Param("id")

	if serr := h.admin.DeleteTeam(e.Request().Context(), id); serr != nil {
		l.Error("failed to delete team", zap.String("team_id", id), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) ExportTeams(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teams, serr := h.admin.ListTeams(e.Request().Context(), e.QueryParam("search"))
	if serr != nil {
		return h.transportError(e, serr)
	}

	data, err := export.TeamsCSV(teams)
	if err != nil {
		l.Error("failed to render CSV", zap.Error(err))
		return h.transportError(e, service.NewError(service.ErrorCodeUnspecified, "failed to render CSV"))
	}

	filename := export.Filename(time.Now())
	e.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	return e.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *Handler) ToggleFlag(e echo.Context) error {
	name := e.Param("name")

	value, serr := h.flags.Toggle(e.Request().Context(), name)
	if serr != nil {
		return h.transportError(e, serr)
	}

	return e.JSON(http.StatusOK, struct {
		Flag  string `json:"flag"`
		Value bool   `json:"value"`
	}{Flag: name, Value: value})
}

func (h *Handler) SetSubjectLink(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Link string `json:"link" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	section := e.Param("section")

	if serr := h.flags.SetSubjectLink(e.Request().Context(), section, req.Link); serr != nil {
		l.Error("failed to save subject link", zap.String("section", section), zap.Any("error", serr))
		return h.transportError(e, serr)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeValidation, service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeUnauthorized:
		return e.JSON(http.StatusUnauthorized, response)
	case service.ErrorCodeForbidden, service.ErrorCodeRegistrationClosed:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeAlreadyExists, service.ErrorCodeContestNotStarted:
		return e.JSON(http.StatusConflict, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
