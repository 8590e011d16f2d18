package practice

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/insano70/bcos-sub014/internal/platform/auth"
	"github.com/insano70/bcos-sub014/internal/rbac"
	"github.com/insano70/bcos-sub014/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/practices", h.ListPractices)
	api.GET("/practices/:id", h.GetPractice)
	api.POST("/practices", h.CreatePractice)
	api.PUT("/practices/:id", h.UpdatePractice)
	api.DELETE("/practices/:id", h.DeletePractice)
}

// httpError maps authorization failures onto transport status codes so
// denials are uniform across every resource.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case rbac.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case rbac.IsDenied(err):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreatePractice(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	var p Practice
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePractice(c.Request().Context(), uc, &p); err != nil {
		if rbac.IsDenied(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPractice(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPractice(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPractices(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPractices(c.Request().Context(), uc,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePractice(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Practice
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePractice(c.Request().Context(), uc, &p); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePractice(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePractice(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
