package organization

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/insano70/bcos-sub014/internal/platform/auth"
	"github.com/insano70/bcos-sub014/internal/rbac"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/organizations", h.ListOrganizations)
	api.POST("/organizations", h.CreateOrganization)
	api.GET("/organizations/:id", h.GetOrganization)
	api.PUT("/organizations/:id", h.UpdateOrganization)
	api.DELETE("/organizations/:id", h.DeactivateOrganization)
	api.GET("/organizations/:id/children", h.ListChildren)
	api.GET("/organizations/:id/subtree", h.ListSubtree)
	api.POST("/organizations/:id/parent", h.MoveOrganization)
}

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

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateOrganization(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateOrganization(c.Request().Context(), uc, &o); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrganization(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrganization(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	orgs, err := h.svc.ListOrganizations(c.Request().Context(), uc)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orgs)
}

func (h *Handler) ListChildren(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	children, err := h.svc.ListChildren(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, children)
}

func (h *Handler) ListSubtree(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	orgs, err := h.svc.ListSubtree(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orgs)
}

func (h *Handler) UpdateOrganization(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateOrganization(c.Request().Context(), uc, &o); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) MoveOrganization(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		ParentID *uuid.UUID `json:"parent_organization_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.MoveOrganization(c.Request().Context(), uc, id, body.ParentID); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeactivateOrganization(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateOrganization(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
