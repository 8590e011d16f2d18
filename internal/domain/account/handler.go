package account

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
	api.GET("/users", h.ListUsers)
	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)
	api.PUT("/users/:id", h.UpdateUser)
	api.DELETE("/users/:id", h.DeactivateUser)

	api.GET("/users/:id/roles", h.ListAssignments)
	api.POST("/users/:id/roles", h.AssignRole)
	api.DELETE("/users/:id/roles/:roleId", h.RevokeRole)

	api.GET("/users/:id/memberships", h.ListMemberships)
	api.POST("/users/:id/memberships", h.AddMembership)
	api.DELETE("/users/:id/memberships/:orgId", h.RemoveMembership)

	api.GET("/roles", h.ListRoles)
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

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreateUser(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	var u User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateUser(c.Request().Context(), uc, &u); err != nil {
		if rbac.IsDenied(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), uc, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateUser(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var u User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.ID = id
	if err := h.svc.UpdateUser(c.Request().Context(), uc, &u); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateUser(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	assignments, err := h.svc.ListAssignments(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, assignments)
}

func (h *Handler) AssignRole(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var a RoleAssignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.UserID = id
	if err := h.svc.AssignRole(c.Request().Context(), uc, &a); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) RevokeRole(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	roleID, err := pathID(c, "roleId")
	if err != nil {
		return err
	}
	if err := h.svc.RevokeRole(c.Request().Context(), uc, id, roleID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListMemberships(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	memberships, err := h.svc.ListMemberships(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, memberships)
}

func (h *Handler) AddMembership(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var m MembershipRecord
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.UserID = id
	if err := h.svc.AddMembership(c.Request().Context(), uc, &m); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) RemoveMembership(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveMembership(c.Request().Context(), uc, id, orgID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListRoles(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	var orgID *uuid.UUID
	if raw := c.QueryParam("organization_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid organization_id")
		}
		orgID = &id
	}
	roles, err := h.svc.ListRoles(c.Request().Context(), uc, orgID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roles)
}
