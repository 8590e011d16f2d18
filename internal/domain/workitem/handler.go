package workitem

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
	api.GET("/work-items", h.ListWorkItems)
	api.GET("/work-items/:id", h.GetWorkItem)
	api.POST("/work-items", h.CreateWorkItem)
	api.PUT("/work-items/:id", h.UpdateWorkItem)
	api.POST("/work-items/:id/transitions", h.Transition)
	api.POST("/work-items/:id/assignee", h.Assign)
	api.DELETE("/work-items/:id", h.DeleteWorkItem)
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

func (h *Handler) CreateWorkItem(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	var w WorkItem
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWorkItem(c.Request().Context(), uc, &w); err != nil {
		if rbac.IsDenied(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWorkItem(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.GetWorkItem(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWorkItems(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status"), Limit: pg.Limit, Offset: pg.Offset}
	if pidStr := c.QueryParam("practice_id"); pidStr != "" {
		pid, err := uuid.Parse(pidStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid practice_id")
		}
		f.PracticeID = &pid
	}
	items, total, err := h.svc.ListWorkItems(c.Request().Context(), uc, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateWorkItem(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w WorkItem
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateWorkItem(c.Request().Context(), uc, &w); err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, w)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) Transition(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.Transition(c.Request().Context(), uc, id, req.Status)
	if err != nil {
		if rbac.IsDenied(err) || rbac.IsNotFound(err) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, w)
}

type assignRequest struct {
	AssignedTo *uuid.UUID `json:"assigned_to"`
}

func (h *Handler) Assign(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.Assign(c.Request().Context(), uc, id, req.AssignedTo)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWorkItem(c echo.Context) error {
	uc, err := auth.MustUserContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWorkItem(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
