package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/server"
)

// AdminHandler serves /admin routes.
type AdminHandler struct {
	stats  UserStats
	health HealthSource
}

// NewAdminHandler creates the handler. health may be nil.
func NewAdminHandler(stats UserStats, health HealthSource) *AdminHandler {
	return &AdminHandler{stats: stats, health: health}
}

// Overview handles GET /admin/overview.
func (h *AdminHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	total, err := h.stats.Count(ctx, "")
	if err != nil {
		server.RespondWithError(c, errors.DatabaseError(err))
		return
	}
	resp := OverviewResponse{Users: total, ByRole: map[string]int64{}}
	for _, role := range []string{permission.RoleAdmin, permission.RoleStudent} {
		n, err := h.stats.Count(ctx, role)
		if err != nil {
			server.RespondWithError(c, errors.DatabaseError(err))
			return
		}
		resp.ByRole[role] = n
	}
	if h.health != nil {
		for _, hs := range h.health(ctx) {
			resp.Services = append(resp.Services, ServiceStatus{Name: hs.Name, Status: string(hs.Status)})
		}
	}
	server.RespondOK(c, "Admin overview", resp)
}
