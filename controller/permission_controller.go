// controller/permission_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/agentgate/agentgate/errors"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/service"
	"github.com/agentgate/agentgate/util"
	helper_util "github.com/agentgate/agentgate/util/helper"
)

type PermissionController struct {
	permissionService service.IPermissionService
}

func NewPermissionController(permissionService service.IPermissionService) *PermissionController {
	return &PermissionController{
		permissionService: permissionService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PermissionController) RegisterRoutes(r *gin.RouterGroup) {
	agents := r.Group("/agents")
	{
		agents.GET("/:agentId/permissions", pc.GetConfig)
		agents.PUT("/:agentId/permissions", pc.UpdateConfig)
		agents.GET("/:agentId/permissions/history", pc.GetHistory)
		agents.POST("/:agentId/evaluate", pc.Evaluate)
	}
}

// GetConfig endpoint
func (pc *PermissionController) GetConfig(c *gin.Context) {
	agentID := c.Param("agentId")

	config, err := pc.permissionService.GetConfig(c, agentID)
	if err != nil {
		if errors.Is(err, gate_errors.ErrAgentNotFound) {
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Unknown agent", err)
		} else {
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to load agent config", err)
		}
		return
	}

	// config is null for a known agent that has no rules yet
	c.JSON(http.StatusOK, gin.H{"agentId": agentID, "config": config})
}

// UpdateConfig endpoint
func (pc *PermissionController) UpdateConfig(c *gin.Context) {
	agentID := c.Param("agentId")
	var config model.AgentPermissionsConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid config payload", err)
		return
	}
	operatorID := util.GetOperatorIDFromContext(c)

	if err := pc.permissionService.UpdateConfig(c, agentID, &config, operatorID); err != nil {
		switch {
		case errors.Is(err, gate_errors.ErrAgentNotFound):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Unknown agent", err)
		case errors.Is(err, gate_errors.ErrInvalidConfig):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, err.Error(), err)
		case errors.Is(err, gate_errors.ErrPersistenceFailure):
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to persist config", err)
		default:
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to update config", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "agentId": agentID})
}

// GetHistory endpoint
func (pc *PermissionController) GetHistory(c *gin.Context) {
	agentID := c.Param("agentId")
	limit, err := helper_util.GetLimitParam(c, 50)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid limit parameter", err)
		return
	}

	history, err := pc.permissionService.History(c, agentID, limit)
	if err != nil {
		if errors.Is(err, gate_errors.ErrAgentNotFound) {
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Unknown agent", err)
		} else {
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to load history", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"agentId": agentID, "history": history, "limit": limit})
}

// Evaluate endpoint
func (pc *PermissionController) Evaluate(c *gin.Context) {
	agentID := c.Param("agentId")
	var invocation model.ToolInvocation
	if err := c.ShouldBindJSON(&invocation); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid invocation payload", err)
		return
	}
	invocation.AgentID = agentID

	result, err := pc.permissionService.Evaluate(c, invocation)
	if err != nil {
		switch {
		case errors.Is(err, gate_errors.ErrAgentNotFound):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Unknown agent", err)
		case errors.Is(err, gate_errors.ErrInvalidConfig), errors.Is(err, gate_errors.ErrInvalidSubject):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, err.Error(), err)
		default:
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to evaluate invocation", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
