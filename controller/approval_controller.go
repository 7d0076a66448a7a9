// controller/approval_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/agentgate/agentgate/errors"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/service"
	"github.com/agentgate/agentgate/util"
)

type ApprovalController struct {
	approvalService service.IApprovalService
}

func NewApprovalController(approvalService service.IApprovalService) *ApprovalController {
	return &ApprovalController{
		approvalService: approvalService,
	}
}

// RegisterRoutes registers the API routes
func (ac *ApprovalController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/agents/:agentId/approvals", ac.ListForAgent)

	approvals := r.Group("/approvals")
	{
		approvals.GET("", ac.List)
		approvals.GET("/stats", ac.Stats)
		approvals.POST("/respond", ac.Respond)
		approvals.POST("/batch-approve", ac.BatchApprove)
		approvals.POST("/batch-deny", ac.BatchDeny)
		approvals.POST("/:id/approve", ac.Approve)
		approvals.POST("/:id/deny", ac.Deny)
		approvals.POST("/:id/cancel", ac.Cancel)
	}
}

type decisionRequest struct {
	Approver model.PermissionSubject `json:"approver"`
	Comment  string                  `json:"comment"`
}

type respondRequest struct {
	RequestID string                  `json:"requestId"`
	Decision  string                  `json:"decision"`
	Approver  model.PermissionSubject `json:"approver"`
	Comment   string                  `json:"comment"`
}

type batchRequest struct {
	RequestIDs []string                `json:"requestIds"`
	Approver   model.PermissionSubject `json:"approver"`
	Comment    string                  `json:"comment"`
}

type cancelRequest struct {
	OperatorID string `json:"operatorId"`
	Reason     string `json:"reason"`
}

// ListForAgent endpoint
func (ac *ApprovalController) ListForAgent(c *gin.Context) {
	agentID := c.Param("agentId")

	requests, err := ac.approvalService.ListForAgent(c, agentID)
	if err != nil {
		if errors.Is(err, gate_errors.ErrAgentNotFound) {
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Unknown agent", err)
		} else {
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to list approval requests", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"agentId": agentID, "requests": requests})
}

// List endpoint
func (ac *ApprovalController) List(c *gin.Context) {
	filter := model.ApprovalFilter{
		Status:        model.ApprovalStatus(c.Query("status")),
		Priority:      model.ApprovalPriority(c.Query("priority")),
		RequesterType: model.RequesterType(c.Query("type")),
		AgentID:       c.Query("agentId"),
		Search:        c.Query("search"),
	}

	requests, err := ac.approvalService.List(c, filter)
	if err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to list approval requests", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Stats endpoint
func (ac *ApprovalController) Stats(c *gin.Context) {
	stats, err := ac.approvalService.Statistics(c)
	if err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to compute statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalPending":        stats.PendingRequests,
		"totalApproved":       stats.ApprovedRequests,
		"totalDenied":         stats.RejectedRequests,
		"totalExpired":        stats.ExpiredRequests,
		"totalCancelled":      stats.CancelledRequests,
		"totalRequests":       stats.TotalRequests,
		"avgResponseTime":     stats.AverageApprovalTime.Milliseconds(),
		"highPriorityCount":   stats.HighPriorityCount,
		"expiringWithin1Hour": stats.ExpiringWithin1Hour,
	})
}

// Respond endpoint
func (ac *ApprovalController) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid respond payload", err)
		return
	}
	if req.Decision != "approve" && req.Decision != "deny" {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Decision must be approve or deny", gate_errors.ErrInvalidDecision)
		return
	}

	ac.decide(c, req.RequestID, req.Approver, req.Decision == "approve", req.Comment, true)
}

// Approve endpoint
func (ac *ApprovalController) Approve(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid decision payload", err)
		return
	}
	ac.decide(c, c.Param("id"), req.Approver, true, req.Comment, false)
}

// Deny endpoint
func (ac *ApprovalController) Deny(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid decision payload", err)
		return
	}
	ac.decide(c, c.Param("id"), req.Approver, false, req.Comment, false)
}

func (ac *ApprovalController) decide(c *gin.Context, requestID string, approver model.PermissionSubject, approved bool, comment string, wrapped bool) {
	request, err := ac.approvalService.Respond(c, model.ApprovalAction{
		RequestID: requestID,
		Approver:  approver,
		Approved:  approved,
		Comment:   comment,
		Timestamp: time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, gate_errors.ErrRequestNotFound),
			errors.Is(err, gate_errors.ErrRequestAlreadyResolved),
			errors.Is(err, gate_errors.ErrRequestExpired),
			errors.Is(err, gate_errors.ErrInvalidDecision):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, err.Error(), err)
		default:
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to process decision", err)
		}
		return
	}

	if wrapped {
		c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": request})
}

// BatchApprove endpoint
func (ac *ApprovalController) BatchApprove(c *gin.Context) {
	ac.batch(c, true)
}

// BatchDeny endpoint
func (ac *ApprovalController) BatchDeny(c *gin.Context) {
	ac.batch(c, false)
}

func (ac *ApprovalController) batch(c *gin.Context, approved bool) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid batch payload", err)
		return
	}

	result, err := ac.approvalService.BatchDecide(c, req.RequestIDs, req.Approver, approved, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, gate_errors.ErrEmptyBatch),
			errors.Is(err, gate_errors.ErrCommentRequired),
			errors.Is(err, gate_errors.ErrInvalidDecision):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, err.Error(), err)
		default:
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to process batch decision", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":      result.Results,
		"successCount": result.SuccessCount,
		"totalCount":   result.TotalCount,
	})
}

// Cancel endpoint
func (ac *ApprovalController) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, "Invalid cancel payload", err)
		return
	}
	if req.OperatorID == "" {
		req.OperatorID = util.GetOperatorIDFromContext(c)
	}

	if err := ac.approvalService.Cancel(c, c.Param("id"), req.OperatorID, req.Reason); err != nil {
		switch {
		case errors.Is(err, gate_errors.ErrRequestNotFound),
			errors.Is(err, gate_errors.ErrRequestAlreadyResolved):
			util.RespondWithError(c, http.StatusBadRequest, util.CodeInvalidRequest, err.Error(), err)
		default:
			util.RespondWithError(c, http.StatusServiceUnavailable, util.CodeUnavailable, "Failed to cancel request", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
