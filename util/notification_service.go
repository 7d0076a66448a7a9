// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

// NotificationService is the internal seam toward chat/bot delivery. Actual
// channel delivery lives outside this service; here notifications are logged
// and handed to whatever transport is wired in later.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyApprovalRequested tells the configured approvers a new request awaits
// their decision.
func (n *NotificationService) NotifyApprovalRequested(ctx context.Context, request model.ApprovalRequest, approvers []model.PermissionSubject) error {
	approverIDs := make([]string, 0, len(approvers))
	for _, a := range approvers {
		approverIDs = append(approverIDs, fmt.Sprintf("%s:%s", a.Type, a.ID))
	}
	logger.Info("NOTIFICATION: Approval requested",
		zap.String("requestID", request.ID),
		zap.String("agentID", request.AgentID),
		zap.String("action", request.RequestedAction),
		zap.String("priority", string(request.Priority)),
		zap.Strings("approvers", approverIDs))
	return nil
}

// NotifyApprovalResolved tells the requester the outcome of their request.
func (n *NotificationService) NotifyApprovalResolved(ctx context.Context, request model.ApprovalRequest) error {
	logger.Info("NOTIFICATION: Approval resolved",
		zap.String("requestID", request.ID),
		zap.String("agentID", request.AgentID),
		zap.String("status", string(request.Status)),
		zap.String("requesterID", request.Requester.ID))
	return nil
}

// NotifyConfigChange announces that an agent's permission configuration was
// replaced.
func (n *NotificationService) NotifyConfigChange(ctx context.Context, agentID, actorID string) error {
	logger.Info("NOTIFICATION: Permissions updated",
		zap.String("agentID", agentID),
		zap.String("actorID", actorID))
	return nil
}
