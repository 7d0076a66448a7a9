// controller/controllers.go
package controller

import "github.com/agentgate/agentgate/service"

type Controllers struct {
	Permission *PermissionController
	Approval   *ApprovalController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Permission: NewPermissionController(services.Permission),
		Approval:   NewApprovalController(services.Approval),
	}
}
