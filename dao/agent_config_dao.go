// dao/agent_config_dao.go
package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agentgate/agentgate/audit"
	gate_errors "github.com/agentgate/agentgate/errors"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

// AgentConfigDAO persists agent permission configurations in Neo4j. The
// durable write happens before any in-memory state changes; a failed write
// surfaces as ErrPersistenceFailure and leaves the engine untouched.
type AgentConfigDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewAgentConfigDAO(driver neo4j.Driver, auditService audit.Service) *AgentConfigDAO {
	dao := &AgentConfigDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Agent ID
func (dao *AgentConfigDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_agent_id IF NOT EXISTS
        FOR (a:AGENT) REQUIRE a.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, gate_errors.ErrDatabaseOperation
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Agent ID", zap.Error(err))
		return err
	}
	return nil
}

// SaveConfig writes the agent's configuration wholesale.
func (dao *AgentConfigDAO) SaveConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return gate_errors.ErrInternalServer
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (a:AGENT {id: $id})
        SET a.config = $config, a.updatedAt = $updatedAt, a.updatedBy = $updatedBy
        RETURN a.id as id
        `
		parameters := map[string]interface{}{
			"id":        agentID,
			"config":    string(configJSON),
			"updatedAt": time.Now().Format(time.RFC3339),
			"updatedBy": actorID,
		}
		result, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, gate_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, gate_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to persist agent config",
			zap.Error(err),
			zap.String("agentID", agentID),
			zap.Duration("duration", duration))
		return gate_errors.ErrPersistenceFailure
	}

	if dao.AuditService != nil {
		details, _ := json.Marshal(config)
		if auditErr := dao.AuditService.LogEvent(ctx, audit.AuditLog{
			Timestamp:     time.Now(),
			AgentID:       agentID,
			ActorID:       actorID,
			Action:        "config.update",
			Outcome:       "persisted",
			ChangeDetails: details,
		}); auditErr != nil {
			logger.Warn("Failed to audit config persistence", zap.Error(auditErr), zap.String("agentID", agentID))
		}
	}

	logger.Info("Agent config persisted",
		zap.String("agentID", agentID),
		zap.Duration("duration", duration))
	return nil
}

// GetConfig loads one agent's configuration, or ErrAgentNotFound.
func (dao *AgentConfigDAO) GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:AGENT {id: $id})
        RETURN a.config as config
        `
		res, err := transaction.Run(query, map[string]interface{}{"id": agentID})
		if err != nil {
			return nil, gate_errors.ErrDatabaseOperation
		}
		if !res.Next() {
			return nil, gate_errors.ErrAgentNotFound
		}
		raw, found := res.Record().Get("config")
		if !found || raw == nil {
			return nil, nil
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var config model.AgentPermissionsConfig
	if err := json.Unmarshal([]byte(result.(string)), &config); err != nil {
		logger.Error("Failed to unmarshal persisted agent config",
			zap.Error(err),
			zap.String("agentID", agentID))
		return nil, gate_errors.ErrInternalServer
	}
	return &config, nil
}

// ListAgentIDs returns every persisted agent id, used to seed the in-memory
// policy store at startup.
func (dao *AgentConfigDAO) ListAgentIDs(ctx context.Context) ([]string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:AGENT)
        RETURN a.id as id
        `
		res, err := transaction.Run(query, nil)
		if err != nil {
			return nil, gate_errors.ErrDatabaseOperation
		}
		var ids []string
		for res.Next() {
			if id, found := res.Record().Get("id"); found {
				ids = append(ids, id.(string))
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
