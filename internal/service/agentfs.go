package service

import (
	"github.com/agentfs/agentfs/internal/repository"
	"github.com/agentfs/agentfs/pkg/database"
)

// AgentFS bundles one agent's view of the store: a sandboxed filesystem, a
// namespaced key-value store and a tool-call audit trail, all sharing one
// backend.
type AgentFS struct {
	FS    FileSystemService
	KV    KVStoreService
	Tools ToolCallService

	AgentID   string
	MountPath string
}

// NewAgentFS wires the repositories and services for one agent over db.
func NewAgentFS(db database.Store, agentID, mountPath string) *AgentFS {
	inodeRepo := repository.NewInodeRepository(db)
	dirRepo := repository.NewDirectoryRepository(db)
	contentRepo := repository.NewContentRepository(db)
	symlinkRepo := repository.NewSymlinkRepository(db)
	toolCallRepo := repository.NewToolCallRepository(db)

	return &AgentFS{
		FS:        NewFileSystemService(db, mountPath, inodeRepo, dirRepo, contentRepo, symlinkRepo),
		KV:        NewKVStoreService(db, agentID),
		Tools:     NewToolCallService(toolCallRepo),
		AgentID:   agentID,
		MountPath: mountPath,
	}
}
