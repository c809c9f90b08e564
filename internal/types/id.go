package types

import "github.com/google/uuid"

// NewMemoryID generates a new unique memory identifier.
func NewMemoryID() string { return "mem_" + uuid.NewString() }

// NewClusterID generates a new unique consolidation cluster identifier.
func NewClusterID() string { return "clu_" + uuid.NewString() }

// NewAgentID generates a new unique agent identifier for CRDT replicas.
func NewAgentID() string { return "agt_" + uuid.NewString() }

// NewRunID generates a new unique identifier for a consolidation run or
// quality-gate run.
func NewRunID() string { return "run_" + uuid.NewString() }
