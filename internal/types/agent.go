package types

// AgentStatus is the lifecycle state of a registered agent (§3 Agent
// Registration). Deregistration never deletes a row: it only moves the
// status to Deregistered, preserving provenance and trust history that
// reference the agent id.
type AgentStatus string

const (
	AgentActive       AgentStatus = "active"
	AgentIdle         AgentStatus = "idle"
	AgentDeregistered AgentStatus = "deregistered"
)
