package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cortex/internal/crdt"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Register, inspect, and deregister multi-agent participants",
}

var (
	registerName         string
	registerCapabilities string
	registerParent       string
)

var agentRegisterCmd = &cobra.Command{
	Use:   "register <agent-id>",
	Short: "Register a new agent against its namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if namespace == "" {
			return fmt.Errorf("--namespace is required")
		}
		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		reg := crdt.NewAgentRegistry(engine, memStore)
		var caps []string
		if registerCapabilities != "" {
			caps = strings.Split(registerCapabilities, ",")
		}
		a := crdt.Agent{
			AgentID:      args[0],
			Name:         registerName,
			Namespace:    namespace,
			Capabilities: caps,
			ParentAgent:  registerParent,
		}
		if err := reg.Register(a); err != nil {
			return err
		}
		loaded, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(loaded)
	},
}

var agentGetCmd = &cobra.Command{
	Use:   "get <agent-id>",
	Short: "Fetch one agent's registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		reg := crdt.NewAgentRegistry(engine, memStore)
		a, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(a)
	},
}

var promoteOrphans bool

var agentDeregisterCmd = &cobra.Command{
	Use:   "deregister <agent-id>",
	Short: "Deregister an agent, optionally promoting its orphaned memories to its parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		reg := crdt.NewAgentRegistry(engine, memStore)
		moved, err := reg.Deregister(args[0], promoteOrphans)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"agent_id":       args[0],
			"memories_moved": moved,
		})
	},
}

func init() {
	agentRegisterCmd.Flags().StringVar(&registerName, "name", "", "Display name for the agent")
	agentRegisterCmd.Flags().StringVar(&registerCapabilities, "capabilities", "", "Comma-separated capability tags")
	agentRegisterCmd.Flags().StringVar(&registerParent, "parent", "", "Parent agent id for orphan promotion")

	agentDeregisterCmd.Flags().BoolVar(&promoteOrphans, "promote-orphans", false, "Move the agent's remaining memories into its parent's namespace")

	agentCmd.AddCommand(agentRegisterCmd, agentGetCmd, agentDeregisterCmd)
}
