package crdt

import (
	"database/sql"

	"cortex/internal/storage"
	"cortex/internal/types"
)

// ACL enforces namespace_acl grants: which agents may read, write,
// share, or administer a given namespace, tying into
// internal/types.Permission for multi-agent namespace isolation.
type ACL struct {
	engine *storage.Engine
}

// NewACL wraps a storage.Engine with the namespace-permission surface.
func NewACL(engine *storage.Engine) *ACL {
	return &ACL{engine: engine}
}

// Grant records that agentID holds perm on namespace.
func (a *ACL) Grant(namespace types.Namespace, agentID string, perm types.Permission) error {
	return a.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO namespaces (uri, scope, name) VALUES (?, ?, ?)`,
			namespace.String(), string(namespace.Scope), namespace.Name)
		if err != nil {
			return types.Wrap(types.KindStorage, err, "ensure namespace %s", namespace)
		}
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO namespace_acl (namespace_uri, agent_id, permission) VALUES (?, ?, ?)`,
			namespace.String(), agentID, string(perm))
		if err != nil {
			return types.Wrap(types.KindStorage, err, "grant %s to %s on %s", perm, agentID, namespace)
		}
		return nil
	})
}

// Revoke removes a single permission grant.
func (a *ACL) Revoke(namespace types.Namespace, agentID string, perm types.Permission) error {
	return a.engine.Writer(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM namespace_acl WHERE namespace_uri = ? AND agent_id = ? AND permission = ?`,
			namespace.String(), agentID, string(perm))
		return err
	})
}

// Permissions loads the full permission set an agent holds on a namespace.
func (a *ACL) Permissions(namespace types.Namespace, agentID string) (types.PermissionSet, error) {
	rows, err := a.engine.Reader().Query(
		`SELECT permission FROM namespace_acl WHERE namespace_uri = ? AND agent_id = ?`,
		namespace.String(), agentID)
	if err != nil {
		return nil, types.Wrap(types.KindStorage, err, "load permissions for %s on %s", agentID, namespace)
	}
	defer rows.Close()

	perms := make([]types.Permission, 0, 4)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, types.Wrap(types.KindStorage, err, "scan permission row")
		}
		perms = append(perms, types.Permission(p))
	}
	return types.NewPermissionSet(perms...), rows.Err()
}

// Check enforces that agentID holds perm on namespace, returning a
// KindPermissionDenied error if not. Namespace owners (an agent
// acting within its own agent://<agentID>/ namespace) always pass,
// an "owner bypass" convention for self-scoped resources.
func (a *ACL) Check(namespace types.Namespace, agentID string, perm types.Permission) error {
	if namespace.Scope == types.ScopeAgent && namespace.Name == agentID {
		return nil
	}
	granted, err := a.Permissions(namespace, agentID)
	if err != nil {
		return err
	}
	if granted.Has(perm) || granted.Has(types.PermAdmin) {
		return nil
	}
	return types.NewError(types.KindPermissionDenied, "agent %s lacks %s on %s", agentID, perm, namespace)
}
