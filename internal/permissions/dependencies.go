package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPermission indicates a permission lookup failed because it has not been registered.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularDependency signals that a dependency graph contains a cycle.
	ErrCircularDependency = errors.New("permission: circular dependency detected")
)

// ResolveDependencies returns every permission the given one transitively
// depends on, dependencies first, excluding the permission itself.
func ResolveDependencies(permissionID string) ([]string, error) {
	perms := GetAll()
	root, ok := perms[permissionID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(perms))
	var order []string

	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case inProgress:
			return fmt.Errorf("%w at %s", ErrCircularDependency, id)
		case done:
			return nil
		}
		perm, ok := perms[id]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}
		state[id] = inProgress
		for _, dep := range perm.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	state[permissionID] = inProgress
	for _, dep := range root.DependsOn {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}
	return order, nil
}
