package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Permission describes a platform permission definition.
type Permission struct {
	ID          string
	Module      string
	DependsOn   []string
	Description string
}

type registry struct {
	mu    sync.RWMutex
	perms map[string]*Permission
}

var global = &registry{perms: make(map[string]*Permission)}

var (
	errNilPermission  = errors.New("permission: nil definition")
	errEmptyID        = errors.New("permission: id is required")
	errDuplicateID    = errors.New("permission: already registered")
	errSelfDependency = errors.New("permission: cannot depend on itself")
)

// Register adds a permission definition to the registry.
func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	def := clonePermission(perm)
	def.ID = strings.TrimSpace(def.ID)
	def.Module = strings.TrimSpace(def.Module)
	if def.ID == "" {
		return errEmptyID
	}

	deps := make([]string, 0, len(def.DependsOn))
	seen := make(map[string]struct{}, len(def.DependsOn))
	for _, dep := range def.DependsOn {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if dep == def.ID {
			return errSelfDependency
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	def.DependsOn = deps

	global.mu.Lock()
	defer global.mu.Unlock()

	if _, exists := global.perms[def.ID]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, def.ID)
	}
	global.perms[def.ID] = def
	return nil
}

func mustRegister(perms ...*Permission) {
	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}

// Get returns a copy of the permission definition when registered.
func Get(id string) (*Permission, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()

	perm, ok := global.perms[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// GetAll returns a copy of all registered permissions keyed by ID.
func GetAll() map[string]*Permission {
	global.mu.RLock()
	defer global.mu.RUnlock()

	out := make(map[string]*Permission, len(global.perms))
	for id, perm := range global.perms {
		out[id] = clonePermission(perm)
	}
	return out
}

// IDs returns every registered permission ID in sorted order.
func IDs() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()

	ids := make([]string, 0, len(global.perms))
	for id := range global.perms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateDependencies ensures that all dependencies reference known permissions.
func ValidateDependencies() error {
	global.mu.RLock()
	defer global.mu.RUnlock()

	for _, perm := range global.perms {
		for _, dep := range perm.DependsOn {
			if _, ok := global.perms[dep]; !ok {
				return fmt.Errorf("permission: %s depends on unknown permission %s", perm.ID, dep)
			}
		}
	}
	return nil
}

func clonePermission(perm *Permission) *Permission {
	cp := *perm
	if len(perm.DependsOn) > 0 {
		cp.DependsOn = append([]string(nil), perm.DependsOn...)
	}
	return &cp
}

// unregister removes a definition. Tests only.
func unregister(id string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	delete(global.perms, id)
}
