package enums

import "fmt"

// ActorRole distinguishes the storekeeper from ordinary holders in tokens
// and route guards. Catalog admin checks still compare addresses against the
// initialized storekeeper identity; the role only shapes the HTTP surface.
type ActorRole string

const (
	RoleHolder      ActorRole = "holder"
	RoleStorekeeper ActorRole = "storekeeper"
)

var validActorRoles = []ActorRole{
	RoleHolder,
	RoleStorekeeper,
}

func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
