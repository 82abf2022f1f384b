package model

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleGuest  Role = "guest"
	RoleSystem Role = "system"
)

// Actor is the authorization context passed into every mutating operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func SystemActor(name string) Actor {
	return Actor{ID: name, Role: RoleSystem}
}

func (a Actor) IsAnonymous() bool {
	return a.ID == ""
}

func (a Actor) HasRole(roles ...Role) bool {
	if a.IsAnonymous() {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
