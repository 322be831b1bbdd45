// Package permission maps user roles to the fixed set of permissions they
// hold.  The mapping is a static lookup table and Has is a pure function;
// handlers and the reservation service consult it as an opaque gate and
// never reason about roles directly.
package permission

import "github.com/iliyamo/event-ticket-reservation/internal/model"

// Permission names all gates known to the system.
type Permission string

const (
	ViewEvents         Permission = "view_events"
	ManageReservations Permission = "manage_reservations"
	ManageEvents       Permission = "manage_events"
	AdminAccess        Permission = "admin_access"
)

// rolePermissions is the complete role to permission table.  Roles absent
// from the map (including unknown role strings) hold no permissions.
var rolePermissions = map[string]map[Permission]bool{
	model.RoleAnonymous: {
		ViewEvents: true,
	},
	model.RoleRegistered: {
		ViewEvents:         true,
		ManageReservations: true,
	},
	model.RoleAdmin: {
		ViewEvents:         true,
		ManageReservations: true,
		ManageEvents:       true,
		AdminAccess:        true,
	},
}

// Has reports whether the given role holds the given permission.
func Has(role string, p Permission) bool {
	return rolePermissions[role][p]
}

// For returns all permissions held by a role.  Used by the /me endpoint
// so clients can tailor their UI without hard-coding the table.
func For(role string) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	return out
}
