package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

func TestHas(t *testing.T) {
	// Anonymous users can only browse.
	assert.True(t, Has(model.RoleAnonymous, ViewEvents))
	assert.False(t, Has(model.RoleAnonymous, ManageReservations))
	assert.False(t, Has(model.RoleAnonymous, ManageEvents))
	assert.False(t, Has(model.RoleAnonymous, AdminAccess))

	// Registered users manage their own reservations, nothing more.
	assert.True(t, Has(model.RoleRegistered, ViewEvents))
	assert.True(t, Has(model.RoleRegistered, ManageReservations))
	assert.False(t, Has(model.RoleRegistered, ManageEvents))
	assert.False(t, Has(model.RoleRegistered, AdminAccess))

	// Admins hold everything.
	assert.True(t, Has(model.RoleAdmin, ViewEvents))
	assert.True(t, Has(model.RoleAdmin, ManageReservations))
	assert.True(t, Has(model.RoleAdmin, ManageEvents))
	assert.True(t, Has(model.RoleAdmin, AdminAccess))
}

func TestHasUnknownRole(t *testing.T) {
	assert.False(t, Has("", ViewEvents))
	assert.False(t, Has("SUPERUSER", AdminAccess))
}

func TestFor(t *testing.T) {
	assert.Len(t, For(model.RoleAnonymous), 1)
	assert.Len(t, For(model.RoleRegistered), 2)
	assert.Len(t, For(model.RoleAdmin), 4)
	assert.Empty(t, For("unknown"))
}
