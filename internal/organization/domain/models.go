// Package domain contains persistence models for tenants.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization represents a tenant. Only the entitlement gate mutates Active
// and LockedUntil.
type Organization struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Slug        string     `gorm:"size:255;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Active      bool       `gorm:"not null;default:false" json:"active"`
	LockedUntil *time.Time `gorm:"column:locked_until" json:"locked_until"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// OrganizationMember is a notification recipient for an organization.
type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     string       `gorm:"size:64;not null;uniqueIndex:ux_org_member_email,priority:1" json:"org_id"`
	Email     string       `gorm:"size:255;not null;uniqueIndex:ux_org_member_email,priority:2" json:"email"`
	Role      string       `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }
