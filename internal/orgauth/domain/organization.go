package domain

import (
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

type Organization struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationSettings holds the per-organization toggles read by the
// permission matrix. A missing row is equivalent to the zero value.
type OrganizationSettings struct {
	OrganizationID     string
	SellerCanEditLeads bool
	SellerCanEditSales bool
	UpdatedAt          time.Time
}

// Permissions projects the settings onto what rbac.Allows consumes.
func (s OrganizationSettings) Permissions() rbac.OrgSettings {
	return rbac.OrgSettings{
		SellerCanEditLeads: s.SellerCanEditLeads,
		SellerCanEditSales: s.SellerCanEditSales,
	}
}
