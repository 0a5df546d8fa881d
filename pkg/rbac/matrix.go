package rbac

// Permission is an action a member may perform inside an organization.
type Permission string

const (
	PermViewLeads          Permission = "leads:view"
	PermEditLeads          Permission = "leads:edit"
	PermViewStock          Permission = "stock:view"
	PermEditStock          Permission = "stock:edit"
	PermViewSales          Permission = "sales:view"
	PermEditSales          Permission = "sales:edit"
	PermViewInbox          Permission = "inbox:view"
	PermViewIntegrations   Permission = "integrations:view"
	PermManageIntegrations Permission = "integrations:manage"
	PermManageMembers      Permission = "members:manage"
	PermViewDashboard      Permission = "dashboard:view"
)

// AllPermissions is every permission in a stable display order.
var AllPermissions = []Permission{
	PermViewLeads,
	PermEditLeads,
	PermViewStock,
	PermEditStock,
	PermViewSales,
	PermEditSales,
	PermViewInbox,
	PermViewIntegrations,
	PermManageIntegrations,
	PermManageMembers,
	PermViewDashboard,
}

// OrgSettings carries the per-organization toggles the table defers to.
// The zero value grants nothing extra.
type OrgSettings struct {
	SellerCanEditLeads bool
	SellerCanEditSales bool
}

type grant uint8

const (
	denied grant = iota
	allowed
	sellerLeadsToggle
	sellerSalesToggle
)

// matrix is the complete table. A missing role or permission entry is a
// deny; there is no inheritance between rows.
var matrix = map[Role]map[Permission]grant{
	RoleOwner: {
		PermViewLeads:          allowed,
		PermEditLeads:          allowed,
		PermViewStock:          allowed,
		PermEditStock:          allowed,
		PermViewSales:          allowed,
		PermEditSales:          allowed,
		PermViewInbox:          allowed,
		PermViewIntegrations:   allowed,
		PermManageIntegrations: allowed,
		PermManageMembers:      allowed,
		PermViewDashboard:      allowed,
	},
	RoleAdmin: {
		PermViewLeads:          allowed,
		PermEditLeads:          allowed,
		PermViewStock:          allowed,
		PermEditStock:          allowed,
		PermViewSales:          allowed,
		PermEditSales:          allowed,
		PermViewInbox:          allowed,
		PermViewIntegrations:   allowed,
		PermManageIntegrations: allowed,
		PermManageMembers:      allowed,
		PermViewDashboard:      allowed,
	},
	RoleManager: {
		PermViewLeads:        allowed,
		PermEditLeads:        allowed,
		PermViewStock:        allowed,
		PermEditStock:        allowed,
		PermViewSales:        allowed,
		PermEditSales:        allowed,
		PermViewInbox:        allowed,
		PermViewIntegrations: allowed,
		PermViewDashboard:    allowed,
	},
	RoleSeller: {
		PermViewLeads:     allowed,
		PermEditLeads:     sellerLeadsToggle,
		PermViewStock:     allowed,
		PermViewSales:     allowed,
		PermEditSales:     sellerSalesToggle,
		PermViewInbox:     allowed,
		PermViewDashboard: allowed,
	},
}

// Allows reports whether role may perform perm. It is pure: settings must
// already be resolved by the caller. Unknown roles and permissions are
// denied.
func Allows(role Role, perm Permission, settings OrgSettings) bool {
	switch matrix[role][perm] {
	case allowed:
		return true
	case sellerLeadsToggle:
		return settings.SellerCanEditLeads
	case sellerSalesToggle:
		return settings.SellerCanEditSales
	default:
		return false
	}
}

// Permissions returns everything role is allowed under settings, in
// AllPermissions order.
func Permissions(role Role, settings OrgSettings) []Permission {
	out := make([]Permission, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		if Allows(role, p, settings) {
			out = append(out, p)
		}
	}
	return out
}
