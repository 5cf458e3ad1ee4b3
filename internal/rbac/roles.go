package rbac

// Role names carried in operator tokens. Keep these stable.
const (
	RoleOwner      = "owner"
	RoleAgent      = "agent"
	RoleAnalyst    = "analyst"
	RoleFinance    = "finance"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// Permission sets for the read-only operator routes.
var (
	CallReaders   = []string{RoleOwner, RoleAgent, RoleAnalyst}
	CreditReaders = []string{RoleOwner, RoleFinance}
	ReportReaders = []string{RoleOwner, RoleAnalyst}
)
