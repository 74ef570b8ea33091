package domain

// Operation names a coarse-grained action on a resource type, "Resource.Action".
type Operation string

const (
	OpTaskCreate Operation = "Task.Create"
	OpTaskRead   Operation = "Task.Read"
	OpTaskUpdate Operation = "Task.Update"
	OpTaskDelete Operation = "Task.Delete"
	OpTaskAssign Operation = "Task.Assign"

	OpLeadCreate Operation = "Lead.Create"
	OpLeadRead   Operation = "Lead.Read"
	OpLeadUpdate Operation = "Lead.Update"
	OpLeadDelete Operation = "Lead.Delete"
	OpLeadAssign Operation = "Lead.Assign"

	OpCustomerCreate Operation = "Customer.Create"
	OpCustomerRead   Operation = "Customer.Read"
	OpCustomerUpdate Operation = "Customer.Update"
	OpCustomerDelete Operation = "Customer.Delete"

	OpStatsViewAll Operation = "Stats.ViewAll"

	OpUserViewAll    Operation = "User.ViewAll"
	OpUserManage     Operation = "User.Manage"
	OpUserChangeRole Operation = "User.ChangeRole"

	OpSettingsManage Operation = "Settings.Manage"
)

// Scope qualifies a grant. ScopeSubordinates restricts user-targeting
// operations to identities the actor outranks.
type Scope int

const (
	ScopeAll Scope = iota + 1
	ScopeSubordinates
)

// Decision is the outcome of a policy check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// ownScoped are granted to every role; ownership of the record itself is
// enforced by the resource controller.
var ownScoped = []Operation{
	OpTaskCreate, OpTaskRead, OpTaskUpdate,
	OpLeadCreate, OpLeadRead, OpLeadUpdate,
	OpCustomerCreate, OpCustomerRead, OpCustomerUpdate,
}

var deleteAndAssign = []Operation{
	OpTaskDelete, OpLeadDelete, OpCustomerDelete,
	OpTaskAssign, OpLeadAssign,
}

// permissionMatrix is the single source of truth for authorisation.
// Anything absent from a role's row is denied.
var permissionMatrix = map[Role]map[Operation]Scope{
	RoleAdmin: grants(ScopeAll, ownScoped, deleteAndAssign, []Operation{
		OpStatsViewAll,
		OpUserViewAll,
		OpUserManage,
		OpUserChangeRole,
		OpSettingsManage,
	}),
	RoleManager: merge(
		grants(ScopeAll, ownScoped, deleteAndAssign),
		grants(ScopeSubordinates, []Operation{OpUserViewAll, OpUserManage}),
	),
	RoleSalesRep: grants(ScopeAll, ownScoped),
}

func grants(scope Scope, groups ...[]Operation) map[Operation]Scope {
	out := make(map[Operation]Scope)
	for _, ops := range groups {
		for _, op := range ops {
			out[op] = scope
		}
	}
	return out
}

func merge(rows ...map[Operation]Scope) map[Operation]Scope {
	out := make(map[Operation]Scope)
	for _, row := range rows {
		for op, scope := range row {
			out[op] = scope
		}
	}
	return out
}

// Check decides whether role may perform op. Unknown roles and unknown
// operations are denied.
func Check(role Role, op Operation) Decision {
	_, ok := permissionMatrix[role][op]
	return Decision(ok)
}

// Authorize is Check expressed as an error: nil on allow, ErrInsufficientRole on deny.
func Authorize(role Role, op Operation) error {
	if Check(role, op) == Deny {
		return ErrInsufficientRole
	}
	return nil
}

// ScopeOf returns the scope role holds op under, and false if op is denied.
func ScopeOf(role Role, op Operation) (Scope, bool) {
	scope, ok := permissionMatrix[role][op]
	return scope, ok
}

// AuthorizeTarget checks op for actor and, when the grant is subordinate-scoped,
// that actor outranks target.
func AuthorizeTarget(actor Role, op Operation, target Role) error {
	scope, ok := ScopeOf(actor, op)
	if !ok {
		return ErrInsufficientRole
	}
	if scope == ScopeSubordinates && !actor.Outranks(target) {
		return ErrInsufficientRole
	}
	return nil
}

// VisibleRoles returns the roles whose identities actor may see under op,
// or nil if op is denied.
func VisibleRoles(actor Role, op Operation) []Role {
	scope, ok := ScopeOf(actor, op)
	if !ok {
		return nil
	}
	out := make([]Role, 0, len(Roles))
	for _, r := range Roles {
		if scope == ScopeAll || actor.Outranks(r) {
			out = append(out, r)
		}
	}
	return out
}

// PermissionsFor returns a copy of role's row of the matrix.
func PermissionsFor(role Role) map[Operation]Scope {
	row, ok := permissionMatrix[role]
	if !ok {
		return nil
	}
	out := make(map[Operation]Scope, len(row))
	for op, scope := range row {
		out[op] = scope
	}
	return out
}
