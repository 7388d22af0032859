// Package authz maps (role, action) pairs to allow/deny decisions as a pure
// function over explicit enums. Ownership checks ("this loan belongs to the
// requester") are not policy decisions; the loan queries are scoped by user
// ID instead.
package authz

type Role string

const (
	// RoleAnonymous is the unauthenticated default, never stored.
	RoleAnonymous Role = "anonymous"
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
)

type Action string

const (
	ActionBookRead  Action = "books:read"
	ActionBookWrite Action = "books:write"

	ActionLoanBorrow  Action = "loans:borrow"
	ActionLoanReturn  Action = "loans:return"
	ActionLoanRead    Action = "loans:read"     // own loans only
	ActionLoanReadAll Action = "loans:read-all" // every user's loans

	ActionProfileRead  Action = "profile:read"
	ActionProfileWrite Action = "profile:write"

	ActionUserManage Action = "users:manage"
)

// memberActions is everything a registered member may do on top of the
// anonymous read-only surface.
var memberActions = map[Action]bool{
	ActionBookRead:     true,
	ActionLoanBorrow:   true,
	ActionLoanReturn:   true,
	ActionLoanRead:     true,
	ActionProfileRead:  true,
	ActionProfileWrite: true,
}

// Authorize decides whether role may perform action.
func Authorize(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMember:
		return memberActions[action]
	case RoleAnonymous:
		return action == ActionBookRead
	}
	return false
}

// ParseRole maps a stored role string onto the enum, defaulting unknown
// values to anonymous so a garbled token never escalates.
func ParseRole(s string) Role {
	switch s {
	case string(RoleMember):
		return RoleMember
	case string(RoleAdmin):
		return RoleAdmin
	}
	return RoleAnonymous
}
