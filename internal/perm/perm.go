// Package perm implements permission resolution for team members.
//
// A member's effective capabilities are computed by layering three tiers,
// highest precedence first:
//
//  1. per-user overrides (stored on the member row)
//  2. per-role company overrides (stored on the company row)
//  3. built-in role defaults
//
// Override maps are partial: a flag absent from an override map falls
// through to the next tier, while a flag present with value false is an
// explicit denial that beats a true default. This is why overrides are
// merged with per-key presence checks rather than map spreads.
//
// Resolution is a pure function: no I/O, deterministic, and total — every
// flag in the closed set gets a boolean, even for unknown roles.
package perm

// Flag names a single boolean capability. The set of flags is closed; no
// dynamic keys exist.
type Flag string

// The full capability set. These correspond one-to-one with top-level areas
// of the product.
const (
	FlagDashboard     Flag = "dashboard"
	FlagJobs          Flag = "jobs"
	FlagCustomers     Flag = "customers"
	FlagInvoices      Flag = "invoices"
	FlagSales         Flag = "sales"
	FlagOperations    Flag = "operations"
	FlagReports       Flag = "reports"
	FlagTeam          Flag = "team"
	FlagNotifications Flag = "notifications"
	FlagSettings      Flag = "settings"
	FlagTechnician    Flag = "technician"
	FlagDispatch      Flag = "dispatch"
)

// Built-in role names.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSalesRep   = "sales_rep"
	RoleTechnician = "technician"
	RoleDispatcher = "dispatcher"
)

// Flags lists every capability flag in stable order. Callers must treat the
// returned slice as read-only.
func Flags() []Flag {
	return []Flag{
		FlagDashboard, FlagJobs, FlagCustomers, FlagInvoices,
		FlagSales, FlagOperations, FlagReports, FlagTeam,
		FlagNotifications, FlagSettings, FlagTechnician, FlagDispatch,
	}
}

// ValidFlag reports whether name is one of the closed capability flags.
func ValidFlag(name string) bool {
	for _, f := range Flags() {
		if string(f) == name {
			return true
		}
	}
	return false
}

// ValidRole reports whether name is one of the built-in roles.
func ValidRole(name string) bool {
	switch name {
	case RoleAdmin, RoleManager, RoleSalesRep, RoleTechnician, RoleDispatcher:
		return true
	}
	return false
}

// Map is a total permission map: one boolean per flag in the closed set.
type Map map[Flag]bool

// Overrides is a partial permission map. Key presence means "overridden";
// the value (true or false) is the overriding decision.
type Overrides map[Flag]bool

// RoleOverrides maps a role name to the partial override map a company has
// configured for that role.
type RoleOverrides map[string]Overrides

// Defaults returns the built-in role-default table as a fresh copy. The
// table is the base layer beneath the two override tiers and is never
// mutated at runtime; handing out copies keeps it that way.
func Defaults() map[string]Map {
	grantAll := func() Map {
		m := make(Map, len(Flags()))
		for _, f := range Flags() {
			m[f] = true
		}
		return m
	}
	grant := func(flags ...Flag) Map {
		m := make(Map, len(Flags()))
		for _, f := range Flags() {
			m[f] = false
		}
		for _, f := range flags {
			m[f] = true
		}
		return m
	}
	return map[string]Map{
		RoleAdmin:      grantAll(),
		RoleManager:    grantAll(),
		RoleSalesRep:   grant(FlagDashboard, FlagSales, FlagCustomers, FlagNotifications),
		RoleTechnician: grant(FlagDashboard, FlagJobs, FlagTechnician, FlagNotifications),
		RoleDispatcher: grant(FlagDashboard, FlagJobs, FlagDispatch, FlagOperations, FlagNotifications),
	}
}

// Resolver computes effective permission maps against an injected defaults
// table, so tests can substitute their own base layer. The zero value is
// not usable; construct with NewResolver.
type Resolver struct {
	defaults map[string]Map
}

// NewResolver returns a Resolver over the given defaults table. Passing nil
// uses the built-in table.
func NewResolver(defaults map[string]Map) *Resolver {
	if defaults == nil {
		defaults = Defaults()
	}
	return &Resolver{defaults: defaults}
}

// Resolve computes the effective permission map for role under the given
// company and user override tiers. Either override map may be nil. The
// result always contains every flag; unknown roles default every flag to
// false before overrides apply.
func (r *Resolver) Resolve(role string, company RoleOverrides, user Overrides) Map {
	base := r.defaults[role] // nil for unknown roles; lookups yield false

	var roleOv Overrides
	if company != nil {
		roleOv = company[role]
	}

	out := make(Map, len(Flags()))
	for _, f := range Flags() {
		v := base[f]
		if ov, ok := roleOv[f]; ok {
			v = ov
		}
		if ov, ok := user[f]; ok {
			v = ov
		}
		out[f] = v
	}
	return out
}

// MergeDefaults overlays the company's partial role overrides onto the
// built-in defaults and returns a full map per built-in role. This is the
// view rendered by the team-administration UI; authorization decisions go
// through Resolve instead.
func (r *Resolver) MergeDefaults(company RoleOverrides) map[string]Map {
	out := make(map[string]Map, len(r.defaults))
	for role, base := range r.defaults {
		m := make(Map, len(Flags()))
		var roleOv Overrides
		if company != nil {
			roleOv = company[role]
		}
		for _, f := range Flags() {
			v := base[f]
			if ov, ok := roleOv[f]; ok {
				v = ov
			}
			m[f] = v
		}
		out[role] = m
	}
	return out
}

// Resolve computes effective permissions using the built-in defaults table.
// It is the common entry point for authorization checks.
func Resolve(role string, company RoleOverrides, user Overrides) Map {
	return NewResolver(nil).Resolve(role, company, user)
}

// MergeDefaults overlays company role overrides onto the built-in defaults.
func MergeDefaults(company RoleOverrides) map[string]Map {
	return NewResolver(nil).MergeDefaults(company)
}
