package perm

import "testing"

func TestResolve_TotalAndDeterministic(t *testing.T) {
	roles := []string{RoleAdmin, RoleManager, RoleSalesRep, RoleTechnician, RoleDispatcher, "intern", ""}
	for _, role := range roles {
		got := Resolve(role, nil, nil)
		if len(got) != len(Flags()) {
			t.Fatalf("role %q: resolved map has %d flags, want %d", role, len(got), len(Flags()))
		}
		for _, f := range Flags() {
			if _, ok := got[f]; !ok {
				t.Fatalf("role %q: flag %q missing from resolved map", role, f)
			}
		}
		// Same inputs, same outputs.
		again := Resolve(role, nil, nil)
		for _, f := range Flags() {
			if got[f] != again[f] {
				t.Fatalf("role %q: non-deterministic result for flag %q", role, f)
			}
		}
	}
}

func TestResolve_UnknownRoleAllFalse(t *testing.T) {
	got := Resolve("contractor", nil, nil)
	for f, v := range got {
		if v {
			t.Fatalf("unknown role: flag %q resolved true, want false", f)
		}
	}
}

func TestResolve_BuiltinDefaults(t *testing.T) {
	tests := []struct {
		role string
		flag Flag
		want bool
	}{
		{RoleAdmin, FlagTeam, true},
		{RoleAdmin, FlagDispatch, true},
		{RoleManager, FlagSettings, true},
		{RoleSalesRep, FlagSales, true},
		{RoleSalesRep, FlagJobs, false},
		{RoleSalesRep, FlagInvoices, false},
		{RoleTechnician, FlagJobs, true},
		{RoleTechnician, FlagTechnician, true},
		{RoleTechnician, FlagDispatch, false},
		{RoleDispatcher, FlagDispatch, true},
		{RoleDispatcher, FlagOperations, true},
		{RoleDispatcher, FlagTeam, false},
	}
	for _, tc := range tests {
		if got := Resolve(tc.role, nil, nil)[tc.flag]; got != tc.want {
			t.Errorf("Resolve(%q)[%q] = %v, want %v", tc.role, tc.flag, got, tc.want)
		}
	}
}

func TestResolve_ExplicitFalseBeatsTrueDefault(t *testing.T) {
	got := Resolve(RoleAdmin, nil, Overrides{FlagJobs: false})
	if got[FlagJobs] {
		t.Fatalf("user override {jobs:false} did not beat admin default true")
	}
	// Untouched flags keep their defaults.
	if !got[FlagCustomers] {
		t.Fatalf("unrelated flag lost its default")
	}
}

func TestResolve_AbsentKeyFallsThrough(t *testing.T) {
	// Empty company override for the role must change nothing.
	company := RoleOverrides{RoleSalesRep: Overrides{}}
	got := Resolve(RoleSalesRep, company, nil)
	want := Resolve(RoleSalesRep, nil, nil)
	for _, f := range Flags() {
		if got[f] != want[f] {
			t.Fatalf("empty override shifted flag %q: got %v want %v", f, got[f], want[f])
		}
	}
}

func TestResolve_PrecedenceUserOverCompanyOverDefault(t *testing.T) {
	// technician defaults: jobs=true, dispatch=false.
	company := RoleOverrides{RoleTechnician: Overrides{FlagDispatch: true}}
	user := Overrides{FlagJobs: false}

	got := Resolve(RoleTechnician, company, user)
	if got[FlagJobs] {
		t.Errorf("jobs: user override false should win, got true")
	}
	if !got[FlagDispatch] {
		t.Errorf("dispatch: company override true should win over default false")
	}
}

func TestResolve_CompanyOverrideForOtherRoleIgnored(t *testing.T) {
	company := RoleOverrides{RoleSalesRep: Overrides{FlagJobs: true}}
	got := Resolve(RoleTechnician, company, nil)
	want := Resolve(RoleTechnician, nil, nil)
	for _, f := range Flags() {
		if got[f] != want[f] {
			t.Fatalf("override for sales_rep leaked into technician at flag %q", f)
		}
	}
}

func TestMergeDefaults(t *testing.T) {
	company := RoleOverrides{
		RoleTechnician: Overrides{FlagDispatch: true},
		RoleSalesRep:   Overrides{FlagSales: false},
	}
	merged := MergeDefaults(company)

	for _, role := range []string{RoleAdmin, RoleManager, RoleSalesRep, RoleTechnician, RoleDispatcher} {
		m, ok := merged[role]
		if !ok {
			t.Fatalf("merged table missing built-in role %q", role)
		}
		if len(m) != len(Flags()) {
			t.Fatalf("role %q: merged map has %d flags, want %d", role, len(m), len(Flags()))
		}
	}
	if !merged[RoleTechnician][FlagDispatch] {
		t.Errorf("technician dispatch: company override true not applied")
	}
	if merged[RoleSalesRep][FlagSales] {
		t.Errorf("sales_rep sales: explicit false override not applied")
	}
	// Untouched role keeps pure defaults.
	if !merged[RoleAdmin][FlagTeam] {
		t.Errorf("admin defaults disturbed by unrelated overrides")
	}
}

func TestResolver_InjectedDefaults(t *testing.T) {
	custom := map[string]Map{
		"auditor": {FlagReports: true},
	}
	r := NewResolver(custom)
	got := r.Resolve("auditor", nil, nil)
	if !got[FlagReports] {
		t.Fatalf("injected defaults not used")
	}
	if got[FlagJobs] {
		t.Fatalf("flags absent from injected base must resolve false")
	}
}

func TestDefaults_ReturnsFreshCopy(t *testing.T) {
	a := Defaults()
	a[RoleAdmin][FlagTeam] = false
	b := Defaults()
	if !b[RoleAdmin][FlagTeam] {
		t.Fatalf("mutating one Defaults() result leaked into the next")
	}
}
