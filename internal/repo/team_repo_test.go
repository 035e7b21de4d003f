package repo

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/perm"
)

func TestMemberOverrides_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Company{}, &domain.Member{})
	ctx := context.Background()

	co, err := CreateCompany(ctx, db, "Fieldline Plumbing")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	m, err := CreateMember(ctx, db, &domain.Member{
		CompanyID: co.ID, UserID: "u1", Name: "Sam", Role: perm.RoleTechnician,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	// Explicit false must survive serialization as an overridden key.
	ov := perm.Overrides{perm.FlagJobs: false, perm.FlagDispatch: true}
	if err := UpdateMemberOverrides(ctx, db, m.ID, co.ID, ov); err != nil {
		t.Fatalf("UpdateMemberOverrides: %v", err)
	}

	got, err := GetMember(ctx, db, m.ID, co.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	decoded := MemberOverrides(got)
	if v, ok := decoded[perm.FlagJobs]; !ok || v {
		t.Fatalf("jobs override lost: %+v", decoded)
	}
	if v, ok := decoded[perm.FlagDispatch]; !ok || !v {
		t.Fatalf("dispatch override lost: %+v", decoded)
	}
	if _, ok := decoded[perm.FlagSales]; ok {
		t.Fatalf("sales must stay absent (not overridden): %+v", decoded)
	}
}

func TestCompanyRoleOverrides_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Company{})
	ctx := context.Background()

	co, err := CreateCompany(ctx, db, "Fieldline Plumbing")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	ov := perm.RoleOverrides{
		perm.RoleTechnician: perm.Overrides{perm.FlagDispatch: true},
	}
	if err := UpdateCompanyRoleOverrides(ctx, db, co.ID, ov); err != nil {
		t.Fatalf("UpdateCompanyRoleOverrides: %v", err)
	}

	got, err := GetCompany(ctx, db, co.ID)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	decoded := CompanyRoleOverrides(got)
	if v, ok := decoded[perm.RoleTechnician][perm.FlagDispatch]; !ok || !v {
		t.Fatalf("role overrides lost: %+v", decoded)
	}
}

func TestCreateMember_DuplicateUser(t *testing.T) {
	db := newTestDB(t, &domain.Company{}, &domain.Member{})
	ctx := context.Background()

	co, _ := CreateCompany(ctx, db, "co")
	if _, err := CreateMember(ctx, db, &domain.Member{CompanyID: co.ID, UserID: "u1", Name: "A", Role: perm.RoleAdmin}); err != nil {
		t.Fatalf("first member: %v", err)
	}
	if _, err := CreateMember(ctx, db, &domain.Member{CompanyID: co.ID, UserID: "u1", Name: "B", Role: perm.RoleAdmin}); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestOverrideDecoders_NilAndEmpty(t *testing.T) {
	if MemberOverrides(nil) != nil {
		t.Fatalf("nil member should decode to nil overrides")
	}
	if MemberOverrides(&domain.Member{}) != nil {
		t.Fatalf("empty column should decode to nil overrides")
	}
	if CompanyRoleOverrides(nil) != nil {
		t.Fatalf("nil company should decode to nil overrides")
	}
	if CompanyRoleOverrides(&domain.Company{RoleOverrides: "not json"}) != nil {
		t.Fatalf("garbage column should decode to nil overrides")
	}
}

func TestOverrideDecoders_CorruptColumnIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)

	if MemberOverrides(&domain.Member{ID: "m-1", Overrides: "{broken"}) != nil {
		t.Fatalf("corrupt member column should decode to nil overrides")
	}
	if !strings.Contains(buf.String(), "corrupt member overrides") || !strings.Contains(buf.String(), "m-1") {
		t.Fatalf("corrupt member column not logged: %s", buf.String())
	}

	buf.Reset()
	if CompanyRoleOverrides(&domain.Company{ID: "c-1", RoleOverrides: "[oops"}) != nil {
		t.Fatalf("corrupt company column should decode to nil overrides")
	}
	if !strings.Contains(buf.String(), "corrupt role overrides") || !strings.Contains(buf.String(), "c-1") {
		t.Fatalf("corrupt company column not logged: %s", buf.String())
	}
}
