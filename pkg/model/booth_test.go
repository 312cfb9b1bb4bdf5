package model

import "testing"

func TestWithinBoothCap(t *testing.T) {
	tests := []struct {
		name      string
		existing  int
		candidate int
		want      bool
	}{
		{"empty holding", 0, 6, true},
		{"exactly at cap", 3, 3, true},
		{"one over cap", 6, 1, false},
		{"three plus three plus one", 6, 1, false},
		{"partial sums", 3, 2, true},
		{"large candidate", 0, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinBoothCap(tt.existing, tt.candidate); got != tt.want {
				t.Errorf("WithinBoothCap(%d, %d) = %v, want %v", tt.existing, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestBoothType_Valid(t *testing.T) {
	for _, b := range BoothTypes {
		if !b.Valid() {
			t.Errorf("%q should be valid", b)
		}
		if b.QuotaField() == "" {
			t.Errorf("%q should map to a quota field", b)
		}
	}
	for _, b := range []BoothType{"", "medium", "SMALL"} {
		if b.Valid() {
			t.Errorf("%q should be invalid", b)
		}
		if b.QuotaField() != "" {
			t.Errorf("%q should not map to a quota field", b)
		}
	}
}

func TestExhibition_Quota(t *testing.T) {
	e := &Exhibition{SmallBoothQuota: 5, BigBoothQuota: 2}

	e.SetQuota(BoothSmall, e.Quota(BoothSmall)-3)
	e.SetQuota(BoothBig, e.Quota(BoothBig)+1)

	if e.SmallBoothQuota != 2 {
		t.Errorf("expected small quota 2, got %d", e.SmallBoothQuota)
	}
	if e.BigBoothQuota != 3 {
		t.Errorf("expected big quota 3, got %d", e.BigBoothQuota)
	}
	if e.Quota("medium") != 0 {
		t.Errorf("unknown booth type should report zero quota")
	}
}

func TestPrincipal_IsAdmin(t *testing.T) {
	if !(Principal{ID: "a", Role: RoleAdmin}).IsAdmin() {
		t.Error("admin principal should be admin")
	}
	if (Principal{ID: "m", Role: RoleMember}).IsAdmin() {
		t.Error("member principal should not be admin")
	}
	if Role("root").Valid() {
		t.Error("unknown role should be invalid")
	}
}
