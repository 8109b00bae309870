package auth

import "testing"

func TestPermissionsForRole(t *testing.T) {
	tests := []struct {
		role Role
		want []Permission
	}{
		{RoleOperator, []Permission{PermMessageSend, PermMessageRead, PermNodeStatus}},
		{RoleSupervisor, []Permission{PermMessageSend, PermMessageRead, PermNodeStatus, PermMessageDelete, PermAuditRead}},
		{RoleAdmin, []Permission{PermMessageSend, PermMessageRead, PermNodeStatus, PermMessageDelete, PermAuditRead, PermNodeManage, PermConfigWrite, PermAuditExport}},
		{RoleService, []Permission{PermMessageSend, PermMessageRead, PermNodeStatus, PermInternalCall}},
		{Role("bogus"), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := PermissionsForRole(tt.role)
			if len(got) != len(tt.want) {
				t.Fatalf("PermissionsForRole(%s) = %v, want %v", tt.role, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("PermissionsForRole(%s)[%d] = %s, want %s", tt.role, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRBACMinimality(t *testing.T) {
	// P9: for every role R and permission P not in mapping(R), R must not have P.
	all := []Permission{
		PermMessageSend, PermMessageRead, PermNodeStatus, PermMessageDelete,
		PermAuditRead, PermNodeManage, PermConfigWrite, PermAuditExport, PermInternalCall,
	}

	operatorHas := map[Permission]bool{
		PermMessageSend: true, PermMessageRead: true, PermNodeStatus: true,
	}

	claims := &Claims{Role: RoleOperator, Permissions: PermissionsForRole(RoleOperator)}
	for _, p := range all {
		want := operatorHas[p]
		if got := claims.Has(p); got != want {
			t.Errorf("operator.Has(%s) = %v, want %v", p, got, want)
		}
	}
}

func TestEffectivePermissionsOverride(t *testing.T) {
	explicit := []Permission{PermAuditExport}
	got := EffectivePermissions(RoleOperator, explicit)
	if len(got) != 1 || got[0] != PermAuditExport {
		t.Errorf("explicit permissions claim should override role mapping, got %v", got)
	}

	got = EffectivePermissions(RoleOperator, nil)
	if len(got) != 3 {
		t.Errorf("nil explicit permissions should fall back to role mapping, got %v", got)
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		in      string
		want    Classification
		wantOK  bool
		ordered bool
	}{
		{"UNCLASSIFIED", Unclassified, true, false},
		{"CONFIDENTIAL", Confidential, true, false},
		{"SECRET", Secret, true, false},
		{"TOP_SECRET", TopSecret, true, false},
		{"NOPE", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClassification(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseClassification(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseClassification(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if !(Unclassified < Confidential && Confidential < Secret && Secret < TopSecret) {
		t.Error("classification levels must be totally ordered UNCLASSIFIED < CONFIDENTIAL < SECRET < TOP_SECRET")
	}
}
