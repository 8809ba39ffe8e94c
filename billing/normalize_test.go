package billing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// PRECEDENCE TESTS
// =============================================================================

func TestNormalize_AdminAdjustmentBeatsOperator(t *testing.T) {
	// GIVEN: An operator submission and an admin amendment for the same day
	// WHEN: Normalizing
	// THEN: The admin amendment is effective, the operator entry is superseded

	op := entry("op-1", monday, "EX-01", billing.RoleOperator, 10)
	admin := entry("adm-1", monday, "EX-01", billing.RoleAdmin, 9)
	admin.AdjustedBy = "site admin"

	out, err := billing.Normalize([]billing.RawEntry{op, admin})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "adm-1", out[0].Entry.ID)
	require.Len(t, out[0].Superseded, 1)
	assert.Equal(t, "op-1", out[0].Superseded[0].ID)
	assert.False(t, out[0].ReferenceOnly)
}

func TestNormalize_RoleHierarchy(t *testing.T) {
	tests := []struct {
		name   string
		roles  []billing.Role
		winner int
	}{
		{"admin over plant manager", []billing.Role{billing.RolePlantManager, billing.RoleAdmin}, 1},
		{"plant manager over operator", []billing.Role{billing.RoleOperator, billing.RolePlantManager}, 1},
		{"admin over operator", []billing.Role{billing.RoleAdmin, billing.RoleOperator}, 0},
		{"operator over subcontractor", []billing.Role{billing.RoleSubcontractor, billing.RoleOperator}, 1},
		{"legacy empty role over subcontractor", []billing.Role{billing.RoleSubcontractor, ""}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw []billing.RawEntry
			for i, role := range tt.roles {
				raw = append(raw, entry(fmt.Sprintf("e-%d", i), monday, "EX-01", role, float64(8+i)))
			}

			out, err := billing.Normalize(raw)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, fmt.Sprintf("e-%d", tt.winner), out[0].Entry.ID)
		})
	}
}

func TestNormalize_AmendedBeatsPlainWithinRole(t *testing.T) {
	plain := entry("plain", monday, "EX-01", billing.RoleOperator, 7)
	amended := entry("amended", monday, "EX-01", billing.RoleOperator, 8)
	amended.HasOriginalEntry = true

	out, err := billing.Normalize([]billing.RawEntry{amended, plain})
	require.NoError(t, err)
	assert.Equal(t, "amended", out[0].Entry.ID)

	flagged := entry("flagged", monday, "EX-01", billing.RoleOperator, 8)
	flagged.IsAdjustment = true
	out, err = billing.Normalize([]billing.RawEntry{plain, flagged})
	require.NoError(t, err)
	assert.Equal(t, "flagged", out[0].Entry.ID)
}

func TestPrecedence_Ordering(t *testing.T) {
	sub := billing.RawEntry{AuthorRole: billing.RoleSubcontractor, IsAdjustment: true}
	op := billing.RawEntry{AuthorRole: billing.RoleOperator}
	opAmended := billing.RawEntry{AuthorRole: billing.RoleOperator, AdjustedBy: "x"}
	pm := billing.RawEntry{AuthorRole: billing.RolePlantManager}
	admin := billing.RawEntry{AuthorRole: billing.RoleAdmin}

	assert.Less(t, billing.Precedence(sub), billing.Precedence(op))
	assert.Less(t, billing.Precedence(op), billing.Precedence(opAmended))
	assert.Less(t, billing.Precedence(opAmended), billing.Precedence(pm))
	assert.Less(t, billing.Precedence(pm), billing.Precedence(admin))
}

// =============================================================================
// SUBCONTRACTOR TESTS
// =============================================================================

func TestNormalize_SubcontractorKeptAsReference(t *testing.T) {
	op := entry("op", monday, "EX-01", billing.RoleOperator, 8)
	sub := entry("sub", monday, "EX-01", billing.RoleSubcontractor, 11)
	sub.IsAdjustment = true

	out, err := billing.Normalize([]billing.RawEntry{sub, op})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "op", out[0].Entry.ID)
	assert.Empty(t, out[0].Superseded)
	require.Len(t, out[0].References, 1)
	assert.Equal(t, "sub", out[0].References[0].ID)
}

func TestNormalize_SubcontractorOnly_IsReferenceOnly(t *testing.T) {
	sub := entry("sub", monday, "EX-01", billing.RoleSubcontractor, 11)

	out, err := billing.Normalize([]billing.RawEntry{sub})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].ReferenceOnly)
	assert.Equal(t, "sub", out[0].Entry.ID)
}

// =============================================================================
// AMBIGUITY TESTS
// =============================================================================

func TestNormalize_TiedDisagreeingEntries_Ambiguous(t *testing.T) {
	a := entry("a", monday, "EX-01", billing.RoleOperator, 8)
	b := entry("b", monday, "EX-01", billing.RoleOperator, 9)

	_, err := billing.Normalize([]billing.RawEntry{a, b})
	require.Error(t, err)

	var ambErr *billing.AmbiguousEntryError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, billing.EntryKey{Date: monday, Subject: "EX-01"}, ambErr.Key)
	assert.Equal(t, []string{"a", "b"}, ambErr.EntryIDs)
	assert.ErrorIs(t, err, billing.ErrAmbiguousEntry)
}

func TestNormalize_TiedAmendments_Ambiguous(t *testing.T) {
	a := entry("a", monday, "EX-01", billing.RoleAdmin, 8)
	a.AdjustedBy = "alice"
	b := entry("b", monday, "EX-01", billing.RoleAdmin, 6)
	b.IsAdjustment = true

	_, err := billing.Normalize([]billing.RawEntry{a, b})
	assert.ErrorIs(t, err, billing.ErrAmbiguousEntry)
}

func TestNormalize_IdenticalResubmission_FirstWins(t *testing.T) {
	a := entry("a", monday, "EX-01", billing.RoleOperator, 8)
	b := entry("b", monday, "EX-01", billing.RoleOperator, 8)
	b.Notes = "submitted twice"

	out, err := billing.Normalize([]billing.RawEntry{a, b})
	require.NoError(t, err)
	assert.Equal(t, "a", out[0].Entry.ID)
	assert.Len(t, out[0].Superseded, 1)
}

func TestNormalize_MissingSubject_Rejected(t *testing.T) {
	e := billing.RawEntry{ID: "x", Date: monday, TotalHours: hoursPtr(8)}

	_, err := billing.Normalize([]billing.RawEntry{e})
	assert.ErrorIs(t, err, billing.ErrAmbiguousEntry)
}

// =============================================================================
// SHAPE TESTS
// =============================================================================

func TestNormalize_OnePerKey_InFirstAppearanceOrder(t *testing.T) {
	raw := []billing.RawEntry{
		entry("1", tuesday, "EX-01", billing.RoleOperator, 8),
		entry("2", monday, "EX-01", billing.RoleOperator, 8),
		entry("3", tuesday, "EX-02", billing.RoleOperator, 8),
		entry("4", tuesday, "EX-01", billing.RoleAdmin, 7),
		entry("5", monday, "EX-01", billing.RolePlantManager, 6),
	}

	out, err := billing.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, billing.EntryKey{Date: tuesday, Subject: "EX-01"}, out[0].Key())
	assert.Equal(t, "4", out[0].Entry.ID)
	assert.Equal(t, billing.EntryKey{Date: monday, Subject: "EX-01"}, out[1].Key())
	assert.Equal(t, "5", out[1].Entry.ID)
	assert.Equal(t, billing.EntryKey{Date: tuesday, Subject: "EX-02"}, out[2].Key())
}

func TestNormalize_SubjectFallsBackToAssetThenOperator(t *testing.T) {
	byAsset := billing.RawEntry{ID: "a", Date: monday, AssetID: "EX-01", Operator: "sipho", TotalHours: hoursPtr(8)}
	byOperator := billing.RawEntry{ID: "b", Date: monday, Operator: "sipho", TotalHours: hoursPtr(8)}

	assert.Equal(t, "EX-01", byAsset.Subject())
	assert.Equal(t, "sipho", byOperator.Subject())

	out, err := billing.Normalize([]billing.RawEntry{byAsset, byOperator})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestNormalize_Empty(t *testing.T) {
	out, err := billing.Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// =============================================================================
// INPUT VALIDATION TESTS
// =============================================================================

func TestNormalize_DateFormsShareOneKey(t *testing.T) {
	// GIVEN: An operator record and an admin adjustment for the same day,
	// one dated with a plain day and one with a timestamp
	op := entry("op", monday, "EX-01", billing.RoleOperator, 10)
	adj := entry("adj", monday+"T00:00:00Z", "EX-01", billing.RoleAdmin, 8)
	adj.AdjustedBy = "office"

	// WHEN: Normalizing
	out, err := billing.Normalize([]billing.RawEntry{op, adj})

	// THEN: One effective entry, keyed by the canonical day, won by the admin
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, billing.EntryKey{Date: monday, Subject: "EX-01"}, out[0].Key())
	assert.Equal(t, "adj", out[0].Entry.ID)
	require.Len(t, out[0].Superseded, 1)
	assert.Equal(t, "op", out[0].Superseded[0].ID)
}

func TestRun_DateFormsBilledOnce(t *testing.T) {
	op := entry("op", monday, "EX-01", billing.RoleOperator, 10)
	adj := entry("adj", " "+monday+"T00:00:00Z", "EX-01", billing.RoleAdmin, 8)
	adj.AdjustedBy = "office"

	calc, err := billing.Run([]billing.RawEntry{op, adj}, billing.StandardConfig(), billing.Options{})
	require.NoError(t, err)

	assert.Len(t, calc.Effective, 1)
	assert.True(t, calc.Total().BillableHours.Value.Equal(dec(8)))
}

func TestNormalize_UnparseableDate_Rejected(t *testing.T) {
	bad := entry("x", "10/03/2025", "EX-01", billing.RoleOperator, 8)

	_, err := billing.Normalize([]billing.RawEntry{bad})

	var rangeErr *billing.InvalidTimeRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "date", rangeErr.Field)
	assert.Equal(t, "x", rangeErr.EntryID)
	assert.ErrorIs(t, err, generic.ErrInvalidDay)
}

func TestNormalize_UnknownRole_Rejected(t *testing.T) {
	tests := []struct {
		name string
		role billing.Role
	}{
		{"capitalized subcontractor", "Subcontractor"},
		{"unknown role", "foreman"},
		{"padded role", " admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("x", monday, "EX-01", tt.role, 10)

			out, err := billing.Normalize([]billing.RawEntry{e})

			assert.Nil(t, out)
			assert.ErrorIs(t, err, billing.ErrAmbiguousEntry)
			assert.Contains(t, err.Error(), "unknown author role")
			assert.True(t, billing.IsClientError(err))
		})
	}
}

func TestNormalize_EmptyRoleCountsAsOperator(t *testing.T) {
	legacy := entry("legacy", monday, "EX-01", "", 8)
	op := entry("op", monday, "EX-01", billing.RoleOperator, 8)

	assert.Equal(t, billing.Precedence(op), billing.Precedence(legacy))

	out, err := billing.Normalize([]billing.RawEntry{legacy})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].ReferenceOnly)
}
