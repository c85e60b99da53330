package reconciler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testplan/internal/remote"
	"testplan/internal/version"
)

func TestPlanTitle(t *testing.T) {
	assert.Equal(t, "Demo Test Plan v1.0.0", PlanTitle("Demo", version.MustParse("1.0.0")))
}

func TestParsePlanVersion(t *testing.T) {
	tests := []struct {
		title string
		want  string
		ok    bool
	}{
		{"Demo Test Plan v1.2.3", "1.2.3", true},
		{"demo test plan v2.0.0", "2.0.0", true},
		{"Demo Test Plan v1.2", "", false},
		{"Demo Test Plan vv1.2.3", "", false},
		{"Demo Test Plan v1.2.3 copy", "", false},
		{"Demo2 Test Plan v1.2.3", "", false},
		{"Other Test Plan v1.2.3", "", false},
		{"Demo Test Plan v", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok := ParsePlanVersion("Demo", tt.title)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestFindCurrentPlan(t *testing.T) {
	plans := []remote.TestPlanRef{
		{ID: 1, Name: "Demo Test Plan v1.0.0"},
		{ID: 2, Name: "Demo Test Plan v1.10.0"},
		{ID: 3, Name: "Demo Test Plan v1.9.5"},
		{ID: 4, Name: "Unrelated plan"},
		{ID: 5, Name: "Demo Test Plan v1.10.0"},
		{ID: 6, Name: "Demo Test Plan vX"},
	}

	current, v, siblings := FindCurrentPlan("Demo", plans)
	require.NotNil(t, current)
	require.NotNil(t, v)
	assert.Equal(t, 2, current.ID)
	assert.Equal(t, "1.10.0", v.String())
	assert.Equal(t, []int{2, 5}, []int{siblings[0].ID, siblings[1].ID})
}

func TestFindCurrentPlan_None(t *testing.T) {
	current, v, siblings := FindCurrentPlan("Demo", []remote.TestPlanRef{{ID: 1, Name: "Other"}})
	assert.Nil(t, current)
	assert.Nil(t, v)
	assert.Empty(t, siblings)

	current, _, _ = FindCurrentPlan("Demo", nil)
	assert.Nil(t, current)
}

func TestSuiteTitle(t *testing.T) {
	v := version.MustParse("1.0.1")
	assert.Equal(t, "Login - v1.0.1", SuiteTitle("Login", v))
	assert.Equal(t, "a_b_c_ - v1.0.1", SuiteTitle(`a/b:c?`, v))
	assert.Equal(t, "unnamed_suite - v1.0.1", SuiteTitle("   ", v))

	long := SuiteTitle(strings.Repeat("x", 300), v)
	assert.Len(t, []rune(long), 200)
	assert.True(t, strings.HasSuffix(long, "..."))
}
