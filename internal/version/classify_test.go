package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *SemanticVersion {
	v := MustParse(s)
	return &v
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		old  *SemanticVersion
		new  string
		want Transition
	}{
		{"no existing plan", nil, "1.0.0", Major},
		{"no existing plan, zero version", nil, "0.0.1", Major},
		{"major bump", ptr("1.0.0"), "2.0.0", Major},
		{"major bump resets minor", ptr("1.9.9"), "2.0.0", Major},
		{"minor bump", ptr("1.0.0"), "1.1.0", Minor},
		{"minor bump resets patch", ptr("1.0.7"), "1.1.0", Minor},
		{"patch bump", ptr("1.0.0"), "1.0.1", Patch},
		{"same", ptr("1.0.0"), "1.0.0", Same},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.old, MustParse(tt.new))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Regression(t *testing.T) {
	tests := []struct {
		old, new string
	}{
		{"2.0.0", "1.9.9"},
		{"1.2.0", "1.1.5"},
		{"1.0.3", "1.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.old+"->"+tt.new, func(t *testing.T) {
			_, err := Classify(ptr(tt.old), MustParse(tt.new))
			assert.ErrorIs(t, err, ErrVersionRegression)
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	old := ptr("1.2.3")
	for i := 0; i < 3; i++ {
		got, err := Classify(old, MustParse("1.3.0"))
		require.NoError(t, err)
		assert.Equal(t, Minor, got)
	}
	assert.Equal(t, SemanticVersion{1, 2, 3}, *old)
}

func TestClassifyStrings(t *testing.T) {
	got, err := ClassifyStrings("", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, Major, got)

	got, err = ClassifyStrings("v1.0.0", "1.0.1")
	require.NoError(t, err)
	assert.Equal(t, Patch, got)

	_, err = ClassifyStrings("1.0", "1.0.1")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = ClassifyStrings("1.0.0", "x")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestTransition_CreatesNewPlan(t *testing.T) {
	assert.True(t, Major.CreatesNewPlan())
	assert.True(t, Minor.CreatesNewPlan())
	assert.False(t, Patch.CreatesNewPlan())
	assert.False(t, Same.CreatesNewPlan())
}
