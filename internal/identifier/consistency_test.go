package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(t *testing.T, r *Registry, name string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := r.Track(name, KindUnknown, "")
		require.NoError(t, err)
	}
}

func TestCheckConsistencyNoPriorForms(t *testing.T) {
	r := NewRegistry()

	res, err := r.CheckConsistency("brand_new_name")
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Empty(t, res.ConflictingForms)
	assert.Empty(t, res.CanonicalStyle)
}

func TestCheckConsistencyFlagsStyleConflict(t *testing.T) {
	r := NewRegistry()
	track(t, r, "get_user_data", 1)

	res, err := r.CheckConsistency("getUserData")
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Equal(t, []string{"get_user_data"}, res.ConflictingForms)
	assert.Equal(t, StyleSnake, res.CanonicalStyle)
	assert.Equal(t, "get_user_data", res.Suggestion)
}

func TestCheckConsistencySameStyleIsConsistent(t *testing.T) {
	r := NewRegistry()
	track(t, r, "get_user_data", 1)

	res, err := r.CheckConsistency("get_user_data")
	require.NoError(t, err)
	assert.True(t, res.Consistent)
}

func TestCheckConsistencyMajorityWeightedByOccurrences(t *testing.T) {
	r := NewRegistry()
	track(t, r, "get_user_data", 3)
	track(t, r, "getUserData", 1)

	res, err := r.CheckConsistency("GetUserData")
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.ElementsMatch(t, []string{"get_user_data", "getUserData"}, res.ConflictingForms)
	assert.Equal(t, StyleSnake, res.CanonicalStyle)
	assert.Empty(t, res.TiedStyles)
	assert.Equal(t, "get_user_data", res.Suggestion)
}

func TestCheckConsistencyTieReportsAllStyles(t *testing.T) {
	r := NewRegistry()
	track(t, r, "get_user_data", 2)
	track(t, r, "getUserData", 2)

	res, err := r.CheckConsistency("GetUserData")
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Empty(t, res.CanonicalStyle)
	assert.Equal(t, []Style{StyleCamel, StyleSnake}, res.TiedStyles)
	assert.Equal(t, res.ConflictingForms[0], res.Suggestion)
}

func TestCheckConsistencyCandidateCanMatchMajority(t *testing.T) {
	r := NewRegistry()
	track(t, r, "getUserData", 3)
	track(t, r, "get_user_data", 1)

	// The candidate already follows the majority; the minority form is
	// still reported as the conflict.
	res, err := r.CheckConsistency("getUserData")
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Equal(t, []string{"get_user_data"}, res.ConflictingForms)
	assert.Equal(t, StyleCamel, res.CanonicalStyle)
	assert.Equal(t, "getUserData", res.Suggestion)
}

func TestCheckConsistencyRelatedFormsAreAdvisory(t *testing.T) {
	r := NewRegistry()
	track(t, r, "fetch_user_data", 1)

	res, err := r.CheckConsistency("get_user_data")
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, []string{"fetch_user_data"}, res.RelatedForms)
}

func TestCheckConsistencyRejectsInvalidName(t *testing.T) {
	r := NewRegistry()

	_, err := r.CheckConsistency("not valid")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
