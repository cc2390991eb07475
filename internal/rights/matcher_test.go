package rights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesExact(t *testing.T) {
	assert.True(t, Matches("content:courses:read", "content:courses:read"))
	assert.True(t, Matches("Content:Courses:Read", "content:courses:read"))
	assert.False(t, Matches("content:courses:read", "content:courses:write"))
	assert.False(t, Matches("", "content:courses:read"))
	assert.False(t, Matches("content:courses:read", ""))
}

func TestMatchesDomainWildcard(t *testing.T) {
	assert.True(t, Matches("content:*", "content:courses:read"))
	assert.True(t, Matches("content:*", "content:modules:publish"))
	assert.False(t, Matches("content:*", "grades:courses:read"))
	assert.False(t, Matches("content:*", "contentedit:courses:read"))
}

func TestMatchesResourceWildcard(t *testing.T) {
	assert.True(t, Matches("content:courses:*", "content:courses:write"))
	assert.False(t, Matches("content:courses:*", "content:modules:write"))
	assert.False(t, Matches("content:courses:*", "grades:courses:write"))
}

func TestMatchesUnrecognizedWildcardFailsClosed(t *testing.T) {
	assert.False(t, Matches("*", "content:courses:read"))
	assert.False(t, Matches("*:*", "content:courses:read"))
	assert.False(t, Matches("content:*:read", "content:courses:read"))
	assert.False(t, Matches(":*", "content:courses:read"))
	assert.False(t, Matches("a:b:c:*", "a:b:c:d"))
}

func TestHasAny(t *testing.T) {
	granted := []string{"grades:entries:read", "content:*"}
	assert.True(t, HasAny(granted, []string{"content:courses:write"}))
	assert.True(t, HasAny(granted, []string{"enroll:seats:add", "grades:entries:read"}))
	assert.False(t, HasAny(granted, []string{"enroll:seats:add"}))
	assert.False(t, HasAny(granted, nil), "disjunction over nothing grants nothing")
	assert.False(t, HasAny(nil, []string{"content:courses:read"}))
}

func TestHasAll(t *testing.T) {
	granted := []string{"content:*", "grades:entries:read"}
	assert.True(t, HasAll(granted, []string{"content:courses:read", "grades:entries:read"}))
	assert.False(t, HasAll(granted, []string{"content:courses:read", "enroll:seats:add"}))
	assert.True(t, HasAll(granted, nil), "vacuously true")
	assert.True(t, HasAll(nil, nil))
}

func TestExpandWildcards(t *testing.T) {
	known := []string{
		"content:courses:read",
		"content:courses:write",
		"content:modules:read",
		"grades:entries:read",
	}

	out := ExpandWildcards([]string{"content:courses:*", "grades:entries:read"}, known)
	assert.ElementsMatch(t, []string{
		"content:courses:read",
		"content:courses:write",
		"grades:entries:read",
	}, out)

	out = ExpandWildcards([]string{"content:*"}, known)
	assert.ElementsMatch(t, []string{
		"content:courses:read",
		"content:courses:write",
		"content:modules:read",
	}, out)
}

func TestExpandWildcardsDegradesWithoutCatalog(t *testing.T) {
	out := ExpandWildcards([]string{"content:*", "grades:entries:read"}, nil)
	assert.Equal(t, []string{"grades:entries:read"}, out)
}

func TestExpandWildcardsDeduplicates(t *testing.T) {
	known := []string{"content:courses:read"}
	out := ExpandWildcards([]string{"content:*", "content:courses:read", "CONTENT:COURSES:READ"}, known)
	assert.Equal(t, []string{"content:courses:read"}, out)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("content:courses:read"))
	require.NoError(t, Validate("content:*"))
	require.NoError(t, Validate("content:courses:*"))

	assert.Error(t, Validate("content"))
	assert.Error(t, Validate("*"))
	assert.Error(t, Validate("*:courses:read"))
	assert.Error(t, Validate("content:*:read"))
	assert.Error(t, Validate("content::read"))
	assert.Error(t, Validate("a:b:c:d"))
}

func TestUnion(t *testing.T) {
	out := Union(
		[]string{"content:courses:read", "grades:entries:read"},
		[]string{"grades:entries:read", "Content:Courses:Write"},
	)
	assert.Equal(t, []string{
		"content:courses:read",
		"grades:entries:read",
		"content:courses:write",
	}, out)
}
