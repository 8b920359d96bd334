package cigate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSummary_AllGreen(t *testing.T) {
	s := CheckSummary{Success: []string{"a", "b"}}
	assert.True(t, s.AllGreen())
	assert.False(t, s.AnyFailed())
}

func TestCheckSummary_Pending(t *testing.T) {
	s := CheckSummary{Pending: []string{"a"}}
	assert.False(t, s.AllGreen())
	assert.False(t, s.AnyFailed())
}

func TestCheckSummary_Failed(t *testing.T) {
	s := CheckSummary{Failed: []string{"a"}}
	assert.False(t, s.AllGreen())
	assert.True(t, s.AnyFailed())
}

func TestDetectRepo_Combined(t *testing.T) {
	r, err := DetectRepo("owner/name", "", "")
	require.NoError(t, err)
	assert.Equal(t, Repo{Owner: "owner", Name: "name"}, r)
}

func TestDetectRepo_Split(t *testing.T) {
	r, err := DetectRepo("", "owner", "name")
	require.NoError(t, err)
	assert.Equal(t, Repo{Owner: "owner", Name: "name"}, r)
}

func TestDetectRepo_Missing(t *testing.T) {
	_, err := DetectRepo("", "", "")
	require.Error(t, err)
}

func TestDetectRepo_MalformedCombined(t *testing.T) {
	_, err := DetectRepo("not-a-repo", "", "")
	require.Error(t, err)
}
