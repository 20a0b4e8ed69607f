package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_NamesProgramAndBuild(t *testing.T) {
	str := String()
	assert.Contains(t, str, "ragchat "+Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, GoVersion)
	assert.Equal(t, Version, Short())
}

func TestGetInfo_MarshalsForJSONOutput(t *testing.T) {
	// Given: the running build
	info := GetInfo()

	// When: marshalling it
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: platform fields come from the runtime
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, runtime.GOOS, decoded["os"])
	assert.Equal(t, runtime.GOARCH, decoded["arch"])
	assert.Equal(t, Version, decoded["version"])
}
