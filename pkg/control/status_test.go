package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRegistrationStatus(t *testing.T) {
	want := map[RegistrationStatus]string{
		RegistrationNotRegistered:            "not_registered",
		RegistrationBadAddress:               "bad_address",
		RegistrationRequested:                "requested",
		RegistrationTimeOut:                  "time_out",
		RegistrationUnknownResponse:          "unknown_resp",
		RegistrationRegistered:               "registered",
		RegistrationDirectoryFull:            "directory_server_full",
		RegistrationVersionTooOld:            "server_version_too_old",
		RegistrationRequirementsNotFulfilled: "requirements_not_fulfilled",
	}
	for status, s := range want {
		assert.Equal(t, s, SerializeRegistrationStatus(status))
	}
	assert.Equal(t, "unknown(999)", SerializeRegistrationStatus(999))
	assert.Equal(t, "unknown(-1)", RegistrationStatus(-1).String())
}

func TestParseDirectoryType(t *testing.T) {
	for typ, name := range directoryNames {
		got, err := ParseDirectoryType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
		assert.Equal(t, name, typ.String())
	}
	got, err := ParseDirectoryType("  ROCK ")
	require.NoError(t, err)
	assert.Equal(t, DirectoryRock, got)

	got, err = ParseDirectoryType("")
	require.NoError(t, err)
	assert.Equal(t, DirectoryNone, got)

	_, err = ParseDirectoryType("polka")
	assert.Error(t, err)
}

func TestDirectoryAddress(t *testing.T) {
	assert.Equal(t, "", DirectoryAddress(DirectoryNone, "x:1"))
	assert.Equal(t, "anygenre1.jamulus.io:22124", DirectoryAddress(DirectoryDefault, ""))
	assert.Equal(t, "my.host:22124", DirectoryAddress(DirectoryCustom, "my.host:22124"))
}

func TestCatalogNames(t *testing.T) {
	assert.Equal(t, "None", InstrumentName(0))
	assert.Equal(t, "Conductor", InstrumentName(49))
	assert.Equal(t, "Unknown", InstrumentName(-3))
	assert.Equal(t, "Intermediate", SkillLevelName(SkillIntermediate))
	assert.Equal(t, "None", SkillLevelName(SkillLevel(12)))
	assert.Equal(t, "United States", CountryName(840))
	assert.Equal(t, "Germany", CountryName(276))
	assert.NotEqual(t, "Germany", CountryName(82))
	assert.Equal(t, "Unknown", CountryName(0))
	assert.Equal(t, "Unknown", CountryName(5000))
}
