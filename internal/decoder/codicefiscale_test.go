package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	assert.True(t, ValidateFormat("RSSMRA85T10A562S"))
	assert.True(t, ValidateFormat("rssmra85t10a562s"))
	assert.True(t, ValidateFormat("  RSSMRA85T10A562S  "))

	assert.False(t, ValidateFormat(""))
	assert.False(t, ValidateFormat("RSSMRA85T10A562"))   // 15 chars
	assert.False(t, ValidateFormat("RSSMRA85T10A562SS")) // 17 chars
	assert.False(t, ValidateFormat("RSSMR185T10A562S"))  // digit in surname block
	assert.False(t, ValidateFormat("RSSMRA8ST10A562S"))  // letter in year block
}

func TestValidateChecksum(t *testing.T) {
	valid := []string{
		"RSSMRA85T10A562S",
		"MRTMTT91D08F205J",
		"BNCLRA90A41F205I",
		"VRDGPP70M01H501J",
	}
	for _, code := range valid {
		assert.True(t, ValidateChecksum(code), code)
	}

	// correct format, wrong control character
	assert.False(t, ValidateChecksum("RSSMRA85T10A562X"))
	// malformed input never passes
	assert.False(t, ValidateChecksum("not a codice fiscale"))
}

func TestValidateChecksumIsCaseInsensitive(t *testing.T) {
	assert.True(t, ValidateChecksum("rssmra85t10a562s"))
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 23, 12, 0, 0, 0, time.UTC)
}

func TestDecodeMale(t *testing.T) {
	info, err := decodeAt("RSSMRA85T10A562S", fixedNow())
	require.NoError(t, err)

	assert.Equal(t, time.Date(1985, time.December, 10, 0, 0, 0, 0, time.UTC), info.BirthDate)
	assert.Equal(t, "M", info.Gender)
	assert.Equal(t, 40, info.Age)
	assert.Equal(t, "A562", info.BirthplaceCode)
}

func TestDecodeFemaleDayOffset(t *testing.T) {
	// day field 41 encodes day 1 for women
	info, err := decodeAt("BNCLRA90A41F205I", fixedNow())
	require.NoError(t, err)

	assert.Equal(t, time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), info.BirthDate)
	assert.Equal(t, "F", info.Gender)
	assert.Equal(t, 36, info.Age)
	assert.Equal(t, "F205", info.BirthplaceCode)
}

func TestDecodeCenturyInference(t *testing.T) {
	// yy=91 would be 2091, in the future, so it rolls back to 1991
	info, err := decodeAt("MRTMTT91D08F205J", fixedNow())
	require.NoError(t, err)
	assert.Equal(t, 1991, info.BirthDate.Year())
}

func TestDecodeAgeBeforeBirthday(t *testing.T) {
	// born in August 1970 on the 1st, already 56 on 2026-08-23
	info, err := decodeAt("VRDGPP70M01H501J", fixedNow())
	require.NoError(t, err)
	assert.Equal(t, 56, info.Age)
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	_, err := decodeAt("RSSMRA85T10A562X", fixedNow())
	assert.Error(t, err)
}
