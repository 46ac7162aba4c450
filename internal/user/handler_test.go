package user

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhonePattern(t *testing.T) {
	t.Parallel()

	valid := []string{"+1", "+14155550123", "+442071838750", "+99999999999999"}
	for _, number := range valid {
		require.True(t, phonePattern.MatchString(number), "expected %q to be valid", number)
	}

	invalid := []string{
		"",
		"14155550123",        // missing plus
		"+",                  // no digits
		"+1 415 555 0123",    // spaces
		"+1-415-555-0123",    // dashes
		"+141555501234567890", // too long
		"+1415555012a",       // letters
	}
	for _, number := range invalid {
		require.False(t, phonePattern.MatchString(number), "expected %q to be invalid", number)
	}
}

func TestTrimmed(t *testing.T) {
	t.Parallel()

	require.Nil(t, trimmed(nil))

	in := "  spaced  "
	out := trimmed(&in)
	require.NotNil(t, out)
	require.Equal(t, "spaced", *out)
}
