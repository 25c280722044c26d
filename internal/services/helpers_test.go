package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizePlain(t *testing.T) {
	cases := map[string]string{
		"Villa & Pool":                  "Villa & Pool",
		"  O'Brien \"Estates\" ":        `O'Brien "Estates"`,
		"3 < 4 > 2":                     "3 < 4 > 2",
		"<b>Loft</b><script>x</script>": "Loft",
	}
	for in, want := range cases {
		require.Equal(t, want, sanitizePlain(in), in)
	}
}

func TestSanitizeRichText(t *testing.T) {
	require.Equal(t, "Tom & Jerry's", sanitizeRichText("Tom & Jerry's"))
	require.Equal(t, "<p>A & B</p>", sanitizeRichText(`<p onclick="x()">A & B</p><script>alert(1)</script>`))
	// Character references that already mean something stay escaped.
	require.Equal(t, "1 &lt; 2 &amp;amp;", sanitizeRichText("1 &lt; 2 &amp;amp;"))
}
