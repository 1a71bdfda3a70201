package renderer

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInURL(t *testing.T) {
	got, err := SignInURL("http://localhost:3000/", "/components/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/signin?next=%2Fcomponents", got)

	_, err = SignInURL("localhost:3000", "components")
	assert.Error(t, err)
}

func TestAllocatorOptionsAddToDefaults(t *testing.T) {
	t.Setenv("CHROME_PATH", "/opt/chrome")
	opts := allocatorOptions(Options{})
	assert.Greater(t, len(opts), len(chromedp.DefaultExecAllocatorOptions))
}
