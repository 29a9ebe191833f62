package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhzsx/creepMiner/internal/webtemplate"
)

func testRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "public", "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "public", "css", "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>%CONTENTPAGE%</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "block.html"), []byte("<p>height %HEIGHT%</p>"), 0o644))

	// A file outside the root that traversal must never reach.
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	return root
}

func TestOpen_ServesAssetWithMIME(t *testing.T) {
	loader := NewLoader(testRoot(t))

	data, mimeType, ok := loader.Open("public/css/style.css")
	require.True(t, ok)
	assert.Equal(t, "body{}", string(data))
	assert.Contains(t, mimeType, "text/css")
}

func TestOpen_LeadingSlash(t *testing.T) {
	loader := NewLoader(testRoot(t))

	_, _, ok := loader.Open("/public/css/style.css")
	assert.True(t, ok)
}

func TestOpen_MissingReturnsFalse(t *testing.T) {
	loader := NewLoader(testRoot(t))

	_, _, ok := loader.Open("public/js/missing.js")
	assert.False(t, ok)
}

func TestOpen_RejectsTraversal(t *testing.T) {
	loader := NewLoader(testRoot(t))

	for _, path := range []string{
		"../secret.txt",
		"../../etc/passwd",
		"public/../../secret.txt",
		"..%2F..%2Fetc%2Fpasswd",
	} {
		_, _, ok := loader.Open(path)
		assert.False(t, ok, "path %q must be rejected", path)
	}
}

func TestOpen_RejectsDirectoryAndEmpty(t *testing.T) {
	loader := NewLoader(testRoot(t))

	_, _, ok := loader.Open("public")
	assert.False(t, ok)

	_, _, ok = loader.Open("")
	assert.False(t, ok)
}

func TestOpen_UnknownExtensionFallsBack(t *testing.T) {
	root := testRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.plotmeta"), []byte{1, 2, 3}, 0o644))
	loader := NewLoader(root)

	_, mimeType, ok := loader.Open("data.plotmeta")
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", mimeType)
}

func TestRenderPage(t *testing.T) {
	loader := NewLoader(testRoot(t))

	vars := webtemplate.Variables{"%HEIGHT%": webtemplate.Static("123456")}
	page, err := loader.RenderPage("index.html", "block.html", vars)
	require.NoError(t, err)

	assert.Equal(t, "<html><p>height 123456</p></html>", page)
}

func TestRenderPage_MissingPages(t *testing.T) {
	loader := NewLoader(testRoot(t))

	_, err := loader.RenderPage("missing.html", "block.html", nil)
	assert.Error(t, err)

	_, err = loader.RenderPage("index.html", "missing.html", nil)
	assert.Error(t, err)
}
