// Package assets resolves and renders the web UI's static and templated
// resources. All file access is contained under a fixed web root.
package assets

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/zhzsx/creepMiner/internal/webtemplate"
)

// ContentKey is the reserved slot in a template page where the rendered
// content page is inserted.
const ContentKey = "%CONTENTPAGE%"

const defaultMIME = "application/octet-stream"

// Loader serves assets and renders template pages from a web root directory.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: dir}
}

// Open resolves relpath under the web root and returns its bytes and MIME
// type. Any path whose resolved form would escape the root is rejected, and
// ok is false for missing or rejected paths.
func (l *Loader) Open(relpath string) (data []byte, mimeType string, ok bool) {
	relpath = strings.TrimPrefix(relpath, "/")
	if relpath == "" {
		return nil, "", false
	}

	// SecureJoin resolves the path inside the root; a traversal attempt
	// lands on a non-existent in-root path instead of escaping.
	full, err := securejoin.SecureJoin(l.root, relpath)
	if err != nil {
		return nil, "", false
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, "", false
	}

	data, err = os.ReadFile(full)
	if err != nil {
		return nil, "", false
	}

	mimeType = mime.TypeByExtension(filepath.Ext(full))
	if mimeType == "" {
		mimeType = defaultMIME
	}
	return data, mimeType, true
}

// RenderPage loads the template and content pages, injects vars into the
// content, places the rendered content into the template's reserved slot and
// injects vars into the template. The result is a complete HTML page.
func (l *Loader) RenderPage(templatePage, contentPage string, vars webtemplate.Variables) (string, error) {
	tmpl, _, ok := l.Open(templatePage)
	if !ok {
		return "", fmt.Errorf("template page %q not found", templatePage)
	}
	content, _, ok := l.Open(contentPage)
	if !ok {
		return "", fmt.Errorf("content page %q not found", contentPage)
	}

	rendered := vars.Inject(string(content))
	withContent := vars.Merge(webtemplate.Variables{
		ContentKey: webtemplate.Static(rendered),
	})
	return withContent.Inject(string(tmpl)), nil
}
