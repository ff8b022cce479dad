// Package prompt is a file-backed prompt template store. Templates are
// plain text files named <id>.txt under a root directory; placeholders
// use the {name} form and are replaced verbatim.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
)

// Store loads and renders prompt templates from a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is not checked
// up front; a missing template surfaces on Render as a configuration error.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Render reads template id and substitutes each {key} placeholder.
func (s *Store) Render(id string, subs map[string]string) (string, error) {
	path := filepath.Join(s.dir, id+".txt")
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewProviderError(domain.KindConfiguration,
			fmt.Sprintf("prompt template %q not found", id), err)
	}
	text := string(raw)
	for k, v := range subs {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text, nil
}
