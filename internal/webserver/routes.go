package webserver

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/answerlab/answerlab/web"
)

// registerStatic serves the embedded page at the web root. Unknown paths
// fall back to index.html so reloads keep working.
func registerStatic(mux *http.ServeMux) error {
	staticFS, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub filesystem for web/static: %w", err)
	}

	fileServer := http.FileServer(http.FS(staticFS))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" {
			cleanPath := strings.TrimPrefix(path, "/")
			if f, err := staticFS.Open(cleanPath); err == nil {
				f.Close() //nolint:errcheck
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}))
	return nil
}
