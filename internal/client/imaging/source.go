package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

var ErrImageProcessing = errors.New("image processing failed")

// Source opens the image stored at uri.
type Source interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// FileSource reads plain paths and file:// URIs.
type FileSource struct{}

func (FileSource) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("bad file uri %q: %w", uri, err)
		}
		path = u.Path
	}
	return os.Open(path)
}

// Router dispatches on the URI scheme. URIs without a scheme (and
// unregistered schemes) go to the fallback source.
type Router struct {
	schemes  map[string]Source
	fallback Source
}

func NewRouter(fallback Source) *Router {
	if fallback == nil {
		fallback = FileSource{}
	}
	return &Router{schemes: map[string]Source{"file": fallback}, fallback: fallback}
}

// Handle registers src for scheme (without "://").
func (r *Router) Handle(scheme string, src Source) *Router {
	r.schemes[strings.ToLower(scheme)] = src
	return r
}

func scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

func (r *Router) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if src, ok := r.schemes[scheme(uri)]; ok {
		return src.Open(ctx, uri)
	}
	if s := scheme(uri); s != "" {
		return nil, fmt.Errorf("unsupported image scheme %q", s)
	}
	return r.fallback.Open(ctx, uri)
}
