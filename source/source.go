// Package source provides the byte sources a bundle can be loaded from.
// Parsing never depends on where the bytes came from.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrFetch indicates that a remote bundle could not be downloaded.
var ErrFetch = errors.New("fetch failed")

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// Source yields the raw bytes of one bundle.
type Source interface {
	// Name identifies the source in messages.
	Name() string
	// Read returns the complete contents.
	Read(ctx context.Context) ([]byte, error)
}

// ---------------------------------------------------------------------------
// Local files
// ---------------------------------------------------------------------------

type fileSource struct {
	path string
}

// File returns a source reading path from disk.
func File(path string) Source {
	return fileSource{path: path}
}

func (f fileSource) Name() string { return f.path }

func (f fileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

type urlSource struct {
	url    string
	client *resty.Client
}

// URL returns a source downloading rawURL with a plain GET.
func URL(rawURL string) Source {
	return URLWithClient(rawURL, resty.New().SetTimeout(DefaultTimeout))
}

// URLWithClient is URL with a caller-supplied client.
func URLWithClient(rawURL string, client *resty.Client) Source {
	return urlSource{url: rawURL, client: client}
}

func (u urlSource) Name() string { return u.url }

func (u urlSource) Read(ctx context.Context) ([]byte, error) {
	log.Debug().Str("url", u.url).Msg("fetching bundle")
	r, err := u.client.R().SetContext(ctx).Get(u.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, u.url, err)
	}
	if !r.IsSuccess() {
		return nil, fmt.Errorf("%w: %s: %s", ErrFetch, u.url, r.Status())
	}
	return r.Body(), nil
}

// ---------------------------------------------------------------------------
// In-memory
// ---------------------------------------------------------------------------

type bytesSource struct {
	name string
	data []byte
}

// Bytes returns a source serving data.
func Bytes(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (b bytesSource) Name() string { return b.name }

func (b bytesSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.data...), nil
}

// Resolve picks a source for a command-line argument: http(s) URLs are
// fetched, anything else is a file path. An empty argument yields nil.
func Resolve(arg string) Source {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return URL(arg)
	}
	return File(arg)
}
