package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dhowden/tag"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/jukeproc/juked/internal/search"
)

// Source is the capability set spec section 3 requires of every audio
// source variant: download into a claimed resource, plus whatever
// metadata is already known.
type Source interface {
	// Download fetches (or copies) the media into r's directory and
	// returns the resulting file path. Blocking; callers must run it on
	// a worker goroutine, never the queue's scheduling goroutine.
	Download(ctx context.Context, r *Resource) (string, error)
	Title() string
	Duration() time.Duration
	// Author returns the (role, name) pair, e.g. ("artist", "...").
	Author() (role, name string)
	// URL returns the source's canonical URL, if it has one.
	URL() (string, bool)
}

// Resolver is the out-of-scope media-fetcher collaborator: given a URL or
// search query, it resolves eager metadata and can stream the media bytes
// for a RemoteQuery source. A real implementation wraps a fetcher SDK
// (e.g. yt-dlp); tests supply a fake.
type Resolver interface {
	Resolve(ctx context.Context, query string) (ResolvedMetadata, error)
	Stream(ctx context.Context, query string) (io.ReadCloser, error)
}

// ResolvedMetadata is what a Resolver learns about a remote query before
// any bytes are downloaded.
type ResolvedMetadata struct {
	Title      string
	Duration   time.Duration
	AuthorRole string
	AuthorName string
	URL        string
}

// FallbackResolver wraps a Resolver with a fuzzy local fallback: if the
// primary resolver errors or returns a blank title, the query is matched
// against a small in-memory corpus of previously-resolved titles via
// internal/search before giving up. Grounded in the teacher's search engine
// layering a fuzzy pass behind an exact lookup.
type FallbackResolver struct {
	primary Resolver
	cache   []search.Entry
}

// NewFallbackResolver wraps primary. cache is a snapshot of known titles
// (e.g. previously played tracks) scored against a query that the primary
// resolver couldn't place.
func NewFallbackResolver(primary Resolver, cache []search.Entry) *FallbackResolver {
	return &FallbackResolver{primary: primary, cache: cache}
}

func (f *FallbackResolver) Resolve(ctx context.Context, query string) (ResolvedMetadata, error) {
	meta, err := f.primary.Resolve(ctx, query)
	if err == nil && meta.Title != "" {
		return meta, nil
	}

	best, ok := search.Best(f.cache, query)
	if !ok {
		if err != nil {
			return ResolvedMetadata{}, err
		}
		return meta, nil
	}
	return f.primary.Resolve(ctx, best.Name)
}

func (f *FallbackResolver) Stream(ctx context.Context, query string) (io.ReadCloser, error) {
	return f.primary.Stream(ctx, query)
}

// RemoteQuery is a URL-or-search-text source. Metadata is resolved eagerly
// at construction time (synchronously here, or by a caller running
// NewRemoteQuery on a worker goroutine); download is deferred, blocking
// I/O invoked from the queue's download task.
type RemoteQuery struct {
	query    string
	resolver Resolver
	meta     ResolvedMetadata
}

// NewRemoteQuery resolves query's metadata eagerly via resolver.
func NewRemoteQuery(ctx context.Context, query string, resolver Resolver) (*RemoteQuery, error) {
	meta, err := resolver.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", query, err)
	}
	return &RemoteQuery{query: query, resolver: resolver, meta: meta}, nil
}

func (s *RemoteQuery) Download(ctx context.Context, r *Resource) (string, error) {
	rc, err := s.resolver.Stream(ctx, s.query)
	if err != nil {
		return "", fmt.Errorf("stream %q: %w", s.query, err)
	}
	defer rc.Close()

	dest := r.Path("source.media")
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

func (s *RemoteQuery) Title() string           { return s.meta.Title }
func (s *RemoteQuery) Duration() time.Duration  { return s.meta.Duration }
func (s *RemoteQuery) Author() (string, string) { return s.meta.AuthorRole, s.meta.AuthorName }
func (s *RemoteQuery) URL() (string, bool) {
	if s.meta.URL == "" {
		return "", false
	}
	return s.meta.URL, true
}

// UploadedBlob downloads a chat-provided file to the element's resource
// directory. blobURL is whatever transient fetch URL the (out-of-scope)
// chat transport handed back for the attachment.
type UploadedBlob struct {
	blobURL  string
	filename string
	client   *retryablehttp.Client

	title      string
	duration   time.Duration
	authorRole string
	authorName string
}

// NewUploadedBlob constructs an UploadedBlob source. client is shared with
// the rest of the process's outbound HTTP traffic, per the teacher's
// single retryablehttp.Client convention.
func NewUploadedBlob(blobURL, filename string, client *retryablehttp.Client) *UploadedBlob {
	return &UploadedBlob{blobURL: blobURL, filename: filename, client: client, title: filepath.Base(filename)}
}

func (s *UploadedBlob) Download(ctx context.Context, r *Resource) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.blobURL, nil)
	if err != nil {
		return "", fmt.Errorf("build blob request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch blob: HTTP %d", resp.StatusCode)
	}

	dest := r.Path(filepath.Base(s.filename))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}

	extractID3(s, dest)
	return dest, nil
}

func (s *UploadedBlob) Title() string            { return s.title }
func (s *UploadedBlob) Duration() time.Duration  { return s.duration }
func (s *UploadedBlob) Author() (string, string) { return s.authorRole, s.authorName }
func (s *UploadedBlob) URL() (string, bool)      { return "", false }

// LocalFile is a source whose path is already on disk — no download step
// beyond resolving metadata.
type LocalFile struct {
	path string

	title      string
	duration   time.Duration
	authorRole string
	authorName string
}

// NewLocalFile reads ID3 metadata (when present) from path.
func NewLocalFile(path string) *LocalFile {
	s := &LocalFile{path: path, title: filepath.Base(path)}
	extractID3(s, path)
	return s
}

func (s *LocalFile) Download(ctx context.Context, r *Resource) (string, error) {
	return s.path, nil
}

func (s *LocalFile) Title() string            { return s.title }
func (s *LocalFile) Duration() time.Duration  { return s.duration }
func (s *LocalFile) Author() (string, string) { return s.authorRole, s.authorName }
func (s *LocalFile) URL() (string, bool)      { return "", false }

// id3Taggable is the narrow surface extractID3 needs from either local
// source variant.
type id3Taggable interface {
	setID3(title, authorName string, duration time.Duration)
}

func (s *UploadedBlob) setID3(title, authorName string, duration time.Duration) {
	s.title, s.authorRole, s.authorName, s.duration = title, "artist", authorName, duration
}

func (s *LocalFile) setID3(title, authorName string, duration time.Duration) {
	s.title, s.authorRole, s.authorName, s.duration = title, "artist", authorName, duration
}

// extractID3 reads tag metadata off path using dhowden/tag, same library
// and best-effort convention as the teacher's playlist track loader:
// failures are swallowed, leaving the filename-derived defaults in place.
func extractID3(dst id3Taggable, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return
	}

	title := m.Title()
	if title == "" {
		title = filepath.Base(path)
	}
	dst.setID3(title, m.Artist(), 0)
}
