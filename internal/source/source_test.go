package source

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukeproc/juked/internal/search"
)

type fakeResolver struct {
	meta ResolvedMetadata
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (ResolvedMetadata, error) {
	if query == f.meta.Title {
		return f.meta, nil
	}
	return ResolvedMetadata{}, f.err
}

func (f *fakeResolver) Stream(ctx context.Context, query string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func TestFallbackResolver_PrimarySucceedsNoFallback(t *testing.T) {
	primary := &fakeResolver{meta: ResolvedMetadata{Title: "some song"}}
	fr := NewFallbackResolver(primary, nil)

	meta, err := fr.Resolve(context.Background(), "some song")
	require.NoError(t, err)
	assert.Equal(t, "some song", meta.Title)
}

func TestFallbackResolver_FallsBackToCachedTitle(t *testing.T) {
	primary := &fakeResolver{meta: ResolvedMetadata{Title: "known track"}, err: errors.New("not found")}
	fr := NewFallbackResolver(primary, []search.Entry{{Name: "known track"}})

	meta, err := fr.Resolve(context.Background(), "known trak")
	require.NoError(t, err)
	assert.Equal(t, "known track", meta.Title)
}

func TestFallbackResolver_NoCacheMatchPropagatesPrimaryError(t *testing.T) {
	primary := &fakeResolver{meta: ResolvedMetadata{Title: "known track"}, err: errors.New("boom")}
	fr := NewFallbackResolver(primary, []search.Entry{{Name: "completely unrelated"}})

	_, err := fr.Resolve(context.Background(), "zzz_nothing_like_it")
	assert.ErrorContains(t, err, "boom")
}
