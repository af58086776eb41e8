package supervisor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukeproc/juked/pkg/chatmsg"
)

type fakeChat struct {
	mu       sync.Mutex
	posted   []chatmsg.Notice
	unpinned []string
	deleted  []string
	nextID   int
}

func (f *fakeChat) Post(n chatmsg.Notice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.posted = append(f.posted, n)
	return id, nil
}

func (f *fakeChat) Unpin(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpinned = append(f.unpinned, id)
	return nil
}

func (f *fakeChat) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeChat) ListPinned() ([]string, error) { return nil, nil }

func TestHandleFloodControl_FirstEventPinsOneNotice(t *testing.T) {
	chat := &fakeChat{}
	s := New("worker", nil, chat, nil, false)

	s.handleFloodControl(2 * time.Second)

	require.Len(t, chat.posted, 1)
	assert.True(t, chat.posted[0].Pinned)
	require.NotNil(t, s.pinned)
}

func TestHandleFloodControl_SecondEventExtendsClearTimeWithoutReposting(t *testing.T) {
	chat := &fakeChat{}
	s := New("worker", nil, chat, nil, false)

	s.handleFloodControl(1 * time.Second)
	firstClear := s.pinned.clearAt

	s.handleFloodControl(5 * time.Second)

	assert.Len(t, chat.posted, 1, "must not post a second notice while one is pinned")
	assert.True(t, s.pinned.clearAt.After(firstClear))
}

func TestHandleFloodControl_ShorterDelayDoesNotShortenClearTime(t *testing.T) {
	chat := &fakeChat{}
	s := New("worker", nil, chat, nil, false)

	s.handleFloodControl(10 * time.Second)
	firstClear := s.pinned.clearAt

	s.handleFloodControl(1 * time.Second)

	assert.Equal(t, firstClear, s.pinned.clearAt, "clear time must be max(existing, now+d)")
}
