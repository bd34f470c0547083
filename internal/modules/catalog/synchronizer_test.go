package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	calls  [][]Item
	failed []string
}

func (r *recorder) onChanged(items []Item) { r.calls = append(r.calls, items) }

func (r *recorder) onError(source string, err error) {
	r.failed = append(r.failed, source+": "+err.Error())
}

func newTestSync(t *testing.T) (*Synchronizer, *fakeSource, *fakeSource, *recorder) {
	goods := &fakeSource{name: "goods"}
	services := &fakeSource{name: "services"}
	rec := &recorder{}
	s := NewSynchronizer(goods, services, rec.onChanged, rec.onError, zaptest.NewLogger(t))
	return s, goods, services, rec
}

func TestSynchronizer_GatesUntilBothReported(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()

	goods.push()
	assert.Empty(t, rec.calls)

	goods.push(
		Record{ID: "g1"}, Record{ID: "g2"}, Record{ID: "g3"}, Record{ID: "g4"}, Record{ID: "g5"},
	)
	assert.Empty(t, rec.calls, "no notification before services reports")

	services.push()
	require.Len(t, rec.calls, 1)
	assert.Len(t, rec.calls[0], 5)
}

func TestSynchronizer_EveryUpdateNotifiesOnce(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()

	services.push(Record{ID: "s1"})
	goods.push(Record{ID: "g1"}, Record{ID: "g2"})
	require.Len(t, rec.calls, 1)

	goods.push(Record{ID: "g1"})
	require.Len(t, rec.calls, 2)
	services.push(Record{ID: "s1"}, Record{ID: "s2"})
	require.Len(t, rec.calls, 3)

	last := rec.calls[2]
	ids := make([]string, 0, len(last))
	for _, item := range last {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"g1", "s1", "s2"}, ids, "goods first, then services, in source order")
	assert.Equal(t, ServiceCategory, last[1].Category)
	assert.NotEqual(t, ServiceCategory, last[0].Category)
}

func TestSynchronizer_PreservesSourceOrder(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()

	goods.push(Record{ID: "z"}, Record{ID: "a"}, Record{ID: "m"})
	services.push(Record{ID: "y"}, Record{ID: "b"})

	require.Len(t, rec.calls, 1)
	var ids []string
	for _, item := range rec.calls[0] {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"z", "a", "m", "y", "b"}, ids)
}

func TestSynchronizer_SourceErrorKeepsCache(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()

	goods.push(Record{ID: "g1"})
	services.push(Record{ID: "s1"})
	goods.onError(errTransport)
	services.push(Record{ID: "s2"})

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "g1", rec.calls[1][0].ID)
	assert.Equal(t, "s2", rec.calls[1][1].ID)
	assert.Equal(t, []string{"goods: connection reset"}, rec.failed)
}

func TestSynchronizer_UnsubscribeReleasesBoth(t *testing.T) {
	s, goods, services, _ := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)

	stop()
	stop()
	assert.Equal(t, 1, goods.unsubscribed)
	assert.Equal(t, 1, services.unsubscribed)
}

func TestSynchronizer_SecondSubscribeFailureReleasesFirst(t *testing.T) {
	s, goods, services, _ := newTestSync(t)
	services.subscribeErr = errTransport

	_, err := s.Start(context.Background())
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, 1, goods.unsubscribed)
}

func TestSynchronizer_Refresh(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	goods.fetch = []Record{{ID: "g1", Fields: map[string]interface{}{"category": ""}}}
	services.fetch = []Record{{ID: "s1"}}

	s.Refresh(context.Background())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, GeneralCategory, rec.calls[0][0].Category)
	assert.Equal(t, ServiceCategory, rec.calls[0][1].Category)
}

func TestSynchronizer_RefreshPartialFailure(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()
	goods.push(Record{ID: "g1"})
	services.push(Record{ID: "s1"})

	goods.fetchErr = errTransport
	services.fetch = []Record{{ID: "s9"}}
	s.Refresh(context.Background())

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "g1", rec.calls[1][0].ID)
	assert.Equal(t, "s9", rec.calls[1][1].ID)
	assert.Equal(t, []string{"goods: connection reset"}, rec.failed)
}

func TestSynchronizer_LiveSnapshotDuringRefreshWins(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	stop, err := s.Start(context.Background())
	require.NoError(t, err)
	defer stop()
	goods.push(Record{ID: "g1"})
	services.push(Record{ID: "s1"})

	goods.fetch = []Record{{ID: "stale"}}
	goods.onFetch = func() { goods.push(Record{ID: "live"}) }
	services.fetch = []Record{{ID: "s2"}}
	s.Refresh(context.Background())

	last := rec.calls[len(rec.calls)-1]
	require.Len(t, last, 2)
	assert.Equal(t, "live", last[0].ID)
	assert.Equal(t, "s2", last[1].ID)
}

func TestSynchronizer_RefreshWithNothingNewIsQuiet(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	goods.fetchErr = errTransport
	services.fetchErr = errTransport

	s.Refresh(context.Background())
	assert.Empty(t, rec.calls)
	assert.Len(t, rec.failed, 2)
}

func TestSynchronizer_RefreshBeforeSubscribeGates(t *testing.T) {
	s, goods, services, rec := newTestSync(t)
	goods.fetch = []Record{{ID: "g1"}}
	services.fetchErr = errTransport

	s.Refresh(context.Background())
	assert.Empty(t, rec.calls)
}
