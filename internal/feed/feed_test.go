package feed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/evanto-api/internal/model"
)

var base = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func item(id string, kind model.Kind, featured bool, startOffsetHours int) model.Item {
	return model.Item{
		ID:        id,
		Kind:      kind,
		Featured:  featured,
		StartDate: base.Add(time.Duration(startOffsetHours) * time.Hour),
		CreatedAt: base.Add(-time.Duration(startOffsetHours) * time.Hour),
		Status:    model.StatusActive,
	}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestMerge_FeaturedFirstThenAscending(t *testing.T) {
	events := []model.Item{item("e1", model.KindEvent, true, 5), item("e2", model.KindEvent, false, 1)}
	meetups := []model.Item{item("m1", model.KindMeetup, true, 2), item("m2", model.KindMeetup, false, 3)}

	got := Merge(events, meetups, SortStartDate, OrderAsc)

	assert.Equal(t, []string{"m1", "e1", "e2", "m2"}, ids(got))
}

func TestMerge_Descending(t *testing.T) {
	events := []model.Item{item("e1", model.KindEvent, false, 1), item("e2", model.KindEvent, false, 4)}
	meetups := []model.Item{item("m1", model.KindMeetup, false, 2)}

	got := Merge(events, meetups, SortStartDate, OrderDesc)

	assert.Equal(t, []string{"e2", "m1", "e1"}, ids(got))
}

func TestMerge_CreatedAt(t *testing.T) {
	events := []model.Item{item("e1", model.KindEvent, false, 1), item("e2", model.KindEvent, false, 4)}

	got := Merge(events, nil, SortCreatedAt, OrderAsc)

	// created_at runs backwards relative to start_date in the fixture.
	assert.Equal(t, []string{"e2", "e1"}, ids(got))
}

func TestMerge_MissingFieldKeepsPosition(t *testing.T) {
	missing := model.Item{ID: "x", Kind: model.KindMeetup}
	events := []model.Item{item("e1", model.KindEvent, false, 1)}

	got := Merge(events, []model.Item{missing}, SortStartDate, OrderAsc)

	assert.Equal(t, []string{"e1", "x"}, ids(got))
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	events := []model.Item{item("e2", model.KindEvent, false, 4), item("e1", model.KindEvent, false, 1)}

	_ = Merge(events, nil, SortStartDate, OrderAsc)

	assert.Equal(t, []string{"e2", "e1"}, ids(events))
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{Page: -1, PageSize: 0, SortBy: "bogus", SortOrder: "DESC"}.Normalize()

	assert.Equal(t, 0, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)
	assert.Equal(t, SortStartDate, q.SortBy)
	assert.Equal(t, OrderDesc, q.SortOrder)
	assert.Equal(t, MaxPageSize, Query{PageSize: 1000}.Normalize().PageSize)
	assert.Equal(t, 40, Query{Page: 2, PageSize: 20}.Offset())

	huge := Query{Page: math.MaxInt64 / 50, PageSize: 100}.Normalize()
	assert.Equal(t, MaxPage, huge.Page)
	assert.Positive(t, huge.Offset())
	assert.LessOrEqual(t, huge.Offset(), math.MaxInt32)
}

type fakeSource struct {
	mu    sync.Mutex
	rows  map[model.Kind][]model.Item
	calls map[model.Kind]int
	fail  map[model.Kind]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{rows: map[model.Kind][]model.Item{}, calls: map[model.Kind]int{}, fail: map[model.Kind]int{}}
}

func (f *fakeSource) ListPage(_ context.Context, kind model.Kind, q Query) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	if f.fail[kind] > 0 {
		f.fail[kind]--
		return nil, errors.New("temporary failure")
	}
	all := f.rows[kind]
	from := q.Offset()
	if from >= len(all) {
		return []model.Item{}, nil
	}
	to := from + q.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], nil
}

func TestMerger_Page(t *testing.T) {
	src := newFakeSource()
	src.rows[model.KindEvent] = []model.Item{item("e1", model.KindEvent, false, 1), item("e2", model.KindEvent, false, 3)}
	src.rows[model.KindMeetup] = []model.Item{item("m1", model.KindMeetup, false, 2)}

	p, err := NewMerger(src).Page(context.Background(), Query{PageSize: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "m1", "e2"}, ids(p.Items))
	assert.True(t, p.HasNext)
	require.NotNil(t, p.NextPage)
	assert.Equal(t, 1, *p.NextPage)
}

func TestMerger_PageLastPage(t *testing.T) {
	src := newFakeSource()
	src.rows[model.KindEvent] = []model.Item{item("e1", model.KindEvent, false, 1)}

	p, err := NewMerger(src).Page(context.Background(), Query{PageSize: 5})

	require.NoError(t, err)
	assert.False(t, p.HasNext)
	assert.Nil(t, p.NextPage)
}

func TestMerger_PageError(t *testing.T) {
	src := newFakeSource()
	src.fail[model.KindMeetup] = 1

	_, err := NewMerger(src).Page(context.Background(), Query{})

	assert.Error(t, err)
}

func TestMerger_RetryRecovers(t *testing.T) {
	src := newFakeSource()
	src.fail[model.KindEvent] = 1
	src.rows[model.KindEvent] = []model.Item{item("e1", model.KindEvent, false, 1)}
	m := NewMerger(src)
	m.Retry = func(ctx context.Context, fn func(context.Context) error) error {
		var err error
		for i := 0; i < 2; i++ {
			if err = fn(ctx); err == nil {
				return nil
			}
		}
		return err
	}

	p, err := m.Page(context.Background(), Query{})

	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(p.Items))
	assert.Equal(t, 2, src.calls[model.KindEvent])
}

func TestMerger_Accumulate(t *testing.T) {
	src := newFakeSource()
	for i := 0; i < 5; i++ {
		src.rows[model.KindEvent] = append(src.rows[model.KindEvent], item(string(rune('a'+i)), model.KindEvent, false, i))
	}

	got, hasNext, err := NewMerger(src).Accumulate(context.Background(), Query{PageSize: 2}, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
	assert.False(t, hasNext)
	assert.Equal(t, 3, src.calls[model.KindEvent])
}
