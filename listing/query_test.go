package listing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	field, dir, err := ParseSort("name,desc")
	require.NoError(t, err)
	assert.Equal(t, "name", field)
	assert.Equal(t, Desc, dir)

	field, dir, err = ParseSort("")
	require.NoError(t, err)
	assert.Empty(t, field)
	assert.Empty(t, dir)

	for _, token := range []string{"name", ",asc", "name,up"} {
		_, _, err := ParseSort(token)
		assert.ErrorIs(t, err, ErrInvalidSort, token)
	}
}

func TestBuildParamsPageableWins(t *testing.T) {
	params := BuildParams(
		map[string]string{"name": "curl", "page": "9", "sort": "x,asc"},
		PageableQuery{Page: 1, PageEntries: 25},
	)
	assert.Equal(t, "curl", params.Get("name"))
	assert.Equal(t, "1", params.Get("page"))
	assert.Equal(t, "25", params.Get("page_entries"))
	assert.Equal(t, "x,asc", params.Get("sort"))
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, DefaultQuery().Validate())
	assert.ErrorIs(t, PageableQuery{Page: -1, PageEntries: 10}.Validate(), ErrInvalidPage)
	assert.ErrorIs(t, PageableQuery{PageEntries: 0}.Validate(), ErrInvalidPageSize)
	assert.ErrorIs(t, PageableQuery{PageEntries: 10, Sort: "name"}.Validate(), ErrInvalidSort)
}

func TestDelayedFlag(t *testing.T) {
	t.Run("immediate without data", func(t *testing.T) {
		f := NewDelayedFlag(time.Hour, nil)
		token := f.Arm(false)
		assert.True(t, f.On())
		f.Disarm(token)
		assert.False(t, f.On())
	})

	t.Run("delayed with data", func(t *testing.T) {
		var mu sync.Mutex
		var flips []bool
		f := NewDelayedFlag(20*time.Millisecond, func(on bool) {
			mu.Lock()
			flips = append(flips, on)
			mu.Unlock()
		})
		token := f.Arm(true)
		assert.False(t, f.On())
		assert.Eventually(t, f.On, time.Second, 5*time.Millisecond)
		f.Disarm(token)
		assert.False(t, f.On())
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(flips) == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("fast settle never shows", func(t *testing.T) {
		f := NewDelayedFlag(30*time.Millisecond, nil)
		f.Disarm(f.Arm(true))
		assert.Never(t, f.On, 80*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("stale disarm is ignored", func(t *testing.T) {
		f := NewDelayedFlag(time.Hour, nil)
		first := f.Arm(false)
		second := f.Arm(true)
		f.Disarm(first)
		assert.True(t, f.On())
		f.Disarm(second)
		assert.False(t, f.On())
	})
}
