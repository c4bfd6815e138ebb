package rest

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAll(t *testing.T) {
	pages := map[string]Page[int]{
		"":  {Items: []int{1, 2}, Next: "c1"},
		"c1": {Items: []int{3, 4}, Next: "c2"},
		"c2": {Items: []int{5}},
	}

	t.Run("concatenates pages in order", func(t *testing.T) {
		var cursors []string
		got, err := CollectAll(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			cursors = append(cursors, cursor)
			return pages[cursor], nil
		})

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
		assert.Equal(t, []string{"", "c1", "c2"}, cursors)
	})

	t.Run("single page", func(t *testing.T) {
		got, err := CollectAll(context.Background(), func(context.Context, string) (Page[string], error) {
			return Page[string]{Items: []string{"only"}}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"only"}, got)
	})

	t.Run("propagates errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := CollectAll(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			if cursor == "c1" {
				return Page[int]{}, boom
			}
			return pages[cursor], nil
		})

		assert.ErrorIs(t, err, boom)
	})

	t.Run("repeated cursor terminates", func(t *testing.T) {
		calls := 0
		_, err := CollectAll(context.Background(), func(context.Context, string) (Page[int], error) {
			calls++
			return Page[int]{Items: []int{calls}, Next: "same"}, nil
		})

		assert.ErrorIs(t, err, ErrRepeatedCursor)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		n := 0
		_, err := CollectAll(ctx, func(context.Context, string) (Page[int], error) {
			n++
			cancel()
			return Page[int]{Items: []int{n}, Next: strconv.Itoa(n)}, nil
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}
