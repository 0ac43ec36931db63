package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_JSONColumn(t *testing.T) {
	db := Always(Result{Rows: [][]any{{JSON(`[{"n": 1}, {"n": 2}]`), "x"}}})

	var (
		items []struct {
			N int `json:"n"`
		}
		name string
	)
	require.NoError(t, db.QueryRow(context.Background(), "SELECT").Scan(&items, &name))
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[1].N)
	assert.Equal(t, "x", name)

	var bad []int
	assert.Error(t, Always(Result{Rows: [][]any{{JSON(`{`)}}}).QueryRow(context.Background(), "SELECT").Scan(&bad))
}
