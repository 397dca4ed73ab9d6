package repository

import (
	"context"
	"testing"
	"time"

	"nightlife_order/model"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingMenu struct {
	calls   int
	entries []model.MenuEntry
}

func (c *countingMenu) EventMenu(_ context.Context, _, _ uint) ([]model.MenuEntry, error) {
	c.calls++
	return c.entries, nil
}

func TestCachedMenuFallsThroughWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	src := &countingMenu{entries: []model.MenuEntry{{MenuItem: model.MenuItem{Name: "Mojito"}, Price: 9}}}
	cached := NewCachedMenu(src, rdb, time.Minute, log.NewEntry(log.New()))

	entries, err := cached.EventMenu(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, src.entries, entries)
	assert.Equal(t, 1, src.calls)
	assert.Error(t, cached.Invalidate(context.Background(), 1))
}

func TestMenuKey(t *testing.T) {
	assert.Equal(t, "menu:1:3", menuKey(1, 3))
}

func TestTranslate(t *testing.T) {
	sentinel := assert.AnError
	assert.NoError(t, translate(nil, sentinel))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, sentinel), sentinel)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, sentinel), ErrDuplicate)
}
