package postgres

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamps(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	c, u := timestamps(created, updated)
	assert.Equal(t, created, c)
	assert.Equal(t, updated, u)

	c, u = timestamps(time.Time{}, updated)
	assert.Equal(t, updated, c)
	assert.Equal(t, updated, u)

	c, u = timestamps(time.Time{}, time.Time{})
	assert.False(t, u.IsZero())
	assert.Equal(t, u, c)
}

func TestNullJSON(t *testing.T) {
	assert.Nil(t, nullJSON(nil))
	assert.Nil(t, nullJSON(json.RawMessage{}))
	assert.Equal(t, []byte(`{"a":1}`), nullJSON(json.RawMessage(`{"a":1}`)))

	assert.Equal(t, []byte(`{}`), jsonOrEmptyObject(nil))
	assert.Equal(t, []byte("null"), orJSONNull(nil))
	assert.Equal(t, []byte(`[1]`), orJSONNull([]byte(`[1]`)))
}

func TestTagsOrEmpty(t *testing.T) {
	assert.NotNil(t, tagsOrEmpty(nil))
	assert.Equal(t, []string{"a"}, tagsOrEmpty([]string{"a"}))
}

func TestStorageErr(t *testing.T) {
	cause := errors.New("connection reset")
	err := storageErr("list contents", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list contents")
}
