package gavel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *JsonDB {
	t.Helper()
	db, err := NewJsonDatabase(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	return db
}

func TestJsonDBGuilds(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetGuild("123")
	assert.Error(t, err)

	require.NoError(t, db.CreateGuild("123"))
	assert.Error(t, db.CreateGuild("123"))

	gc, err := db.GetGuild("123")
	require.NoError(t, err)
	assert.Equal(t, "123", gc.ID)
	assert.Empty(t, gc.InviteChannel)

	gc.InviteChannel = "456"
	gc.InviteCreateLog = "789"
	require.NoError(t, db.UpdateGuild("123", gc))

	got, err := db.GetGuild("123")
	require.NoError(t, err)
	assert.Equal(t, "456", got.InviteChannel)
	assert.Equal(t, "789", got.InviteCreateLog)

	assert.Error(t, db.UpdateGuild("999", gc))
}

func TestJsonDBAppealRoles(t *testing.T) {
	db := newTestDB(t)

	roles, err := db.GetAppealRoles("123")
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, db.AddAppealRole("123", "1"))
	require.NoError(t, db.AddAppealRole("123", "2"))
	assert.Error(t, db.AddAppealRole("123", "1"))

	roles, err = db.GetAppealRoles("123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, roles)

	require.NoError(t, db.RemoveAppealRole("123", "1"))
	assert.Error(t, db.RemoveAppealRole("123", "1"))

	roles, err = db.GetAppealRoles("123")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, roles)
}

func TestJsonDBNotes(t *testing.T) {
	db := newTestDB(t)

	notes, err := db.GetNotes("123", "456")
	require.NoError(t, err)
	assert.Empty(t, notes)

	first := &Note{
		GuildID:     "123",
		UserID:      "456",
		ModeratorID: "789",
		Link:        "https://example.com/1",
		Text:        "Link+1",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.CreateNote(first))
	assert.Equal(t, 1, first.UID)

	second := &Note{
		GuildID:     "123",
		UserID:      "456",
		ModeratorID: "789",
		Link:        "https://example.com/2",
		Text:        "Link+2",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.CreateNote(second))
	assert.Equal(t, 2, second.UID)

	// a note for another user should not show up
	require.NoError(t, db.CreateNote(&Note{GuildID: "123", UserID: "999"}))

	notes, err = db.GetNotes("123", "456")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "https://example.com/1", notes[0].Link)
	assert.Equal(t, "https://example.com/2", notes[1].Link)
}

func TestJsonDBSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	db, err := NewJsonDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.CreateGuild("123"))
	require.NoError(t, db.AddAppealRole("123", "1"))
	require.NoError(t, db.CreateNote(&Note{GuildID: "123", UserID: "456", Text: "note"}))
	require.NoError(t, db.Close())

	db, err = NewJsonDatabase(path)
	require.NoError(t, err)

	gc, err := db.GetGuild("123")
	require.NoError(t, err)
	assert.Equal(t, "123", gc.ID)

	roles, err := db.GetAppealRoles("123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, roles)

	notes, err := db.GetNotes("123", "456")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	// new notes must not reuse old uids
	n := &Note{GuildID: "123", UserID: "456"}
	require.NoError(t, db.CreateNote(n))
	assert.Equal(t, 2, n.UID)
}
