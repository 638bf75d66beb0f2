package gavel

import (
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS guilds (
	id                TEXT PRIMARY KEY,
	invite_channel    TEXT NOT NULL DEFAULT '',
	invite_create_log TEXT NOT NULL DEFAULT '',
	invite_delete_log TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS appeal_roles (
	guild_id TEXT NOT NULL,
	role_id  TEXT NOT NULL,
	PRIMARY KEY (guild_id, role_id)
);

CREATE TABLE IF NOT EXISTS notes (
	uid          INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id     TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	moderator_id TEXT NOT NULL,
	link         TEXT NOT NULL,
	text         TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
`

type SqliteDB struct {
	pool   *sqlx.DB
	logger mio.Logger
	path   string
}

func NewSqliteDatabase(path string) (*SqliteDB, error) {
	logger := newLogger("db")

	pool, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		logger.Error("unable to connect to db", zap.Error(err))
		return nil, err
	}

	if _, err := pool.Exec(schema); err != nil {
		return nil, err
	}

	return &SqliteDB{
		pool:   pool,
		logger: logger,
		path:   path,
	}, nil
}

func (s *SqliteDB) GetConn() *sqlx.DB {
	return s.pool
}

func (s *SqliteDB) Close() error {
	return s.pool.Close()
}

func (s *SqliteDB) CreateGuild(gid string) error {
	_, err := s.pool.Exec("INSERT INTO guilds (id) VALUES (?);", gid)
	return err
}

func (s *SqliteDB) UpdateGuild(gid string, gc *Guild) error {
	_, err := s.pool.Exec("UPDATE guilds SET invite_channel = ?, invite_create_log = ?, invite_delete_log = ? WHERE id = ?;",
		gc.InviteChannel, gc.InviteCreateLog, gc.InviteDeleteLog, gid)
	return err
}

func (s *SqliteDB) GetGuild(gid string) (*Guild, error) {
	var g Guild
	err := s.pool.Get(&g, "SELECT * FROM guilds WHERE id = ?;", gid)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SqliteDB) GetAppealRoles(gid string) ([]string, error) {
	roles := []string{}
	err := s.pool.Select(&roles, "SELECT role_id FROM appeal_roles WHERE guild_id = ?;", gid)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *SqliteDB) AddAppealRole(gid, rid string) error {
	_, err := s.pool.Exec("INSERT INTO appeal_roles (guild_id, role_id) VALUES (?, ?);", gid, rid)
	return err
}

func (s *SqliteDB) RemoveAppealRole(gid, rid string) error {
	_, err := s.pool.Exec("DELETE FROM appeal_roles WHERE guild_id = ? AND role_id = ?;", gid, rid)
	return err
}

func (s *SqliteDB) CreateNote(n *Note) error {
	res, err := s.pool.Exec("INSERT INTO notes (guild_id, user_id, moderator_id, link, text, created_at) VALUES (?, ?, ?, ?, ?, ?);",
		n.GuildID, n.UserID, n.ModeratorID, n.Link, n.Text, n.CreatedAt)
	if err != nil {
		return err
	}
	if uid, err := res.LastInsertId(); err == nil {
		n.UID = int(uid)
	}
	return nil
}

func (s *SqliteDB) GetNotes(gid, uid string) ([]*Note, error) {
	var notes []*Note
	err := s.pool.Select(&notes, "SELECT * FROM notes WHERE guild_id = ? AND user_id = ? ORDER BY created_at;", gid, uid)
	if err != nil {
		return nil, err
	}
	return notes, nil
}
