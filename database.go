package gavel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

type DB interface {
	GetConn() *sqlx.DB
	Close() error

	CreateGuild(gid string) error
	UpdateGuild(gid string, gc *Guild) error
	GetGuild(gid string) (*Guild, error)

	GetAppealRoles(gid string) ([]string, error)
	AddAppealRole(gid, rid string) error
	RemoveAppealRole(gid, rid string) error

	CreateNote(n *Note) error
	GetNotes(gid, uid string) ([]*Note, error)
}

type Guild struct {
	ID              string `json:"id" db:"id"`
	InviteChannel   string `json:"invite_channel" db:"invite_channel"`
	InviteCreateLog string `json:"invite_create_log" db:"invite_create_log"`
	InviteDeleteLog string `json:"invite_delete_log" db:"invite_delete_log"`
}

// Note is a moderator note attached to an appealing user. Text is stored
// query-escaped so that links and labels survive round trips unharmed.
type Note struct {
	UID         int       `json:"uid" db:"uid"`
	GuildID     string    `json:"guild_id" db:"guild_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ModeratorID string    `json:"moderator_id" db:"moderator_id"`
	Link        string    `json:"link" db:"link"`
	Text        string    `json:"text" db:"text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

//
// JSON implementation DB
//

type JsonDB struct {
	path  string
	state *state
}

type state struct {
	sync.Mutex
	Guilds  map[string]*Guild   `json:"guilds"`
	Roles   map[string][]string `json:"roles"`
	Notes   []*Note             `json:"notes"`
	NextUID int                 `json:"next_uid"`
}

func NewJsonDatabase(path string) (*JsonDB, error) {
	db := &JsonDB{
		path: path,
		state: &state{
			Guilds:  make(map[string]*Guild),
			Roles:   make(map[string][]string),
			NextUID: 1,
		},
	}
	err := db.load(path)
	return db, err
}

func (j *JsonDB) Close() error {
	return j.save()
}

func (j *JsonDB) load(path string) error {
	if _, err := os.Stat(path); err != nil {
		// file does not exist, so use default
		fmt.Println("no data file found, using default")
		return nil
	}

	d, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	state := &state{}
	err = json.Unmarshal(d, &state)
	if err != nil {
		return err
	}

	if state.Guilds == nil {
		state.Guilds = make(map[string]*Guild)
	}
	if state.Roles == nil {
		state.Roles = make(map[string][]string)
	}
	if state.NextUID < 1 {
		state.NextUID = 1
	}

	j.state = state
	return nil
}

func (j *JsonDB) save() error {
	d, err := json.Marshal(j.state)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(d)
	return err
}

func (j *JsonDB) GetConn() *sqlx.DB {
	return nil
}

func (j *JsonDB) CreateGuild(gid string) error {
	j.state.Lock()
	defer j.state.Unlock()
	if _, ok := j.state.Guilds[gid]; ok {
		return errors.New("key already exists")
	}
	g := &Guild{ID: gid}
	j.state.Guilds[gid] = g
	return nil
}

func (j *JsonDB) UpdateGuild(gid string, gc *Guild) error {
	j.state.Lock()
	defer j.state.Unlock()
	if _, ok := j.state.Guilds[gid]; !ok {
		return errors.New("key does not exist")
	}
	j.state.Guilds[gid] = gc
	return nil
}

func (j *JsonDB) GetGuild(gid string) (*Guild, error) {
	j.state.Lock()
	defer j.state.Unlock()
	if v, ok := j.state.Guilds[gid]; ok {
		return v, nil
	}
	return nil, errors.New("key does not exist")
}

func (j *JsonDB) GetAppealRoles(gid string) ([]string, error) {
	j.state.Lock()
	defer j.state.Unlock()
	return append([]string{}, j.state.Roles[gid]...), nil
}

func (j *JsonDB) AddAppealRole(gid, rid string) error {
	j.state.Lock()
	defer j.state.Unlock()
	for _, r := range j.state.Roles[gid] {
		if r == rid {
			return errors.New("key already exists")
		}
	}
	j.state.Roles[gid] = append(j.state.Roles[gid], rid)
	return nil
}

func (j *JsonDB) RemoveAppealRole(gid, rid string) error {
	j.state.Lock()
	defer j.state.Unlock()
	roles := j.state.Roles[gid]
	for i, r := range roles {
		if r == rid {
			j.state.Roles[gid] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return errors.New("key does not exist")
}

func (j *JsonDB) CreateNote(n *Note) error {
	j.state.Lock()
	defer j.state.Unlock()
	n.UID = j.state.NextUID
	j.state.NextUID++
	j.state.Notes = append(j.state.Notes, n)
	return nil
}

func (j *JsonDB) GetNotes(gid, uid string) ([]*Note, error) {
	j.state.Lock()
	defer j.state.Unlock()
	var notes []*Note
	for _, n := range j.state.Notes {
		if n.GuildID == gid && n.UserID == uid {
			notes = append(notes, n)
		}
	}
	return notes, nil
}
