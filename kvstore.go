package gavel

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"go.uber.org/zap"
)

// Store caches gateway state the bot cannot ask Discord for after the fact.
// Invites are the important part; InviteDelete events only carry a code, so
// the cached copy is the only source for who made the invite and for what.
type Store struct {
	db     *badger.DB
	logger *ZapLogger
}

func NewStore(logger *ZapLogger) (*Store, error) {
	logger = logger.Named("kvstore").(*ZapLogger)
	badgerLogger := logger.Named("badger").(*ZapLogger)
	s := &Store{
		logger: logger,
	}

	opts := badger.DefaultOptions("./data")
	opts.Truncate = true
	opts.ValueLogLoadingMode = options.FileIO
	opts.NumVersionsToKeep = 1
	opts.Logger = badgerLogger

	db, err := badger.Open(opts)
	if err != nil {
		s.logger.Info("error", zap.Error(err))
		return nil, err
	}
	s.db = db

	go func(s *Store) {
		gcTimer := time.NewTicker(time.Hour)
		for range gcTimer.C {
			_ = s.RunGC()
		}
	}(s)

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RunGC() error {
	return s.db.RunValueLogGC(0.5)
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(v)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	buffer := bytes.NewReader(data)
	return gob.NewDecoder(buffer).Decode(v)
}

func (s *Store) get(key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return decodeGob(value, v)
	})
}

func (s *Store) SetMember(m *discordgo.Member) error {
	enc, err := encodeGob(m)
	if err != nil {
		s.logger.Error("failed to encode member", zap.Error(err))
		return err
	}

	key := fmt.Sprintf("member:%v:%v", m.GuildID, m.User.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), enc)
	})
}

func (s *Store) GetMember(gid, uid string) (*discordgo.Member, error) {
	var member discordgo.Member
	key := fmt.Sprintf("member:%v:%v", gid, uid)
	if err := s.get(key, &member); err != nil {
		if err != badger.ErrKeyNotFound {
			s.logger.Error("failed to read member", zap.Error(err))
		}
		return nil, err
	}
	return &member, nil
}

func (s *Store) DeleteMember(gid, uid string) error {
	key := fmt.Sprintf("member:%v:%v", gid, uid)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// GetGuildMembers returns every cached member for a guild. The cache is kept
// fresh through member add/update/chunk/remove events.
func (s *Store) GetGuildMembers(gid string) ([]*discordgo.Member, error) {
	var members []*discordgo.Member
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("member:%v:", gid))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			body, err := item.ValueCopy(nil)
			if err != nil {
				s.logger.Error("error", zap.Error(err))
				continue
			}
			member := discordgo.Member{}
			err = decodeGob(body, &member)
			if err != nil {
				s.logger.Error("error", zap.Error(err))
				continue
			}
			members = append(members, &member)
		}
		return nil
	})
	return members, err
}

func (s *Store) SetInvite(inv *discordgo.Invite) error {
	if inv.Guild == nil {
		return fmt.Errorf("invite %v has no guild", inv.Code)
	}

	enc, err := encodeGob(inv)
	if err != nil {
		s.logger.Error("failed to encode invite", zap.Error(err))
		return err
	}

	key := fmt.Sprintf("invite:%v:%v", inv.Guild.ID, inv.Code)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), enc)
	})
}

func (s *Store) GetInvite(gid, code string) (*discordgo.Invite, error) {
	var invite discordgo.Invite
	key := fmt.Sprintf("invite:%v:%v", gid, code)
	if err := s.get(key, &invite); err != nil {
		if err != badger.ErrKeyNotFound {
			s.logger.Error("failed to read invite", zap.Error(err))
		}
		return nil, err
	}
	return &invite, nil
}

func (s *Store) DeleteInvite(gid, code string) error {
	key := fmt.Sprintf("invite:%v:%v", gid, code)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
