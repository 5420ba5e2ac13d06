package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/zhouzirui/fireside/backend/internal/model/chat"
)

// MessageLog persists chat messages in BadgerDB so history survives restarts.
//
// Keys are formatted as "msg:{chatId}:{timestamp_padded}:{id}":
//  1. the 19-digit zero-padded nanosecond timestamp makes lexicographic
//     order chronological, so a prefix scan yields oldest-first;
//  2. the message id disambiguates two writes in the same nanosecond.
type MessageLog struct {
	db *badger.DB
}

// Open creates or reopens a message log rooted at dir.
func Open(dir string) (*MessageLog, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &MessageLog{db: db}, nil
}

// Close releases the underlying database.
func (l *MessageLog) Close() error {
	return l.db.Close()
}

// Append persists one message.
func (l *MessageLog) Append(msg chat.Message) error {
	key := messageKey(msg)
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Messages returns every stored message for a chat, oldest first.
func (l *MessageLog) Messages(chatID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := l.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", chatID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var msg chat.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func messageKey(msg chat.Message) string {
	return fmt.Sprintf("msg:%s:%019d:%s", msg.ChatID, msg.CreatedAt.UnixNano(), msg.ID)
}
