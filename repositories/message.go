//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"dmcore/domain"
	"dmcore/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Append(channel domain.ChannelID, sender, receiver domain.Participant, text string) (domain.Message, error)
	ReadAll(channel domain.ChannelID) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	maxTextLength int
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, maxTextLength int, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, maxTextLength: maxTextLength, limitMessages: limitMessages}
}

// DiskMessage is the stored representation of a message record.
type DiskMessage struct {
	ID       uuid.UUID `json:"id"`
	Channel  string    `json:"channel"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// Append validates the text, assigns the server timestamp and persists the
// record under the channel. The key is formatted as
// "msg:{channel}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// A channel is materialized by its first append; there is no create step.
func (m MessageRepository) Append(channel domain.ChannelID, sender, receiver domain.Participant, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	if m.maxTextLength > 0 && utf8.RuneCountInString(text) > m.maxTextLength {
		return domain.Message{}, fmt.Errorf("%w: %d runes, limit %d",
			errors.ErrMessageTooLong, utf8.RuneCountInString(text), m.maxTextLength)
	}

	record := DiskMessage{
		ID:       uuid.New(),
		Channel:  string(channel),
		Sender:   string(sender),
		Receiver: string(receiver),
		Text:     text,
		SentAt:   time.Now().UTC(),
	}
	key := fmt.Sprintf("msg:%s:%019d:%s", channel, record.SentAt.UnixNano(), record.ID)
	bytes, err := json.Marshal(record)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return toMessage(record), nil
}

// ReadAll retrieves all messages of a channel using a prefix scan.
// Thanks to the padded timestamp in the key, messages come back in
// ascending SentAt order without any sort step. An unmaterialized channel
// is a valid empty state, never an error.
func (m MessageRepository) ReadAll(channel domain.ChannelID) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", channel))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	var diskMessages []DiskMessage
	for _, b := range byteMessages {
		var record DiskMessage
		if err = json.Unmarshal(b, &record); err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, record)
	}
	return lo.Map(diskMessages, func(record DiskMessage, _ int) domain.Message {
		return toMessage(record)
	}), nil
}

func toMessage(record DiskMessage) domain.Message {
	return domain.Message{
		ID:       record.ID,
		Sender:   domain.Participant(record.Sender),
		Receiver: domain.Participant(record.Receiver),
		Text:     record.Text,
		SentAt:   record.SentAt,
	}
}
