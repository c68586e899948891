//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"dmcore/domain"
	"dmcore/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IUserRepository interface {
	CreateUser(email, displayName, avatarURL, passwordHash string) (domain.Peer, error)
	GetUserByEmail(email string) (User, error)
	ListPeers(exclude domain.Participant) ([]domain.Peer, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the stored representation of an account.
// Equivalent to DiskMessage for the account domain.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser persists the account under "user:{id}" plus an email pointer
// "useremail:{email}" used for login lookups. Both writes share one
// transaction so a partial account can never be observed.
func (u UserRepository) CreateUser(email, displayName, avatarURL, passwordHash string) (domain.Peer, error) {
	record := User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		AvatarURL:    avatarURL,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.Peer{}, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("useremail:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set([]byte("user:"+record.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(record.ID))
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.Peer{}, err
		}
		return domain.Peer{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return toPeer(record), nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var record User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("useremail:" + email))
		if err != nil {
			return err
		}
		var id []byte
		if id, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get([]byte("user:" + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrUnknownUser
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return record, nil
}

// ListPeers returns every account except the viewer's own, sorted by display
// name. This feeds the selectable-peer list of the selection controller;
// the messaging core itself only ever reads it.
func (u UserRepository) ListPeers(exclude domain.Participant) ([]domain.Peer, error) {
	var records []User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record User
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				if domain.Participant(record.ID) != exclude {
					records = append(records, record)
				}
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
	sort.Slice(records, func(i, j int) bool { return records[i].DisplayName < records[j].DisplayName })
	return lo.Map(records, func(record User, _ int) domain.Peer {
		return toPeer(record)
	}), nil
}

func toPeer(record User) domain.Peer {
	return domain.Peer{
		ID:          domain.Participant(record.ID),
		DisplayName: record.DisplayName,
		AvatarURL:   record.AvatarURL,
	}
}
