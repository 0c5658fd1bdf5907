//go:generate go run go.uber.org/mock/mockgen -source=credential.go -destination=../mocks/mock_credential_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ICredentialRepository interface {
	Insert(username, password string) error
	Get(username string) (domain.Credential, error)
}

type CredentialRepository struct {
	db *badger.DB
}

func NewCredentialRepository(db *badger.DB) ICredentialRepository {
	return &CredentialRepository{db: db}
}

// diskCredential is the stored representation of a credential row.
// Values are opaque bytes to Badger; JSON keeps them inspectable.
type diskCredential struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt int64  `json:"created_at"`
}

func credentialKey(username string) []byte {
	return []byte("user:" + username)
}

// Insert persists a new credential row keyed by username.
// The existence check and the write happen inside a single Badger
// transaction, so two concurrent registrations of the same name can
// never both succeed. Returns errors.ErrUserAlreadyExists when the
// key is taken, regardless of password equality.
func (c *CredentialRepository) Insert(username, password string) error {
	row := diskCredential{
		ID:        uuid.New().String(),
		Username:  username,
		Password:  password,
		CreatedAt: time.Now().Unix(),
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		key := credentialKey(username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
}

// Get retrieves a credential row and converts it to the domain struct.
// An absent key is reported as errors.ErrUnknownUser.
func (c *CredentialRepository) Get(username string) (domain.Credential, error) {
	var row diskCredential

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(username))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrUnknownUser
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
	})

	if err != nil {
		return domain.Credential{}, err
	}

	return toCredential(row), nil
}

func toCredential(row diskCredential) domain.Credential {
	id, _ := uuid.Parse(row.ID)
	return domain.Credential{
		ID:        id,
		Username:  row.Username,
		Password:  row.Password,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
	}
}
