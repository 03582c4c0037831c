package repo

import (
	"context"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// CredentialStore persists the posting credentials on their own, so they
// can be cleared without touching the records.
type CredentialStore struct {
	file *FileStore[model.Credentials]
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{file: NewFileStore[model.Credentials](path)}
}

// Load returns zero credentials when none are stored.
func (s *CredentialStore) Load(ctx context.Context) (model.Credentials, error) {
	c, _, err := s.file.Read(ctx)
	return c, err
}

func (s *CredentialStore) Save(ctx context.Context, c model.Credentials) error {
	return s.file.Write(ctx, c)
}

func (s *CredentialStore) Clear(context.Context) error {
	return s.file.Remove()
}
