// Package credstore persists the remote-service credentials and sync
// preferences in the settings table. Token and secret values are stored
// AES-256-GCM encrypted; everything else is plain.
package credstore

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/crypto"
	"github.com/openshelf/shelfsync/internal/entities"
)

// Store is the persisted key/value preference store backing the OAuth
// credential cache. It implements remote.CredentialStore.
type Store struct {
	db  *gorm.DB
	enc *crypto.Encryptor
}

// New creates a store over the given database and encryptor.
func New(db *gorm.DB, enc *crypto.Encryptor) *Store {
	return &Store{db: db, enc: enc}
}

// AccessToken returns the decrypted access token pair. Empty strings when
// no authorization has completed yet.
func (s *Store) AccessToken() (string, string, error) {
	token, err := s.getEncrypted(entities.SettingKeyRemoteAccessToken)
	if err != nil {
		return "", "", err
	}
	secret, err := s.getEncrypted(entities.SettingKeyRemoteAccessSecret)
	if err != nil {
		return "", "", err
	}
	return token, secret, nil
}

// SaveAccessToken persists a freshly exchanged access token pair. The pair
// is not yet validated against the service.
func (s *Store) SaveAccessToken(token, secret string) error {
	if err := s.setEncrypted(entities.SettingKeyRemoteAccessToken, token); err != nil {
		return err
	}
	if err := s.setEncrypted(entities.SettingKeyRemoteAccessSecret, secret); err != nil {
		return err
	}
	return s.set(entities.SettingKeyRemoteValidated, "false")
}

// RequestToken returns the transient request token pair held between
// authorization start and the callback.
func (s *Store) RequestToken() (string, string, error) {
	token, err := s.getEncrypted(entities.SettingKeyRemoteRequestToken)
	if err != nil {
		return "", "", err
	}
	secret, err := s.getEncrypted(entities.SettingKeyRemoteRequestSecret)
	if err != nil {
		return "", "", err
	}
	return token, secret, nil
}

// SaveRequestToken persists the request token pair.
func (s *Store) SaveRequestToken(token, secret string) error {
	if err := s.setEncrypted(entities.SettingKeyRemoteRequestToken, token); err != nil {
		return err
	}
	return s.setEncrypted(entities.SettingKeyRemoteRequestSecret, secret)
}

// ClearRequestToken discards the transient request token pair.
func (s *Store) ClearRequestToken() error {
	if err := s.delete(entities.SettingKeyRemoteRequestToken); err != nil {
		return err
	}
	return s.delete(entities.SettingKeyRemoteRequestSecret)
}

// Validated reports whether the access token has been confirmed against
// the auth_user endpoint since it last changed.
func (s *Store) Validated() (bool, error) {
	raw, err := s.get(entities.SettingKeyRemoteValidated)
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}

// MarkValidated records a successful validation along with the account it
// resolved to.
func (s *Store) MarkValidated(userID int64, userName string) error {
	if err := s.set(entities.SettingKeyRemoteUserID, strconv.FormatInt(userID, 10)); err != nil {
		return err
	}
	if err := s.set(entities.SettingKeyRemoteUserName, userName); err != nil {
		return err
	}
	return s.set(entities.SettingKeyRemoteValidated, "true")
}

// Invalidate clears the cached-valid flag. The tokens themselves are kept
// so the next HasValidCredentials call can re-validate and self-heal.
func (s *Store) Invalidate() error {
	return s.set(entities.SettingKeyRemoteValidated, "false")
}

// CachedUser returns the remote account id and name captured at the last
// successful validation.
func (s *Store) CachedUser() (int64, string, error) {
	rawID, err := s.get(entities.SettingKeyRemoteUserID)
	if err != nil {
		return 0, "", err
	}
	name, err := s.get(entities.SettingKeyRemoteUserName)
	if err != nil {
		return 0, "", err
	}
	id, _ := strconv.ParseInt(rawID, 10, 64)
	return id, name, nil
}

// LastSyncAt returns the boundary of the last completed incremental sync,
// nil when no sync has completed (forcing a full import).
func (s *Store) LastSyncAt() (*time.Time, error) {
	raw, err := s.get(entities.SettingKeySyncLastAt)
	if err != nil || raw == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt last-sync timestamp %q: %w", raw, err)
	}
	return &t, nil
}

// SetLastSyncAt persists the new incremental sync boundary.
func (s *Store) SetLastSyncAt(t time.Time) error {
	return s.set(entities.SettingKeySyncLastAt, t.UTC().Format(time.RFC3339))
}

// SyncSchedule returns the configured cron schedule, falling back to the
// given default.
func (s *Store) SyncSchedule(fallback string) string {
	if raw, err := s.get(entities.SettingKeySyncSchedule); err == nil && raw != "" {
		return raw
	}
	return fallback
}

// SyncEnabled reports whether periodic sync is switched on.
func (s *Store) SyncEnabled(fallback bool) bool {
	raw, err := s.get(entities.SettingKeySyncEnabled)
	if err != nil || raw == "" {
		return fallback
	}
	return raw == "true"
}

func (s *Store) get(key string) (string, error) {
	var setting entities.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return setting.Value, nil
}

func (s *Store) set(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	err := s.db.Where("key = ?", key).
		Assign(map[string]any{"value": value, "updated_at": time.Now()}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(key string) error {
	err := s.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) getEncrypted(key string) (string, error) {
	sealed, err := s.get(key)
	if err != nil {
		return "", err
	}
	return s.enc.Decrypt(sealed)
}

func (s *Store) setEncrypted(key, value string) error {
	sealed, err := s.enc.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt setting %s: %w", key, err)
	}
	return s.set(key, sealed)
}
