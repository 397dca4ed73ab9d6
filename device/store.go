package device

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nightlife_order/constants"

	_ "modernc.org/sqlite"
)

// Store is the device-local key/value store backing carts, the pending
// order queue and staff sessions. Values are plain JSON snapshots.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load decodes the value stored under key into v. It reports false when the key is absent.
func (s *Store) Load(key string, v any) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type StaffSession struct {
	Token     string    `json:"token"`
	WaiterId  uint      `json:"waiterId"`
	VenueId   uint      `json:"venueId"`
	EventId   uint      `json:"eventId"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ManagerSession struct {
	Token     string    `json:"token"`
	AccountId uint      `json:"accountId"`
	VenueId   uint      `json:"venueId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Store) SaveStaffSession(sess StaffSession) error {
	return s.Save(constants.KEY_STAFF_SESSION, sess)
}

// StaffSession returns the saved waiter session; expired sessions are removed.
func (s *Store) StaffSession() (*StaffSession, error) {
	var sess StaffSession
	ok, err := s.Load(constants.KEY_STAFF_SESSION, &sess)
	if err != nil || !ok {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		return nil, s.Delete(constants.KEY_STAFF_SESSION)
	}
	return &sess, nil
}

func (s *Store) SaveManagerSession(sess ManagerSession) error {
	return s.Save(constants.KEY_MANAGER_SESSION, sess)
}

func (s *Store) ManagerSession() (*ManagerSession, error) {
	var sess ManagerSession
	ok, err := s.Load(constants.KEY_MANAGER_SESSION, &sess)
	if err != nil || !ok {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		return nil, s.Delete(constants.KEY_MANAGER_SESSION)
	}
	return &sess, nil
}

func (s *Store) ClearSessions() error {
	return errors.Join(s.Delete(constants.KEY_STAFF_SESSION), s.Delete(constants.KEY_MANAGER_SESSION))
}
