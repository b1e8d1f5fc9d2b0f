package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/krueger80/carcassonne-ai-sub001/game/service"
)

// SessionRecord is the database row for one session
type SessionRecord struct {
	ID             string    `gorm:"primaryKey;size:64"`
	CatalogID      string    `gorm:"size:128;not null"`
	Phase          string    `gorm:"size:16;index"`
	CreatedAt      time.Time `gorm:"not null"`
	LastAccessedAt time.Time `gorm:"index"`
	State          []byte    `gorm:"type:jsonb;not null"`
	History        []byte    `gorm:"type:jsonb"`
}

// TableName keeps the table name stable regardless of the struct name
func (SessionRecord) TableName() string {
	return "match_sessions"
}

// DBConfig holds the Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DBConfigFromEnv reads DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and
// DB_SSLMODE. ok is false when DB_HOST is unset.
func DBConfigFromEnv() (cfg DBConfig, ok bool) {
	cfg = DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg, cfg.Host != ""
}

// DSN renders the settings as a libpq connection string
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
	)
}

// OpenPostgres connects to Postgres and configures the connection pool
func OpenPostgres(cfg DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// DBPersistence implements SessionPersistence on a SQL database through gorm
type DBPersistence struct {
	db *gorm.DB
}

// NewDBPersistence migrates the sessions table and returns the store
func NewDBPersistence(db *gorm.DB) (*DBPersistence, error) {
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &DBPersistence{db: db}, nil
}

// toRecord serialises a session into its row
func toRecord(session *service.Session) (*SessionRecord, error) {
	data := toPersisted(session)
	state, err := json.Marshal(data.GameState)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	history, err := json.Marshal(data.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return &SessionRecord{
		ID:             strings.ToLower(data.ID),
		CatalogID:      data.CatalogID,
		Phase:          string(data.GameState.Phase),
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
		State:          state,
		History:        history,
	}, nil
}

// fromRecord rebuilds a session from its row
func fromRecord(rec *SessionRecord) (*service.Session, error) {
	data := PersistedSessionData{
		ID:             rec.ID,
		CatalogID:      rec.CatalogID,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	}
	if err := json.Unmarshal(rec.State, &data.GameState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	if len(rec.History) > 0 {
		if err := json.Unmarshal(rec.History, &data.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	return data.restore()
}

// Save upserts the session row
func (p *DBPersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	rec, err := toRecord(session)
	if err != nil {
		return err
	}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

// Load reads a session row
func (p *DBPersistence) Load(id string) (*service.Session, error) {
	var rec SessionRecord
	err := p.db.First(&rec, "id = ?", strings.ToLower(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return fromRecord(&rec)
}

// Delete removes a session row
func (p *DBPersistence) Delete(id string) error {
	res := p.db.Delete(&SessionRecord{}, "id = ?", strings.ToLower(id))
	if res.Error != nil {
		return fmt.Errorf("failed to delete session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all stored session IDs
func (p *DBPersistence) ListAll() ([]string, error) {
	var ids []string
	if err := p.db.Model(&SessionRecord{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks whether a session row exists
func (p *DBPersistence) Exists(id string) (bool, error) {
	var count int64
	if err := p.db.Model(&SessionRecord{}).Where("id = ?", strings.ToLower(id)).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}
	return count > 0, nil
}
