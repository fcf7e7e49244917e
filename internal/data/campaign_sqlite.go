package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// campaignSQLiteRepo stores one JSON row per campaign type
type campaignSQLiteRepo struct {
	db *sql.DB
}

// NewCampaignSQLiteRepo creates a SQLite campaign repository
func NewCampaignSQLiteRepo(dbPath string) (repo.CampaignDocRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// modernc sqlite does not like concurrent writers on one file
	db.SetMaxOpenConns(1)

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS campaigns (
			type_id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create table")
	}

	return &campaignSQLiteRepo{db: db}, nil
}

// Load reads all rows. Rows that fail to decode are skipped.
func (r *campaignSQLiteRepo) Load(ctx context.Context) (map[string]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type_id, doc FROM campaigns`)
	if err != nil {
		return nil, errors.Wrap(err, "query campaigns")
	}
	defer rows.Close()

	campaigns := make(map[string]*domain.Campaign)
	for rows.Next() {
		var typeID, doc string
		if err := rows.Scan(&typeID, &doc); err != nil {
			return nil, errors.Wrap(err, "scan campaign")
		}
		var c domain.Campaign
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			continue
		}
		c.CampaignTypeID = typeID
		campaigns[typeID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate campaigns")
	}
	return campaigns, nil
}

// Save replaces the full set in one transaction
func (r *campaignSQLiteRepo) Save(ctx context.Context, campaigns map[string]*domain.Campaign) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaigns`); err != nil {
		return errors.Wrap(err, "clear campaigns")
	}

	now := time.Now().Unix()
	for typeID, c := range campaigns {
		if c == nil {
			continue
		}
		doc, err := json.Marshal(c)
		if err != nil {
			return errors.Wrapf(err, "encode campaign %s", typeID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaigns (type_id, doc, updated_at)
			VALUES (?, ?, ?)
		`, typeID, string(doc), now); err != nil {
			return errors.Wrapf(err, "save campaign %s", typeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit campaigns")
	}
	return nil
}

// Close closes the database connection
func (r *campaignSQLiteRepo) Close() error {
	return r.db.Close()
}
