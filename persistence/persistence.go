// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

// HistoryLimit caps the rolling search history; the oldest entries beyond it
// are evicted on append.
const HistoryLimit = 50

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-initial",
			Up: []string{
				`CREATE TABLE actions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					action TEXT NOT NULL,
					senderdomain TEXT NOT NULL,
					destination TEXT NOT NULL DEFAULT '',
					emailcount INTEGER NOT NULL,
					recordedat TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE suggestions (
					action TEXT NOT NULL,
					senderdomain TEXT NOT NULL,
					destination TEXT NOT NULL DEFAULT '',
					confidence INTEGER NOT NULL,
					basedon INTEGER NOT NULL
				)`,
				`CREATE TABLE saved_queries (
					name TEXT PRIMARY KEY,
					query TEXT NOT NULL,
					createdat TIMESTAMP NOT NULL,
					lastusedat TIMESTAMP NOT NULL,
					usecount INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE search_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					query TEXT NOT NULL,
					searchedat TIMESTAMP NOT NULL
				)`,
			},
			Down: []string{
				`DROP TABLE search_history`,
				`DROP TABLE saved_queries`,
				`DROP TABLE suggestions`,
				`DROP TABLE actions`,
			},
		},
	},
}

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(datasource string) (*Persistence, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

func (p *Persistence) AppendAction(record domain.SmartActionRecord) error {
	_, err := p.db.Exec(
		"INSERT INTO actions (action, senderdomain, destination, emailcount, recordedat) VALUES (?, ?, ?, ?, ?)",
		string(record.Action),
		record.SenderDomain,
		record.Destination,
		record.EmailCount,
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("could not append action: %w", err)
	}

	return nil
}

func (p *Persistence) AllActions() ([]*domain.SmartActionRecord, error) {
	records := []*domain.SmartActionRecord{}
	err := p.db.Select(
		&records,
		"SELECT id, action, senderdomain, destination, emailcount, recordedat FROM actions ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return records, nil
}

func (p *Persistence) ClearActions() error {
	_, err := p.db.Exec("DELETE FROM actions")
	if err != nil {
		return fmt.Errorf("could not clear actions: %w", err)
	}

	p.l.Info("Cleared action log")
	return nil
}

// SaveSuggestions replaces the last-computed suggestion set.
func (p *Persistence) SaveSuggestions(suggestions []*domain.Suggestion) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	_, err = tx.Exec("DELETE FROM suggestions")
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not clear suggestions: %w", err))
	}

	stmt, err := tx.Prepare(
		"INSERT INTO suggestions (action, senderdomain, destination, confidence, basedon) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}

	for _, s := range suggestions {
		_, err := stmt.Exec(string(s.Action), s.SenderDomain, s.Destination, s.Confidence, s.BasedOn)
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save suggestion: %w", err))
		}
	}

	return txEnd(tx, nil)
}

func (p *Persistence) LastSuggestions() ([]*domain.Suggestion, error) {
	suggestions := []*domain.Suggestion{}
	err := p.db.Select(
		&suggestions,
		"SELECT action, senderdomain, destination, confidence, basedon FROM suggestions ORDER BY confidence DESC, senderdomain",
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return suggestions, nil
}

func (p *Persistence) SaveQuery(query domain.SavedQuery) error {
	_, err := p.db.Exec(
		`INSERT OR REPLACE INTO saved_queries (name, query, createdat, lastusedat, usecount) VALUES (?, ?, ?, ?, ?)`,
		query.Name,
		query.Query,
		query.CreatedAt,
		query.LastUsedAt,
		query.UseCount,
	)
	if err != nil {
		return fmt.Errorf("could not save query: %w", err)
	}

	return nil
}

func (p *Persistence) AllQueries() ([]*domain.SavedQuery, error) {
	queries := []*domain.SavedQuery{}
	err := p.db.Select(
		&queries,
		"SELECT name, query, createdat, lastusedat, usecount FROM saved_queries ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return queries, nil
}

func (p *Persistence) DeleteQuery(name string) error {
	_, err := p.db.Exec("DELETE FROM saved_queries WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("could not delete query: %w", err)
	}

	return nil
}

func (p *Persistence) MarkQueryUsed(name string, usedAt time.Time) error {
	result, err := p.db.Exec(
		"UPDATE saved_queries SET lastusedat = ?, usecount = usecount + 1 WHERE name = ?",
		usedAt,
		name,
	)
	if err != nil {
		return fmt.Errorf("could not mark query used: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get num of affected rows: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("unexpected number of affected rows, expected 1 got %d", affected)
	}

	return nil
}

// AppendHistory records one search and evicts the oldest entries beyond the
// cap in the same transaction.
func (p *Persistence) AppendHistory(entry domain.SearchHistoryEntry) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO search_history (query, searchedat) VALUES (?, ?)",
		entry.Query,
		entry.SearchedAt,
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not append history: %w", err))
	}

	_, err = tx.Exec(
		"DELETE FROM search_history WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)",
		HistoryLimit,
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not trim history: %w", err))
	}

	return txEnd(tx, nil)
}

func (p *Persistence) History() ([]*domain.SearchHistoryEntry, error) {
	entries := []*domain.SearchHistoryEntry{}
	err := p.db.Select(
		&entries,
		"SELECT id, query, searchedat FROM search_history ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return entries, nil
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
