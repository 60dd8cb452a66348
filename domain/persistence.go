// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

type ActionType string

const (
	ActionMove    = ActionType("move")
	ActionDelete  = ActionType("delete")
	ActionArchive = ActionType("archive")
)

// SmartActionRecord is one observed user action, appended to the action log
// after the corresponding remote operation succeeded.
type SmartActionRecord struct {
	ID           int64      `db:"id"`
	Action       ActionType `db:"action"`
	SenderDomain string     `db:"senderdomain"`
	Destination  string     `db:"destination"`
	EmailCount   int        `db:"emailcount"`
	RecordedAt   time.Time  `db:"recordedat"`
}

// Suggestion is a mined automation rule with its confidence in percent.
type Suggestion struct {
	Action       ActionType `db:"action"`
	SenderDomain string     `db:"senderdomain"`
	Destination  string     `db:"destination"`
	Confidence   int        `db:"confidence"`
	BasedOn      int        `db:"basedon"`
}

type SavedQuery struct {
	Name       string    `db:"name"`
	Query      string    `db:"query"`
	CreatedAt  time.Time `db:"createdat"`
	LastUsedAt time.Time `db:"lastusedat"`
	UseCount   int       `db:"usecount"`
}

type SearchHistoryEntry struct {
	ID         int64     `db:"id"`
	Query      string    `db:"query"`
	SearchedAt time.Time `db:"searchedat"`
}

// ActionRepository is the append-only smart-action log plus the last set of
// computed suggestions.
type ActionRepository interface {
	AppendAction(record SmartActionRecord) error
	AllActions() ([]*SmartActionRecord, error)
	ClearActions() error
	SaveSuggestions(suggestions []*Suggestion) error
	LastSuggestions() ([]*Suggestion, error)
}

// QueryRepository stores reusable filters and the capped search history.
type QueryRepository interface {
	SaveQuery(query SavedQuery) error
	AllQueries() ([]*SavedQuery, error)
	DeleteQuery(name string) error
	MarkQueryUsed(name string, usedAt time.Time) error
	AppendHistory(entry SearchHistoryEntry) error
	History() ([]*SearchHistoryEntry, error)
}
