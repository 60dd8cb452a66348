// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Mailbox  string
	ImapHost string
	User     string
	Password string

	SourceFolder string
	StateDir     string
	Database     string

	MaxMessages     int
	NewestFirst     bool
	BulkConcurrency int
	BatchSize       int
	BatchDelayMs    int

	DryRun bool

	ArchiveFolder string
	TrashFolder   string

	Language string

	KnownDomains       []string
	NewsletterMinCount int

	Loglevel *string
}

func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		SourceFolder:       "INBOX",
		StateDir:           "state",
		Database:           "mailsweep.db",
		NewestFirst:        true,
		BulkConcurrency:    4,
		BatchSize:          50,
		BatchDelayMs:       500,
		ArchiveFolder:      "Archive",
		TrashFolder:        "Trash",
		Language:           "en",
		NewsletterMinCount: 5,
	}

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.Mailbox, "Mailbox must not be empty, set to the mailbox identity (e.g. the account address)"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ImapHost, "ImapHost must not be empty, set to host:port of the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.User, "User must not be empty, set to username on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Password, "Password must not be empty, set to password of User on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.StateDir, "StateDir must not be empty, set to a directory for the local cache"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Database, "Database name must not be empty, set to a filename for the sqlite database"); err != nil {
		return err
	}

	if c.MaxMessages < 0 {
		return fmt.Errorf("MaxMessages must be >= 0, 0 means unbounded")
	}

	if c.BulkConcurrency < 1 {
		return fmt.Errorf("BulkConcurrency must be >= 1")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("BatchSize must be >= 1")
	}

	if c.NewsletterMinCount < 1 {
		return fmt.Errorf("NewsletterMinCount must be >= 1")
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
