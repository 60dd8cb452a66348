// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"flag"
	"os"
	"time"

	"github.com/mailsweep/mailsweep/config"
	"github.com/mailsweep/mailsweep/console"
	"github.com/mailsweep/mailsweep/imapconnection"
	"github.com/mailsweep/mailsweep/locale"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mailcache"
	"github.com/mailsweep/mailsweep/mailsweep"
	"github.com/mailsweep/mailsweep/persistence"

	"github.com/sirupsen/logrus"
)

// TestModeSampleSize caps indexing in -test mode to a small fixed sample.
const TestModeSampleSize = 25

func main() {
	configFile := flag.String("config", "config.toml", "path to the configuration file")
	mailbox := flag.String("mailbox", "", "mailbox identity, overrides the config file")
	maxMessages := flag.Int("max", -1, "cap on messages to index, overrides the config file")
	language := flag.String("lang", "", "ui language (en/de), overrides the config file")
	testMode := flag.Bool("test", false, "test mode, index only a small fixed sample")
	flag.Parse()

	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.ReadConfig(*configFile)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	if *mailbox != "" {
		conf.Mailbox = *mailbox
	}
	if *maxMessages >= 0 {
		conf.MaxMessages = *maxMessages
	}
	if *language != "" {
		conf.Language = *language
	}
	if *testMode {
		logger.WithField("sample", TestModeSampleSize).Warn("Test mode, indexing a small sample only")
		conf.MaxMessages = TestModeSampleSize
	}

	err = os.MkdirAll(conf.StateDir, 0o755)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not create state directory")
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to database")
	}
	defer p.Close()

	imapConn, err := imapconnection.NewImapConnection(conf.ImapHost, conf.User, conf.Password, conf.SourceFolder)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start imap connector")
	}
	defer imapConn.Close()

	session, err := mailsweep.NewSession(
		conf.Mailbox,
		mailcache.NewStore(conf.StateDir, conf.Mailbox),
		imapConn,
		p,
		p,
		sessionConfigs(conf)...,
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start session")
	}

	logger.WithFields(logrus.Fields{"mailbox": conf.Mailbox, "dryrun": conf.DryRun}).Info("Starting console")
	console.New(session, locale.NewTranslator(conf.Language), os.Stdin, os.Stdout).Run()
}

func sessionConfigs(conf *config.Config) []mailsweep.ConfigFunc {
	configs := []mailsweep.ConfigFunc{
		mailsweep.MaxMessages(conf.MaxMessages),
		mailsweep.Concurrency(conf.BulkConcurrency),
		mailsweep.Batching(conf.BatchSize, time.Duration(conf.BatchDelayMs)*time.Millisecond),
		mailsweep.ArchiveFolder(conf.ArchiveFolder),
		mailsweep.TrashFolder(conf.TrashFolder),
		mailsweep.KnownDomains(conf.KnownDomains),
		mailsweep.NewsletterMinCount(conf.NewsletterMinCount),
	}

	if conf.DryRun {
		configs = append(configs, mailsweep.DryRun())
	}
	if !conf.NewestFirst {
		configs = append(configs, mailsweep.OldestFirst())
	}

	return configs
}
