// SPDX-License-Identifier: GPL-3.0-or-later
package mailsweep

import (
	"fmt"
	"time"
)

type configuration struct {
	DryRun bool

	MaxMessages int
	NewestFirst bool

	Concurrency int
	BatchSize   int
	BatchDelay  time.Duration

	ArchiveFolder string
	TrashFolder   string

	KnownDomains       []string
	NewsletterMinCount int
}

type ConfigFunc func(c *configuration) error

func DryRun() ConfigFunc {
	return func(c *configuration) error {
		c.DryRun = true

		return nil
	}
}

func MaxMessages(max int) ConfigFunc {
	return func(c *configuration) error {
		if max < 0 {
			return fmt.Errorf("MaxMessages cannot be negative")
		}

		c.MaxMessages = max
		return nil
	}
}

func OldestFirst() ConfigFunc {
	return func(c *configuration) error {
		c.NewestFirst = false

		return nil
	}
}

func Concurrency(concurrency int) ConfigFunc {
	return func(c *configuration) error {
		if concurrency < 1 {
			return fmt.Errorf("Concurrency must be at least 1")
		}

		c.Concurrency = concurrency
		return nil
	}
}

func Batching(size int, delay time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if size < 1 {
			return fmt.Errorf("BatchSize must be at least 1")
		}

		c.BatchSize = size
		c.BatchDelay = delay
		return nil
	}
}

func ArchiveFolder(folder string) ConfigFunc {
	return func(c *configuration) error {
		if len(folder) == 0 {
			return fmt.Errorf("ArchiveFolder cannot be empty")
		}

		c.ArchiveFolder = folder
		return nil
	}
}

func TrashFolder(folder string) ConfigFunc {
	return func(c *configuration) error {
		if len(folder) == 0 {
			return fmt.Errorf("TrashFolder cannot be empty")
		}

		c.TrashFolder = folder
		return nil
	}
}

func KnownDomains(domains []string) ConfigFunc {
	return func(c *configuration) error {
		c.KnownDomains = domains

		return nil
	}
}

func NewsletterMinCount(min int) ConfigFunc {
	return func(c *configuration) error {
		if min < 1 {
			return fmt.Errorf("NewsletterMinCount must be at least 1")
		}

		c.NewsletterMinCount = min
		return nil
	}
}
