// SPDX-License-Identifier: GPL-3.0-or-later

// Package smartrules mines the observed-action log for confident automation
// suggestions. Actions are recorded only after their remote operation
// succeeded, so the log reflects what actually happened to the mailbox.
package smartrules

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"

	"github.com/sirupsen/logrus"
)

const (
	// MinTotalActions is the cold-start guard: below this many recorded
	// actions no suggestions are produced at all.
	MinTotalActions = 3

	minMovesForPattern    = 2
	minDeletesForPattern  = 3
	deleteShareThreshold  = 0.70
	minArchivesForPattern = 2
	archiveShareThreshold = 0.60
)

type Learner struct {
	actions domain.ActionRepository
	l       *logrus.Logger
}

func NewLearner(actions domain.ActionRepository) *Learner {
	return &Learner{
		actions: actions,
		l:       log.Logger(log.LOG_ANALYSIS),
	}
}

// Record appends one observed action to the log.
func (le *Learner) Record(action domain.ActionType, senderDomain, destination string, emailCount int) error {
	err := le.actions.AppendAction(domain.SmartActionRecord{
		Action:       action,
		SenderDomain: senderDomain,
		Destination:  destination,
		EmailCount:   emailCount,
		RecordedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("could not record action: %w", err)
	}

	le.l.WithFields(logrus.Fields{"action": action, "domain": senderDomain, "count": emailCount}).Debug("Recorded action")
	return nil
}

// Analyze mines the log and persists the computed suggestions as the last
// known set.
func (le *Learner) Analyze() ([]*domain.Suggestion, error) {
	records, err := le.actions.AllActions()
	if err != nil {
		return nil, fmt.Errorf("could not load action log: %w", err)
	}

	suggestions := Mine(records)
	err = le.actions.SaveSuggestions(suggestions)
	if err != nil {
		return nil, fmt.Errorf("could not save suggestions: %w", err)
	}

	le.l.WithFields(logrus.Fields{"actions": len(records), "suggestions": len(suggestions)}).Debug("Analyzed action log")
	return suggestions, nil
}

// Clear wipes the action log.
func (le *Learner) Clear() error {
	return le.actions.ClearActions()
}

// Mine groups the log by sender domain and checks each group for the move,
// delete and archive patterns. Fewer than MinTotalActions records overall
// yield no suggestions regardless of grouping.
func Mine(records []*domain.SmartActionRecord) []*domain.Suggestion {
	if len(records) < MinTotalActions {
		return []*domain.Suggestion{}
	}

	byDomain := map[string][]*domain.SmartActionRecord{}
	domains := []string{}
	for _, r := range records {
		if _, seen := byDomain[r.SenderDomain]; !seen {
			domains = append(domains, r.SenderDomain)
		}
		byDomain[r.SenderDomain] = append(byDomain[r.SenderDomain], r)
	}
	sort.Strings(domains)

	suggestions := []*domain.Suggestion{}
	for _, d := range domains {
		suggestions = append(suggestions, mineDomain(d, byDomain[d])...)
	}
	return suggestions
}

func mineDomain(senderDomain string, records []*domain.SmartActionRecord) []*domain.Suggestion {
	total := len(records)
	moves, deletes, archives := 0, 0, 0
	moveDestinations := map[string]int{}
	for _, r := range records {
		switch r.Action {
		case domain.ActionMove:
			moves++
			moveDestinations[r.Destination]++
		case domain.ActionDelete:
			deletes++
		case domain.ActionArchive:
			archives++
		}
	}

	suggestions := []*domain.Suggestion{}

	if moves >= minMovesForPattern {
		destination, count := dominantDestination(moveDestinations)
		if count >= minMovesForPattern {
			suggestions = append(suggestions, &domain.Suggestion{
				Action:       domain.ActionMove,
				SenderDomain: senderDomain,
				Destination:  destination,
				Confidence:   percent(count, moves),
				BasedOn:      count,
			})
		}
	}

	if deletes >= minDeletesForPattern {
		if share := float64(deletes) / float64(total); share >= deleteShareThreshold {
			suggestions = append(suggestions, &domain.Suggestion{
				Action:       domain.ActionDelete,
				SenderDomain: senderDomain,
				Confidence:   percent(deletes, total),
				BasedOn:      deletes,
			})
		}
	}

	if archives >= minArchivesForPattern {
		if share := float64(archives) / float64(total); share >= archiveShareThreshold {
			suggestions = append(suggestions, &domain.Suggestion{
				Action:       domain.ActionArchive,
				SenderDomain: senderDomain,
				Confidence:   percent(archives, total),
				BasedOn:      archives,
			})
		}
	}

	return suggestions
}

func dominantDestination(destinations map[string]int) (string, int) {
	best, bestCount := "", 0
	names := make([]string, 0, len(destinations))
	for name := range destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if destinations[name] > bestCount {
			best, bestCount = name, destinations[name]
		}
	}
	return best, bestCount
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
