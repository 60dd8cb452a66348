// SPDX-License-Identifier: GPL-3.0-or-later

// Package export serializes analysis results into CSV reports and iCalendar
// files for use outside the console.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/mailstats"
)

func WriteOverviewCsv(w io.Writer, mailbox string, overview *domain.MailboxOverview) error {
	return writeCsv(w,
		[]string{"mailbox", "messages", "domains", "total_mb", "average_mb", "unread", "with_attachments", "estimated_sizes"},
		[][]string{{
			mailbox,
			strconv.Itoa(overview.TotalMessages),
			strconv.Itoa(overview.TotalDomains),
			formatMB(overview.TotalMB),
			formatMB(overview.AverageMB),
			strconv.Itoa(overview.UnreadCount),
			strconv.Itoa(overview.WithAttachments),
			strconv.Itoa(overview.EstimatedLegacy),
		}},
	)
}

func WriteSendersCsv(w io.Writer, senders []*domain.SenderVolume) error {
	return writeCsv(w, []string{"domain", "messages", "storage_mb"}, senderRows(senders))
}

func WriteMonthlyCsv(w io.Writer, months []*domain.MonthBucket) error {
	rows := make([][]string, len(months))
	for i, m := range months {
		rows[i] = []string{m.Month, strconv.Itoa(m.MessageCount), formatMB(m.StorageMB)}
	}
	return writeCsv(w, []string{"month", "messages", "storage_mb"}, rows)
}

func WriteDuplicatesCsv(w io.Writer, groups []*domain.DuplicateGroup) error {
	rows := [][]string{}
	for _, g := range groups {
		rows = append(rows, duplicateRow(g, g.Keep, "keep"))
		for _, m := range g.Deletable {
			rows = append(rows, duplicateRow(g, m, "delete"))
		}
	}
	return writeCsv(w, []string{"fingerprint", "decision", "id", "subject", "sender", "received_at"}, rows)
}

func duplicateRow(g *domain.DuplicateGroup, m *domain.CachedMessage, decision string) []string {
	return []string{
		g.Fingerprint,
		decision,
		m.ID,
		m.Subject,
		m.SenderEmail,
		m.ReceivedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

func WriteLargeMessagesCsv(w io.Writer, messages []*domain.CachedMessage, resolve mailstats.SizeResolver) error {
	rows := make([][]string, len(messages))
	for i, m := range messages {
		rows[i] = []string{
			m.ID,
			m.Subject,
			m.SenderEmail,
			formatMB(mailstats.RoundMB(float64(resolve(m)) / (1024 * 1024))),
			strconv.Itoa(len(m.AttachmentNames)),
		}
	}
	return writeCsv(w, []string{"id", "subject", "sender", "size_mb", "attachments"}, rows)
}

func WriteArchiveCandidatesCsv(w io.Writer, candidates []*domain.SenderVolume) error {
	return writeCsv(w, []string{"domain", "messages", "storage_mb"}, senderRows(candidates))
}

func senderRows(senders []*domain.SenderVolume) [][]string {
	rows := make([][]string, len(senders))
	for i, s := range senders {
		rows[i] = []string{s.Domain, strconv.Itoa(s.MessageCount), formatMB(s.StorageMB)}
	}
	return rows
}

func writeCsv(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)

	err := cw.Write(header)
	if err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}

	for _, row := range rows {
		err = cw.Write(row)
		if err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}

	cw.Flush()
	if cw.Error() != nil {
		return fmt.Errorf("could not flush csv: %w", cw.Error())
	}
	return nil
}

func formatMB(mb float64) string {
	return strconv.FormatFloat(mb, 'f', 2, 64)
}
