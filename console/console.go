// SPDX-License-Identifier: GPL-3.0-or-later

// Package console is the interactive menu around a session. It only reads
// input, prints localized output and delegates every operation.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/dedup"
	"github.com/mailsweep/mailsweep/export"
	"github.com/mailsweep/mailsweep/locale"
	"github.com/mailsweep/mailsweep/mail"
	"github.com/mailsweep/mailsweep/mailstats"
	"github.com/mailsweep/mailsweep/mailsweep"
)

const largeMessageThreshold = 5 * 1024 * 1024

type Console struct {
	session *mailsweep.Session
	tr      *locale.Translator
	in      *bufio.Reader
	out     io.Writer
}

func New(session *mailsweep.Session, tr *locale.Translator, in io.Reader, out io.Writer) *Console {
	return &Console{
		session: session,
		tr:      tr,
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// Run loops over the menu until the user quits or input ends.
func (c *Console) Run() {
	for {
		c.printMenu()
		choice, ok := c.prompt("prompt.choice")
		if !ok {
			return
		}

		if choice == "0" {
			return
		}
		c.dispatch(choice)
	}
}

func (c *Console) printMenu() {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.tr.T("menu.title"))
	items := []struct{ key, label string }{
		{"1", "menu.index"},
		{"2", "menu.overview"},
		{"3", "menu.senders"},
		{"4", "menu.duplicates"},
		{"5", "menu.newsletters"},
		{"6", "menu.threats"},
		{"7", "menu.health"},
		{"8", "menu.calendar"},
		{"9", "menu.search"},
		{"10", "menu.suggestions"},
		{"11", "menu.export"},
		{"0", "menu.quit"},
	}
	for _, item := range items {
		fmt.Fprintf(c.out, "  %s) %s\n", item.key, c.tr.T(item.label))
	}
}

func (c *Console) dispatch(choice string) {
	switch choice {
	case "1":
		c.rebuildIndex()
	case "2":
		c.overview()
	case "3":
		c.topSenders()
	case "4":
		c.duplicates()
	case "5":
		c.newsletters()
	case "6":
		c.threats()
	case "7":
		c.health()
	case "8":
		c.calendar()
	case "9":
		c.search()
	case "10":
		c.suggestions()
	case "11":
		c.exportReports()
	default:
		fmt.Fprintln(c.out, c.tr.T("error.unknown_menu"))
	}
}

func (c *Console) rebuildIndex() {
	cache, err := c.session.RebuildIndex(func(processed, total int) {
		fmt.Fprintf(c.out, "  %d/%d\n", processed, total)
	})
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}

	fmt.Fprintf(c.out, c.tr.T("report.indexed")+"\n", cache.TotalMessages(), len(cache.Buckets))
}

func (c *Console) overview() {
	o := c.session.Overview()
	fmt.Fprintf(c.out, "  messages: %d  domains: %d  storage: %.2f MB  unread: %d  attachments: %d\n",
		o.TotalMessages, o.TotalDomains, o.TotalMB, o.UnreadCount, o.WithAttachments)

	for _, m := range c.session.MonthlyTrend() {
		fmt.Fprintf(c.out, "  %s  %d\n", m.Month, m.MessageCount)
	}
}

func (c *Console) topSenders() {
	senders := c.session.TopSendersByCount(10)
	if len(senders) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}
	for _, s := range senders {
		fmt.Fprintf(c.out, "  %-40s %5d  %8.2f MB\n", s.Domain, s.MessageCount, s.StorageMB)
	}

	senderDomain, ok := c.prompt("prompt.domain")
	if !ok || senderDomain == "" {
		return
	}

	if c.confirm() {
		summary, err := c.session.DeleteDomain(senderDomain)
		c.report(summary.Succeeded, summary.Failed, err)
	}
}

func (c *Console) duplicates() {
	groups := c.session.FindDuplicates(dedup.Quick)
	if len(groups) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}

	deletable := 0
	for _, g := range groups {
		deletable += len(g.Deletable)
		fmt.Fprintf(c.out, "  %dx %s\n", len(g.Deletable)+1, mail.ShortSubject(g.Keep.Subject))
	}
	fmt.Fprintf(c.out, "  %d groups, %d deletable\n", len(groups), deletable)

	if c.confirm() {
		summary, err := c.session.DeleteDuplicates(groups)
		c.report(summary.Succeeded, summary.Failed, err)
	}
}

func (c *Console) newsletters() {
	opportunities := c.session.Newsletters()
	if len(opportunities) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}
	for _, o := range opportunities {
		fmt.Fprintf(c.out, "  %-40s %5d  score %d  %s\n", o.Domain, o.MessageCount, o.Score, strings.Join(o.Reasons, ", "))
	}
}

func (c *Console) threats() {
	threats := c.session.Threats()
	if len(threats) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}
	for _, t := range threats {
		fmt.Fprintf(c.out, "  [%s] %s (%s): %s\n", t.Severity, t.Message.Subject, t.Message.SenderEmail, strings.Join(t.Reasons, ", "))
	}
}

func (c *Console) health() {
	report := c.session.Health()
	fmt.Fprintf(c.out, c.tr.T("report.health")+"\n", report.Score, report.Grade)
	for _, d := range report.Deductions {
		fmt.Fprintf(c.out, "  - %s\n", d)
	}
}

func (c *Console) calendar() {
	events := c.session.CalendarEvents()
	if len(events) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}
	for _, e := range events {
		fmt.Fprintf(c.out, "  %s  %s\n", e.Start.Format("2006-01-02 15:04"), e.Summary)
	}

	// the ics dump goes straight to the output writer so it can be piped
	if c.confirm() {
		err := export.WriteIcs(c.out, events)
		if err != nil {
			fmt.Fprintln(c.out, err)
		}
	}
}

func (c *Console) search() {
	query, ok := c.prompt("prompt.query")
	if !ok || query == "" {
		return
	}

	results, err := c.session.Search(query)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}

	for _, m := range results {
		fmt.Fprintf(c.out, "  %s  %-30s %s\n", m.ReceivedAt.Format("2006-01-02"), m.SenderEmail, mail.ShortSubject(m.Subject))
	}

	folder, ok := c.prompt("prompt.folder")
	if !ok || folder == "" {
		return
	}
	if c.confirm() {
		summary, err := c.session.MoveMessages(results, folder)
		c.report(summary.Succeeded, summary.Failed, err)
	}
}

func (c *Console) suggestions() {
	suggestions, err := c.session.Suggestions()
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(c.out, c.tr.T("report.no_results"))
		return
	}

	for _, s := range suggestions {
		target := s.SenderDomain
		if s.Destination != "" {
			target = fmt.Sprintf("%s -> %s", s.SenderDomain, s.Destination)
		}
		fmt.Fprintf(c.out, "  "+c.tr.T("report.suggestion")+"\n", s.Action, target, s.Confidence, s.BasedOn)
	}

	if c.confirm() {
		for _, s := range suggestions {
			summary, err := c.session.ApplySuggestion(s)
			c.report(summary.Succeeded, summary.Failed, err)
		}
	}
}

func (c *Console) report(succeeded, failed int, err error) {
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintf(c.out, c.tr.T("report.summary")+"\n", succeeded, failed)
}

func (c *Console) prompt(key string) (string, bool) {
	fmt.Fprint(c.out, c.tr.T(key))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (c *Console) confirm() bool {
	answer, ok := c.prompt("prompt.confirm")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "j"
}

// exportReports dumps all CSV reports into the working directory.
func (c *Console) exportReports() {
	reports := []struct {
		file  string
		write func(w io.Writer) error
	}{
		{"mailsweep-overview.csv", func(w io.Writer) error {
			return export.WriteOverviewCsv(w, c.session.Cache().Mailbox, c.session.Overview())
		}},
		{"mailsweep-senders.csv", func(w io.Writer) error {
			return export.WriteSendersCsv(w, c.session.StorageByDomain())
		}},
		{"mailsweep-months.csv", func(w io.Writer) error {
			return export.WriteMonthlyCsv(w, c.session.MonthlyTrend())
		}},
		{"mailsweep-duplicates.csv", func(w io.Writer) error {
			return export.WriteDuplicatesCsv(w, c.session.FindDuplicates(dedup.Quick))
		}},
		{"mailsweep-large.csv", func(w io.Writer) error {
			return export.WriteLargeMessagesCsv(w, c.session.LargeMessages(largeMessageThreshold), mailstats.CachedSizeResolver)
		}},
		{"mailsweep-archive-candidates.csv", func(w io.Writer) error {
			return export.WriteArchiveCandidatesCsv(w, c.session.ArchiveCandidates(time.Now().AddDate(-1, 0, 0)))
		}},
	}

	for _, report := range reports {
		err := writeFileReport(report.file, report.write)
		if err != nil {
			fmt.Fprintln(c.out, err)
			return
		}
		fmt.Fprintf(c.out, c.tr.T("report.exported")+"\n", report.file)
	}
}

func writeFileReport(file string, write func(w io.Writer) error) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", file, err)
	}
	defer f.Close()

	return write(f)
}
