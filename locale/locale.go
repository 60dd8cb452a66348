// SPDX-License-Identifier: GPL-3.0-or-later

// Package locale holds the console's user-facing strings. Lookups fall back
// to English when a key has no translation in the selected language.
package locale

var english = map[string]string{
	"menu.title":         "mailsweep - mailbox management",
	"menu.index":         "Rebuild index",
	"menu.overview":      "Mailbox overview",
	"menu.senders":       "Top senders",
	"menu.duplicates":    "Find duplicates",
	"menu.newsletters":   "Newsletter opportunities",
	"menu.threats":       "Threat scan",
	"menu.health":        "Mailbox health",
	"menu.calendar":      "Detect calendar events",
	"menu.search":        "Search",
	"menu.suggestions":   "Smart suggestions",
	"menu.export":        "Export reports",
	"menu.quit":          "Quit",
	"prompt.choice":      "Choice: ",
	"prompt.domain":      "Sender domain: ",
	"prompt.folder":      "Target folder: ",
	"prompt.query":       "Query: ",
	"prompt.confirm":     "Proceed? [y/N]: ",
	"report.indexed":     "Indexed %d messages across %d domains",
	"report.summary":     "%d succeeded, %d failed",
	"report.dryrun":      "Dry run, no changes were made",
	"report.no_results":  "No results",
	"report.health":      "Health score %d (grade %s)",
	"report.exported":    "Wrote %s",
	"report.suggestion":  "%s %s (%d%% confidence, based on %d actions)",
	"error.unknown_menu": "Unknown choice",
}

var german = map[string]string{
	"menu.title":         "mailsweep - Postfachverwaltung",
	"menu.index":         "Index neu aufbauen",
	"menu.overview":      "Postfachuebersicht",
	"menu.senders":       "Top-Absender",
	"menu.duplicates":    "Duplikate finden",
	"menu.newsletters":   "Newsletter-Kandidaten",
	"menu.threats":       "Bedrohungsanalyse",
	"menu.health":        "Postfachzustand",
	"menu.calendar":      "Kalendereintraege erkennen",
	"menu.search":        "Suche",
	"menu.suggestions":   "Vorschlaege",
	"menu.export":        "Berichte exportieren",
	"menu.quit":          "Beenden",
	"prompt.choice":      "Auswahl: ",
	"prompt.domain":      "Absenderdomain: ",
	"prompt.folder":      "Zielordner: ",
	"prompt.query":       "Suchbegriff: ",
	"prompt.confirm":     "Fortfahren? [j/N]: ",
	"report.indexed":     "%d Nachrichten in %d Domains indiziert",
	"report.summary":     "%d erfolgreich, %d fehlgeschlagen",
	"report.dryrun":      "Testlauf, keine Aenderungen vorgenommen",
	"report.no_results":  "Keine Ergebnisse",
	"report.health":      "Zustand %d (Note %s)",
	"error.unknown_menu": "Unbekannte Auswahl",
}

var languages = map[string]map[string]string{
	"en": english,
	"de": german,
}

type Translator struct {
	table map[string]string
}

// NewTranslator selects a language table; unknown languages get English.
func NewTranslator(language string) *Translator {
	table, ok := languages[language]
	if !ok {
		table = english
	}
	return &Translator{table: table}
}

// T resolves a key, falling back to English and finally to the key itself.
func (tr *Translator) T(key string) string {
	if s, ok := tr.table[key]; ok {
		return s
	}
	if s, ok := english[key]; ok {
		return s
	}
	return key
}
