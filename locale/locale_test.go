// SPDX-License-Identifier: GPL-3.0-or-later
package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatorLookup(t *testing.T) {
	tr := NewTranslator("de")
	assert.Equal(t, "Beenden", tr.T("menu.quit"))
}

func TestTranslatorFallsBackToEnglish(t *testing.T) {
	tr := NewTranslator("de")
	// report.suggestion has no German entry
	assert.Equal(t, english["report.suggestion"], tr.T("report.suggestion"))
}

func TestTranslatorUnknownLanguageAndKey(t *testing.T) {
	tr := NewTranslator("fr")
	assert.Equal(t, "Quit", tr.T("menu.quit"))
	assert.Equal(t, "no.such.key", tr.T("no.such.key"))
}
