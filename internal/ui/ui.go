package ui

import "strings"

// RenderError formats a user-facing error. A non-empty detail puts both in
// a bordered box.
func RenderError(title, detail string) string {
	if detail == "" {
		return Current.Error.Render(title)
	}
	header := Current.Error.Bold(true).Render(title)
	body := Current.Help.Render(strings.TrimSpace(detail))
	return Current.ErrorBox.Render(header + "\n\n" + body)
}
