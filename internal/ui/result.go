package ui

import (
	"sort"
	"strings"
)

// RenderSuccessBox renders a success box with details in key order
func RenderSuccessBox(title string, details map[string]string, width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render(SuccessMarker + "  " + title),
		"",
	}
	lines = append(lines, renderDetails(details)...)
	if len(details) > 0 {
		lines = append(lines, "")
	}
	return SuccessBoxStyle(clampWidth(width)).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error box with troubleshooting hints
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(FailureMarker + "  " + title),
		"",
	}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}
	if len(troubleshooting) > 0 {
		lines = append(lines, ResultKeyStyle.Render("Troubleshooting:"))
		for _, tip := range troubleshooting {
			lines = append(lines, ResultValueStyle.Render("  • "+tip))
		}
		lines = append(lines, "")
	}
	return ErrorBoxStyle(clampWidth(width)).Render(strings.Join(lines, "\n"))
}

func renderDetails(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, ResultKeyStyle.Render(k+":")+" "+ResultValueStyle.Render(details[k]))
	}
	return lines
}
