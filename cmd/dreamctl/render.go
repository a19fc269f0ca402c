package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lucidify/internal/providers/director"
)

var (
	kindStyle = lipgloss.NewStyle().Bold(true).Width(10)
	initStyle = kindStyle.Foreground(lipgloss.Color("63"))
	progStyle = kindStyle.Foreground(lipgloss.Color("244"))
	doneStyle = kindStyle.Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)
)

func renderEvent(ev streamEvent) string {
	switch ev.Kind {
	case "INIT":
		return initStyle.Render(ev.Kind) + ev.Message()
	case "COMPLETE":
		url, _ := ev.Payload["videoUrl"].(string)
		prompt, _ := ev.Payload["enhancedPrompt"].(string)
		lines := []string{doneStyle.Render(ev.Kind) + url}
		if prompt != "" {
			lines = append(lines, labelStyle.Render("prompt: ")+prompt)
		}
		return strings.Join(lines, "\n")
	case "ERROR":
		return errorStyle.Width(10).Render(ev.Kind) + ev.Message()
	default:
		return progStyle.Render(ev.Kind) + ev.Message()
	}
}

func renderAnalysis(a *director.DreamAnalysis) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Title))
	b.WriteString("\n\n")
	b.WriteString(a.Insight)
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("video prompt"))
	b.WriteString("\n")
	b.WriteString(a.VideoPrompt)
	if len(a.Keywords) > 0 {
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("keywords: %s", strings.Join(a.Keywords, ", "))))
	}
	return boxStyle.Render(b.String())
}
