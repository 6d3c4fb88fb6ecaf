package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/2207231/chatbot/internal/chatview"
	"github.com/2207231/chatbot/internal/model/chat"
)

// markdown renders finished assistant replies and remembers the output per
// message so unchanged messages are not rendered again.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]renderedMessage
}

type renderedMessage struct {
	content string
	output  string
}

func newMarkdown(style string) *markdown {
	return &markdown{style: style, cache: make(map[string]renderedMessage)}
}

func (md *markdown) resize(width int) {
	if width == md.width && md.renderer != nil {
		return
	}
	md.width = width
	md.cache = make(map[string]renderedMessage)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(md.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		md.renderer = nil
		return
	}
	md.renderer = renderer
}

func (md *markdown) render(msg chat.Message) string {
	if cached, ok := md.cache[msg.ID]; ok && cached.content == msg.Content {
		return cached.output
	}
	if md.renderer == nil {
		return msg.Content
	}

	out, err := md.renderer.Render(msg.Content)
	if err != nil {
		return msg.Content
	}
	out = strings.Trim(out, "\n")
	md.cache[msg.ID] = renderedMessage{content: msg.Content, output: out}
	return out
}

// renderConversation lays out every message of the snapshot. The message
// being revealed is shown raw with a cursor block.
func renderConversation(snap chatview.Snapshot, md *markdown) string {
	if len(snap.Messages) == 0 {
		return statusStyle.Render("Start a conversation by typing below.")
	}

	var b strings.Builder
	for i, msg := range snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}

		switch {
		case msg.Role == chat.RoleUser:
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case msg.IsError():
			b.WriteString(assistantLabelStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(msg.Content))
		case msg.ID == snap.RevealingID:
			b.WriteString(assistantLabelStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString(cursorBlock)
		default:
			b.WriteString(assistantLabelStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(md.render(msg))
		}
	}

	if snap.State == chatview.StateAwaitingResponse {
		b.WriteString("\n\n")
		b.WriteString(statusStyle.Render("Thinking..."))
	}
	return b.String()
}

// renderSidebar lists saved sessions, newest first.
func renderSidebar(snap chatview.Snapshot, selected int, focused bool, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("History"))
	b.WriteString("\n\n")

	if len(snap.Sessions) == 0 {
		b.WriteString(statusStyle.Render("No saved chats"))
	}

	for i, s := range snap.Sessions {
		line := truncate(s.Title, sidebarWidth-3)
		switch {
		case focused && i == selected:
			line = selectedSessionStyle.Render("> " + line)
		case s.ID == snap.CurrentSessionID:
			line = activeSessionStyle.Render("* " + line)
		default:
			line = sessionStyle.Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return sidebarStyle.Height(max(height, 1)).Render(b.String())
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
