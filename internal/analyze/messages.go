package analyze

import (
	"fmt"
	"strings"
)

// toolMessages maps each research tool to the rotating status lines shown
// while the model uses it.
var toolMessages = map[string][]string{
	"x_keyword_search": {
		"🔍 Diving into your posts...",
		"📜 Scrolling through your timeline...",
		"🕵️ Finding your hidden gems...",
		"✨ Uncovering your best moments...",
	},
	"x_semantic_search": {
		"🧠 Understanding your vibes...",
		"💭 Reading between the lines...",
		"🎯 Finding posts that hit different...",
	},
	"x_user_search": {
		"👤 Looking up your profile...",
		"🔎 Finding your account...",
	},
	"x_thread_fetch": {
		"🧵 Pulling up your threads...",
		"📖 Reading your stories...",
	},
	"code_execution": {
		"🧮 Crunching the numbers...",
		"📊 Calculating your stats...",
		"💯 Running the math...",
		"📈 Analyzing your data...",
	},
	"view_x_video": {
		"🎬 Watching your videos...",
		"📹 Reviewing your clips...",
	},
	"view_image": {
		"🖼️ Checking out your pics...",
		"📸 Admiring your photos...",
	},
	"web_search": {
		"🌐 Searching the web...",
		"🔗 Finding more context...",
	},
	"browse_page": {
		"📄 Reading more details...",
		"🔍 Digging deeper...",
	},
}

// messageRotation cycles through the status lines per tool. Counters are
// scoped to one request so every run starts at the first message.
type messageRotation struct {
	counts map[string]int
}

func newMessageRotation() *messageRotation {
	return &messageRotation{counts: map[string]int{}}
}

// Message returns the next status line for a tool call. Tools without a
// dedicated set fall back to a title-cased generic line.
func (m *messageRotation) Message(toolName string) string {
	messages, ok := toolMessages[toolName]
	if !ok {
		messages = []string{fmt.Sprintf("🔄 %s...", titleCase(toolName))}
	}
	count := m.counts[toolName]
	m.counts[toolName] = count + 1
	return messages[count%len(messages)]
}

func titleCase(toolName string) string {
	words := strings.Split(toolName, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
