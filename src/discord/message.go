package discord

import (
	"fmt"
	"strings"
)

// SegmentKind identifies one piece of an outgoing chat message.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentMention
	SegmentRoleMention
	SegmentEveryone
	SegmentLink
)

// Segment is one part of a message. Value holds the text, user ID, role ID or URL.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Message is an ordered list of segments rendered independently of transport.
type Message struct {
	Segments []Segment
}

// NewMessage starts an empty message.
func NewMessage() *Message { return &Message{} }

// Text appends literal text.
func (m *Message) Text(s string) *Message {
	m.Segments = append(m.Segments, Segment{Kind: SegmentText, Value: s})
	return m
}

// Textf appends formatted text.
func (m *Message) Textf(format string, args ...interface{}) *Message {
	return m.Text(fmt.Sprintf(format, args...))
}

// Line appends text followed by a newline.
func (m *Message) Line(s string) *Message {
	return m.Text(s + "\n")
}

// Mention appends a user mention.
func (m *Message) Mention(userID string) *Message {
	if userID == "" {
		return m
	}
	m.Segments = append(m.Segments, Segment{Kind: SegmentMention, Value: userID})
	return m
}

// MentionRole appends a role mention; an empty role falls back to @everyone.
func (m *Message) MentionRole(roleID string) *Message {
	if roleID == "" {
		return m.MentionEveryone()
	}
	m.Segments = append(m.Segments, Segment{Kind: SegmentRoleMention, Value: roleID})
	return m
}

// MentionEveryone appends an @everyone mention.
func (m *Message) MentionEveryone() *Message {
	m.Segments = append(m.Segments, Segment{Kind: SegmentEveryone})
	return m
}

// Link appends a URL that will not unfurl into an embed.
func (m *Message) Link(url string) *Message {
	m.Segments = append(m.Segments, Segment{Kind: SegmentLink, Value: url})
	return m
}

// Append concatenates other onto m.
func (m *Message) Append(other *Message) *Message {
	if other != nil {
		m.Segments = append(m.Segments, other.Segments...)
	}
	return m
}

// Render produces Discord markup.
func (m *Message) Render() string {
	var b strings.Builder
	for _, seg := range m.Segments {
		switch seg.Kind {
		case SegmentText:
			b.WriteString(seg.Value)
		case SegmentMention:
			fmt.Fprintf(&b, "<@%s>", seg.Value)
		case SegmentRoleMention:
			fmt.Fprintf(&b, "<@&%s>", seg.Value)
		case SegmentEveryone:
			b.WriteString("@everyone")
		case SegmentLink:
			fmt.Fprintf(&b, "<%s>", strings.Trim(seg.Value, "<>"))
		}
	}
	return b.String()
}

// PlainText renders the message without mention markup, for logs and tests.
func (m *Message) PlainText() string {
	var b strings.Builder
	for _, seg := range m.Segments {
		switch seg.Kind {
		case SegmentText, SegmentLink:
			b.WriteString(seg.Value)
		case SegmentMention:
			b.WriteString("@" + seg.Value)
		case SegmentRoleMention:
			b.WriteString("@&" + seg.Value)
		case SegmentEveryone:
			b.WriteString("@everyone")
		}
	}
	return b.String()
}

// Mentions lists the user and role IDs referenced by the message.
func (m *Message) Mentions() (users []string, roles []string, everyone bool) {
	for _, seg := range m.Segments {
		switch seg.Kind {
		case SegmentMention:
			users = append(users, seg.Value)
		case SegmentRoleMention:
			roles = append(roles, seg.Value)
		case SegmentEveryone:
			everyone = true
		}
	}
	return users, roles, everyone
}
