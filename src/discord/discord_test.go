package discord

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestMessageRender(t *testing.T) {
	m := NewMessage().
		Mention("42").
		Line("").
		Text("review: ").
		Link("https://survey.example.org/r?id=abc").
		Text(" ").
		MentionRole("7").
		Text(" ").
		MentionRole("")

	want := "<@42>\nreview: <https://survey.example.org/r?id=abc> <@&7> @everyone"
	if got := m.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}

	users, roles, everyone := m.Mentions()
	if len(users) != 1 || users[0] != "42" || len(roles) != 1 || roles[0] != "7" || !everyone {
		t.Fatalf("mentions = %v %v %v", users, roles, everyone)
	}
	if !strings.Contains(m.PlainText(), "@42") {
		t.Fatalf("plain text = %q", m.PlainText())
	}
}

func TestChunkMessage(t *testing.T) {
	short := "hello"
	if got := ChunkMessage(short); len(got) != 1 || got[0] != short {
		t.Fatalf("short chunks = %v", got)
	}

	line := strings.Repeat("a", 100) + "\n"
	long := strings.Repeat(line, 50)
	chunks := ChunkMessage(long)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if len([]rune(c)) > SafeChunkLen {
			t.Fatalf("chunk too long: %d", len([]rune(c)))
		}
		total += strings.Count(c, "a")
	}
	if total != 5000 {
		t.Fatalf("lost content: %d", total)
	}

	giant := strings.Repeat("界", 4000)
	for _, c := range ChunkMessage(giant) {
		if len([]rune(c)) > SafeChunkLen {
			t.Fatalf("rune chunk too long: %d", len([]rune(c)))
		}
	}
}

type fakeSender struct {
	sent []*discordgo.MessageSend
	fail bool
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.fail {
		return nil, errors.New("gateway down")
	}
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: "m" + string(rune('0'+len(f.sent))), ChannelID: channelID}, nil
}

func TestSendAllowsOnlyListedMentions(t *testing.T) {
	f := &fakeSender{}
	msg, err := Send(f, "c1", NewMessage().Mention("42").Text(" approved"))
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m1" || len(f.sent) != 1 {
		t.Fatalf("sent = %d, first = %+v", len(f.sent), msg)
	}
	allowed := f.sent[0].AllowedMentions
	if len(allowed.Users) != 1 || allowed.Users[0] != "42" || len(allowed.Parse) != 0 {
		t.Fatalf("allowed mentions = %+v", allowed)
	}

	if _, err := Send(&fakeSender{fail: true}, "c1", NewMessage().Text("x")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Send(f, "", NewMessage().Text("x")); err == nil {
		t.Fatal("expected channel error")
	}
}

func TestWrapURLsNoEmbed(t *testing.T) {
	got := WrapURLsNoEmbed("see https://a.example/x. and <https://b.example>")
	want := "see <https://a.example/x>. and <https://b.example>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseUserRef(t *testing.T) {
	cases := map[string]string{"<@123>": "123", "<@!456>": "456", "789": "789"}
	for in, want := range cases {
		if got, ok := ParseUserRef(in); !ok || got != want {
			t.Errorf("ParseUserRef(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseUserRef("bob"); ok {
		t.Error("name accepted as user ID")
	}
}

func TestSlashCommandLine(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: CommandSurvey,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: SurveyArgsOption, Type: discordgo.ApplicationCommandOptionString, Value: " vote abc a "},
		},
	}
	if got := SlashCommandLine(data); got != "/survey vote abc a" {
		t.Fatalf("line = %q", got)
	}
}
