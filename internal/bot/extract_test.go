package bot

import (
	"reflect"
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestForwardKey(t *testing.T) {
	cases := []struct {
		name   string
		msg    *models.Message
		wantOK bool
		msgID  int64
		sender int64
	}{
		{name: "nil", msg: nil},
		{name: "not forwarded", msg: &models.Message{ID: 1}},
		{
			name: "from user",
			msg: &models.Message{ForwardOrigin: &models.MessageOrigin{
				MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 9}},
			}},
		},
		{
			name: "channel post",
			msg: &models.Message{ForwardOrigin: &models.MessageOrigin{
				MessageOriginChannel: &models.MessageOriginChannel{Chat: models.Chat{ID: -1007}, MessageID: 100},
			}},
			wantOK: true, msgID: 100, sender: -1007,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, s, ok := forwardKey(tc.msg)
			if ok != tc.wantOK || m != tc.msgID || s != tc.sender {
				t.Fatalf("forwardKey = (%d, %d, %v); want (%d, %d, %v)", m, s, ok, tc.msgID, tc.sender, tc.wantOK)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	// "привет " is 7 UTF-16 units; the emoji takes 2.
	text := "привет example.com/a 😀 https://Example.com:443/b/?y=2&x=1#top"
	msg := &models.Message{
		Text: text,
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeURL, Offset: 7, Length: 13},
			{Type: models.MessageEntityTypeURL, Offset: 24, Length: 38},
			{Type: models.MessageEntityTypeBold, Offset: 0, Length: 6},
		},
		Caption: "see here",
		CaptionEntities: []models.MessageEntity{
			{Type: models.MessageEntityTypeTextLink, Offset: 4, Length: 4, URL: "http://example.com/a"},
		},
	}
	got := extractLinks(msg)
	want := []string{"http://example.com/a", "https://example.com/b?x=1&y=2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extractLinks = %q; want %q", got, want)
	}
}

func TestExtractLinks_BadOffsets(t *testing.T) {
	msg := &models.Message{
		Text:     "short",
		Entities: []models.MessageEntity{{Type: models.MessageEntityTypeURL, Offset: 3, Length: 50}},
	}
	if got := extractLinks(msg); len(got) != 0 {
		t.Fatalf("out of range entity produced %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"HTTP://WWW.Example.com:80/a/../b/": {"http://www.example.com/b", true},
		"example.com/x?b=1&a=2":             {"http://example.com/x?a=2&b=1", true},
		"ftp://example.com/file":            {"", false},
		"   ":                               {"", false},
		"http://":                           {"", false},
	}
	for in, tc := range cases {
		got, ok := normalizeURL(in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("normalizeURL(%q) = (%q, %v); want (%q, %v)", in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		name string
		ok   bool
	}{
		{"/help", "help", true},
		{"/SetImage extra args", "setimage", true},
		{"/stats@slowpoke_bot", "stats", true},
		{"/stats@Slowpoke_Bot", "stats", true},
		{"/stats@other_bot", "", false},
		{"hello /help", "", false},
		{"/", "", false},
		{"/@slowpoke_bot", "", false},
	}
	for _, tc := range cases {
		name, ok := parseCommand(tc.text, "@slowpoke_bot")
		if name != tc.name || ok != tc.ok {
			t.Errorf("parseCommand(%q) = (%q, %v); want (%q, %v)", tc.text, name, ok, tc.name, tc.ok)
		}
	}
}
