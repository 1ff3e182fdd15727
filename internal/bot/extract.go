package bot

import (
	"net/url"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/purell"
	"github.com/go-telegram/bot/models"
)

// urlFlags normalizes links so trivially different spellings of the same
// page (case, default port, fragment, query order) collide.
const urlFlags = purell.FlagsUsuallySafeGreedy |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery |
	purell.FlagRemoveDuplicateSlashes

// forwardKey returns the dedup key of a forwarded channel post: the post id
// inside its origin and the origin chat id. Forwards from users, hidden users
// or groups carry no stable post id and are ignored.
func forwardKey(m *models.Message) (messageID, senderID int64, ok bool) {
	if m == nil || m.ForwardOrigin == nil {
		return 0, 0, false
	}
	ch := m.ForwardOrigin.MessageOriginChannel
	if ch == nil || ch.MessageID == 0 {
		return 0, 0, false
	}
	return int64(ch.MessageID), ch.Chat.ID, true
}

// extractLinks returns the normalized, de-duplicated links of a message,
// from both text and caption entities, in order of appearance.
func extractLinks(m *models.Message) []string {
	if m == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(raw string) {
		u, ok := normalizeURL(raw)
		if ok && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, src := range []struct {
		text     string
		entities []models.MessageEntity
	}{
		{m.Text, m.Entities},
		{m.Caption, m.CaptionEntities},
	} {
		if len(src.entities) == 0 {
			continue
		}
		units := utf16.Encode([]rune(src.text))
		for _, e := range src.entities {
			switch e.Type {
			case models.MessageEntityTypeURL:
				add(entityText(units, e.Offset, e.Length))
			case models.MessageEntityTypeTextLink:
				add(e.URL)
			}
		}
	}
	return out
}

// entityText slices text by Telegram entity offsets, which count UTF-16 code
// units.
func entityText(units []uint16, offset, length int) string {
	if offset < 0 || length <= 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}

// normalizeURL canonicalizes raw. Links without a scheme ("example.com/x")
// are treated as http. Non-web schemes are rejected.
func normalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return "", false
	}
	return purell.NormalizeURL(u, urlFlags), true
}

// parseCommand returns the lower-cased command name of text ("/help" or
// "/help@slowpoke_bot args"). Commands addressed to another bot are not ours.
func parseCommand(text, botName string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text)[0][1:]
	name, target, addressed := strings.Cut(word, "@")
	if addressed && botName != "" && !strings.EqualFold(target, strings.TrimPrefix(botName, "@")) {
		return "", false
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}
