package chat

import "testing"

func TestKeyRoundtrip(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		chatID  string
	}{
		{"web uuid", "web", "3f2c9a10-6f2e-4f3a-9c1d-1a2b3c4d5e6f"},
		{"bridge address with colon-free id", "bridge", "4915112345678@c.example"},
		{"telegram numeric", "telegram", "123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Key(tt.channel, tt.chatID)
			ch, id := ParseKey(key)
			if ch != tt.channel || id != tt.chatID {
				t.Errorf("ParseKey(%q) = (%q, %q)", key, ch, id)
			}
		})
	}
}

func TestParseKeyChatIDWithColon(t *testing.T) {
	// Only the first separator splits; the chat ID may itself contain colons.
	ch, id := ParseKey("bridge:user:42")
	if ch != "bridge" || id != "user:42" {
		t.Errorf("got (%q, %q)", ch, id)
	}
}

func TestParseKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "web", ":u1", "web:"} {
		if ch, id := ParseKey(key); ch != "" || id != "" {
			t.Errorf("ParseKey(%q) = (%q, %q), want empty", key, ch, id)
		}
	}
}

func TestOriginForChannel(t *testing.T) {
	if OriginForChannel("web") != OriginWeb {
		t.Error("web channel should map to web origin")
	}
	if OriginForChannel("bridge") != OriginExternal {
		t.Error("bridge channel should map to external origin")
	}
	if OriginForChannel("whatever") != OriginExternal {
		t.Error("unknown channels default to external")
	}
}
