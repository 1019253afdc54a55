package telegram

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs []string
	}{
		{
			name:    "simple command",
			text:    "/register",
			wantCmd: "register",
		},
		{
			name:     "command with argument",
			text:     "/take web:u1",
			wantCmd:  "take",
			wantArgs: []string{"web:u1"},
		},
		{
			name:     "extra whitespace",
			text:     "/take   web:u1   extra",
			wantCmd:  "take",
			wantArgs: []string{"web:u1", "extra"},
		},
		{
			name:    "botname suffix stripped",
			text:    "/chats@deskrelay_bot",
			wantCmd: "chats",
		},
		{
			name:    "uppercase normalized",
			text:    "/CHATS",
			wantCmd: "chats",
		},
		{
			name: "plain text is not a command",
			text: "hello user",
		},
		{
			name: "lone slash",
			text: "/",
		},
		{
			name: "empty",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := parseCommand(tt.text)
			if cmd != tt.wantCmd {
				t.Errorf("command = %q, want %q", cmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestParseChatID(t *testing.T) {
	id, err := parseChatID("-100123456")
	if err != nil || id != -100123456 {
		t.Errorf("parseChatID = %d, %v", id, err)
	}
	if _, err := parseChatID("not-a-number"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}
