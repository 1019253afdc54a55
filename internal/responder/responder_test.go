package responder

import (
	"testing"

	"github.com/deskrelay/deskrelay/internal/config"
)

func testConfig() config.ResponderConfig {
	return config.ResponderConfig{
		Rules: []config.ResponderRule{
			{Keywords: []string{"hello", "hi"}, Reply: "greeting"},
			{Keywords: []string{"help"}, Reply: "help text"},
			{Keywords: []string{"pricing", "price"}, Reply: "pricing text"},
		},
		EscalationTriggers: []string{"human support", "agent", "real person"},
		EscalationReply:    "escalating",
		FallbackReply:      "fallback",
	}
}

func TestRespond(t *testing.T) {
	r := New(testConfig())

	tests := []struct {
		name         string
		text         string
		wantReply    string
		wantEscalate bool
	}{
		{
			name:      "keyword match",
			text:      "hello there",
			wantReply: "greeting",
		},
		{
			name:      "case insensitive",
			text:      "PRICING please",
			wantReply: "pricing text",
		},
		{
			name:      "substring match",
			text:      "say hello!",
			wantReply: "greeting",
		},
		{
			name:      "no match falls back",
			text:      "what is the weather",
			wantReply: "fallback",
		},
		{
			name:         "escalation trigger",
			text:         "I need HUMAN SUPPORT now",
			wantReply:    "escalating",
			wantEscalate: true,
		},
		{
			name:         "escalation beats keyword rules",
			text:         "hello, get me an agent",
			wantReply:    "escalating",
			wantEscalate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, escalate := r.Respond(tt.text)
			if reply != tt.wantReply {
				t.Errorf("Respond(%q) reply = %q, want %q", tt.text, reply, tt.wantReply)
			}
			if escalate != tt.wantEscalate {
				t.Errorf("Respond(%q) escalate = %v, want %v", tt.text, escalate, tt.wantEscalate)
			}
		})
	}
}

func TestRespondRuleOrder(t *testing.T) {
	// "hello, can you help" matches both the greeting and help rules.
	// The first rule in list order wins.
	r := New(testConfig())

	reply, escalate := r.Respond("hello, can you help")
	if escalate {
		t.Fatal("unexpected escalation")
	}
	if reply != "greeting" {
		t.Errorf("reply = %q, want first rule to win", reply)
	}
}

func TestRespondDefaults(t *testing.T) {
	// An empty config falls back to the built-in rule set.
	r := New(config.ResponderConfig{})

	reply, escalate := r.Respond("talk to human please")
	if !escalate {
		t.Fatal("default escalation triggers not applied")
	}
	if reply == "" {
		t.Error("default escalation reply is empty")
	}

	reply, escalate = r.Respond("zzzzz")
	if escalate {
		t.Fatal("unexpected escalation for fallback text")
	}
	if reply == "" {
		t.Error("default fallback reply is empty")
	}
}
