// Package responder implements the keyword auto-responder that answers
// conversations while no human agent owns them.
package responder

import (
	"strings"

	"github.com/deskrelay/deskrelay/internal/config"
)

// Rule maps a keyword set to a canned reply.
type Rule struct {
	Keywords []string
	Reply    string
}

// Responder is a stateless text → reply mapper.
type Responder struct {
	rules           []Rule
	triggers        []string // escalation trigger phrases, lower-cased
	escalationReply string
	fallback        string
}

// New builds a Responder from config, falling back to the built-in defaults
// for any part left empty.
func New(cfg config.ResponderConfig) *Responder {
	def := config.Default().Responder

	rulesCfg := cfg.Rules
	if len(rulesCfg) == 0 {
		rulesCfg = def.Rules
	}
	rules := make([]Rule, 0, len(rulesCfg))
	for _, rc := range rulesCfg {
		kws := make([]string, 0, len(rc.Keywords))
		for _, k := range rc.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) > 0 && rc.Reply != "" {
			rules = append(rules, Rule{Keywords: kws, Reply: rc.Reply})
		}
	}

	triggersCfg := cfg.EscalationTriggers
	if len(triggersCfg) == 0 {
		triggersCfg = def.EscalationTriggers
	}
	triggers := make([]string, 0, len(triggersCfg))
	for _, t := range triggersCfg {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			triggers = append(triggers, t)
		}
	}

	escalationReply := cfg.EscalationReply
	if escalationReply == "" {
		escalationReply = def.EscalationReply
	}
	fallback := cfg.FallbackReply
	if fallback == "" {
		fallback = def.FallbackReply
	}

	return &Responder{
		rules:           rules,
		triggers:        triggers,
		escalationReply: escalationReply,
		fallback:        fallback,
	}
}

// Respond maps a user message to a reply. escalate is true when the text
// matched an escalation trigger phrase; the caller flags the session and
// notifies agents. Matching is case-insensitive substring; the first matching
// rule in list order wins, with escalation triggers checked first.
func (r *Responder) Respond(text string) (reply string, escalate bool) {
	normalized := strings.ToLower(text)

	for _, trigger := range r.triggers {
		if strings.Contains(normalized, trigger) {
			return r.escalationReply, true
		}
	}

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, kw) {
				return rule.Reply, false
			}
		}
	}

	return r.fallback, false
}
