package heuristic

import "regexp"

// Rule scores one fraud signal in a piece of text. A rule that does not fire
// returns 0 and false.
type Rule interface {
	// Name is the indicator label shown to the user when the rule fires.
	Name() string
	Description() string
	Evaluate(text string) (int, bool)
}

// PatternRule fires when its regular expression matches the text.
type PatternRule struct {
	Label     string
	Desc      string
	Pattern   *regexp.Regexp
	RiskScore int
}

// NewPatternRule compiles pattern case-insensitively. It panics on an invalid
// pattern, so it is meant for package-level rule tables.
func NewPatternRule(label, desc, pattern string, score int) *PatternRule {
	return &PatternRule{
		Label:     label,
		Desc:      desc,
		Pattern:   regexp.MustCompile(`(?i)` + pattern),
		RiskScore: score,
	}
}

func (r *PatternRule) Name() string {
	return r.Label
}

func (r *PatternRule) Description() string {
	return r.Desc
}

func (r *PatternRule) Evaluate(text string) (int, bool) {
	if r.Pattern.MatchString(text) {
		return r.RiskScore, true
	}
	return 0, false
}

// DefaultRules returns the built-in keyword rules, evaluated in order.
func DefaultRules() []Rule {
	return []Rule{
		NewPatternRule("Urgent language", "Pressures the reader to act at once.",
			`\b(urgent|urgently|immediately|act now|right away|asap)\b`, 20),
		NewPatternRule("Account verification request", "Asks the reader to verify or confirm an account.",
			`\b(verify|confirm|validate|update)\b.{0,40}\b(account|identity|information|details|billing)\b`, 20),
		NewPatternRule("Account suspension threat", "Threatens to suspend, lock or close an account.",
			`\b(suspend(ed)?|suspension|deactivat\w*|locked|terminated|will be closed)\b`, 20),
		NewPatternRule("Credential request", "Asks for passwords, PINs or security codes.",
			`\b(password|passcode|pin code|security code|social security|ssn|one[- ]time code)\b`, 25),
		NewPatternRule("Unusual payment method", "Requests payment in crypto, gift cards or wire transfers.",
			`\b(bitcoin|btc|crypto(currency)?|gift cards?|wire transfer|western union|moneygram)\b`, 25),
		NewPatternRule("Prize or lottery claim", "Announces an unexpected prize or winnings.",
			`\b(congratulations|you('ve| have)? won|winner|lottery|jackpot|claim your (prize|reward))\b`, 20),
		NewPatternRule("Suspicious call to action", "Pushes the reader to click a link or open an attachment.",
			`\b(click here|click (on )?the link|open the attachment|log ?in here|follow this link)\b`, 20),
		NewPatternRule("Advance-fee scheme", "Matches the inheritance or foreign official pattern.",
			`\b(prince|inheritance|beneficiary|next of kin|unclaimed funds|transfer fee)\b`, 25),
		NewPatternRule("Artificial time pressure", "Imposes a deadline to force a quick decision.",
			`\b(limited time|last chance|expires? (today|soon|tonight)|within \d+ (hours?|days?)|final notice)\b`, 20),
	}
}
