package confidence

import "strings"

// GeneralIntent is reported when no intent keyword matches.
const GeneralIntent = "general"

// Intent is one entry of the intent table.
type Intent struct {
	Name             string
	Keywords         []string
	BaseConfidence   float64
	RequiresTenantKB bool
}

// intents is ordered; earlier entries win ties.
var intents = []Intent{
	{"billing", []string{"invoice", "payment", "charge", "refund", "bill", "price", "cost", "renew", "cancel subscription"}, 0.85, true},
	{"email", []string{"email", "mail", "smtp", "imap", "inbox", "spam", "sending", "receiving", "outlook", "thunderbird"}, 0.80, false},
	{"website_error", []string{"500 error", "503", "404", "website down", "site not loading", "internal server error", "white screen"}, 0.75, false},
	{"website_slow", []string{"slow", "loading time", "performance", "speed", "timeout"}, 0.70, false},
	{"dns", []string{"dns", "domain", "nameserver", "propagation", "mx record", "a record", "cname", "pointing"}, 0.80, false},
	{"ssl", []string{"ssl", "https", "certificate", "secure", "let's encrypt", "not secure", "expired cert"}, 0.85, false},
	{"database", []string{"database", "mysql", "sql", "phpmyadmin", "connection error", "db error"}, 0.75, false},
	{"ftp", []string{"ftp", "sftp", "filezilla", "upload", "file manager", "connection refused"}, 0.80, false},
	{"cpanel", []string{"cpanel", "control panel", "whm", "can't login", "cpanel access"}, 0.75, false},
	{"suspension", []string{"suspended", "suspension", "disabled", "blocked", "account locked", "terminated"}, 0.70, true},
	{"upgrade", []string{"upgrade", "plan", "more resources", "more space", "bandwidth limit", "disk full"}, 0.75, true},
	{"malware", []string{"hacked", "malware", "virus", "compromised", "phishing", "spam sending"}, 0.60, false},
	{"migration", []string{"migrate", "transfer", "move", "backup", "restore", "import"}, 0.65, true},
}

// Intents returns a copy of the intent table in declaration order.
func Intents() []Intent {
	out := make([]Intent, len(intents))
	copy(out, intents)
	return out
}

// Detection is the outcome of intent detection.
type Detection struct {
	Intent           string
	Confidence       float64
	RequiresTenantKB bool
	Hits             int
}

// DetectIntent picks the intent with the most keyword substring hits in the
// lowercased text and boosts its confidence for multiple hits.
func DetectIntent(text string) Detection {
	lower := strings.ToLower(text)
	best := Detection{Intent: GeneralIntent, Confidence: 0.5}

	for _, in := range intents {
		hits := 0
		for _, kw := range in.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > best.Hits {
			best = Detection{Intent: in.Name, Confidence: in.BaseConfidence, RequiresTenantKB: in.RequiresTenantKB, Hits: hits}
		}
	}

	switch {
	case best.Hits >= 3:
		best.Confidence = min(best.Confidence+0.10, 0.95)
	case best.Hits >= 2:
		best.Confidence = min(best.Confidence+0.05, 0.90)
	}
	return best
}
