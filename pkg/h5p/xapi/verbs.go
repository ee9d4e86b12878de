package xapi

// VerbPrefix is the id prefix of every whitelisted verb.
const VerbPrefix = "http://adlnet.gov/expapi/verbs/"

// Verbs used by the runtime and the built-in content types.
const (
	VerbAnswered    = "answered"
	VerbAttempted   = "attempted"
	VerbCompleted   = "completed"
	VerbInteracted  = "interacted"
	VerbProgressed  = "progressed"
	VerbExperienced = "experienced"
)

// AllowedVerbs are the short verb names SetVerb accepts.
var AllowedVerbs = []string{
	"answered",
	"asked",
	"attempted",
	"attended",
	"commented",
	"completed",
	"exited",
	"experienced",
	"failed",
	"imported",
	"initialized",
	"interacted",
	"launched",
	"mastered",
	"passed",
	"preferred",
	"progressed",
	"registered",
	"responded",
	"resumed",
	"scored",
	"shared",
	"suspended",
	"terminated",
	"voided",

	// Custom verbs used by the platform action bar.
	"downloaded",
	"copied",
	"accessed-reuse",
	"accessed-embed",
	"accessed-copyright",
}

var allowedVerbSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedVerbs))
	for _, v := range AllowedVerbs {
		m[v] = struct{}{}
	}
	return m
}()

// IsAllowedVerb reports whether verb is in AllowedVerbs.
func IsAllowedVerb(verb string) bool {
	_, ok := allowedVerbSet[verb]
	return ok
}
