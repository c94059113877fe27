package login

// Special formSubmitUrl values accepted without URL parsing
const (
	FormSubmitAny        = "."
	FormSubmitJavascript = "javascript:"
)

// Record is a single saved credential. Timestamps are milliseconds since the
// Unix epoch. An empty HTTPRealm or FormSubmitURL means the field is unset.
type Record struct {
	ID            string `json:"id"`
	Hostname      string `json:"hostname"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password"`
	HTTPRealm     string `json:"httpRealm,omitempty"`
	FormSubmitURL string `json:"formSubmitUrl,omitempty"`
	UsernameField string `json:"usernameField,omitempty"`
	PasswordField string `json:"passwordField,omitempty"`

	TimesUsed           int64 `json:"timesUsed"`
	TimeCreated         int64 `json:"timeCreated"`
	TimeLastUsed        int64 `json:"timeLastUsed"`
	TimePasswordChanged int64 `json:"timePasswordChanged"`
}

// Target returns the populated httpRealm-or-formSubmitUrl value
func (r *Record) Target() string {
	if r.FormSubmitURL != "" {
		return r.FormSubmitURL
	}
	return r.HTTPRealm
}

// SameTarget reports whether r and other share hostname and target. The
// target comparison uses whichever of formSubmitUrl/httpRealm r populates.
func (r *Record) SameTarget(other *Record) bool {
	if r.Hostname != other.Hostname {
		return false
	}
	if r.FormSubmitURL != "" {
		return r.FormSubmitURL == other.FormSubmitURL
	}
	return r.HTTPRealm != "" && r.HTTPRealm == other.HTTPRealm
}

// IsDuplicateOf reports whether r and other collide on the
// (hostname, username, target) triple.
func (r *Record) IsDuplicateOf(other *Record) bool {
	return r.Username == other.Username && r.SameTarget(other)
}
