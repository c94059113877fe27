package login

import (
	"net/url"
	"strings"
)

// CheckWellFormed runs every check except the duplicate scan
func CheckWellFormed(r *Record) error {
	if r.Hostname == "" {
		return invalid(EmptyOrigin)
	}
	if r.Password == "" {
		return invalid(EmptyPassword)
	}
	if r.HTTPRealm != "" && r.FormSubmitURL != "" {
		return invalid(BothTargets)
	}
	if r.HTTPRealm == "" && r.FormSubmitURL == "" {
		return invalid(NoTarget)
	}

	fields := []struct {
		name      string
		value     string
		multiline bool
	}{
		{"formSubmitUrl", r.FormSubmitURL, false},
		{"httpRealm", r.HTTPRealm, false},
		{"hostname", r.Hostname, false},
		{"usernameField", r.UsernameField, false},
		{"passwordField", r.PasswordField, false},
		{"username", r.Username, true},
		{"password", r.Password, true},
	}
	for _, f := range fields {
		if strings.ContainsRune(f.value, 0) {
			return illegal(f.name, "contains Nul")
		}
		if !f.multiline && strings.ContainsAny(f.value, "\r\n") {
			return illegal(f.name, "contains newline")
		}
	}

	if r.UsernameField == "." {
		return illegal("usernameField", "is a period")
	}

	if !isOrigin(r.Hostname) {
		return illegal("hostname", "is malformed")
	}

	switch r.FormSubmitURL {
	case "", FormSubmitAny, FormSubmitJavascript:
	default:
		if !isOrigin(r.FormSubmitURL) {
			return illegal("formSubmitUrl", "is malformed")
		}
	}

	return nil
}

// Validate checks r for well-formedness and uniqueness against existing,
// ignoring the record whose id equals excludingID.
func Validate(r *Record, existing []Record, excludingID string) error {
	if err := CheckWellFormed(r); err != nil {
		return err
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == excludingID {
			continue
		}
		if r.IsDuplicateOf(other) {
			return invalid(DuplicateLogin)
		}
	}
	return nil
}

// PotentialDupesIgnoringUsername returns the records sharing r's hostname and
// target regardless of username, excluding r itself.
func PotentialDupesIgnoringUsername(r *Record, existing []Record) []Record {
	var dupes []Record
	for i := range existing {
		other := existing[i]
		if r.ID != "" && other.ID == r.ID {
			continue
		}
		if r.SameTarget(&other) {
			dupes = append(dupes, other)
		}
	}
	return dupes
}

// FindLoginToUpdate picks the record an incoming save should overwrite: one
// with the same target and username, else one with the same target and a
// blank username. It returns nil when the save is a new login.
func FindLoginToUpdate(r *Record, existing []Record) *Record {
	var blank *Record
	for i := range existing {
		other := &existing[i]
		if !r.SameTarget(other) {
			continue
		}
		if other.Username == r.Username {
			found := *other
			return &found
		}
		if other.Username == "" && blank == nil {
			found := *other
			blank = &found
		}
	}
	return blank
}

func isOrigin(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	if u.Scheme == "file" {
		return true
	}
	return u.Host != "" || u.Opaque != ""
}
