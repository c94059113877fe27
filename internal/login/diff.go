package login

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maskedPassword = "********"

// Render formats r as one "field: value" line per field. The password is
// masked unless showPassword is set.
func Render(r *Record, showPassword bool) string {
	password := maskedPassword
	if showPassword {
		password = r.Password
	}

	var b strings.Builder
	fmt.Fprintf(&b, "hostname: %s\n", r.Hostname)
	fmt.Fprintf(&b, "username: %s\n", r.Username)
	fmt.Fprintf(&b, "password: %s\n", password)
	if r.HTTPRealm != "" {
		fmt.Fprintf(&b, "httpRealm: %s\n", r.HTTPRealm)
	}
	if r.FormSubmitURL != "" {
		fmt.Fprintf(&b, "formSubmitUrl: %s\n", r.FormSubmitURL)
	}
	if r.UsernameField != "" {
		fmt.Fprintf(&b, "usernameField: %s\n", r.UsernameField)
	}
	if r.PasswordField != "" {
		fmt.Fprintf(&b, "passwordField: %s\n", r.PasswordField)
	}
	return b.String()
}

// Diff returns a unified diff between the rendered forms of a and b, or ""
// when they render the same. Passwords stay masked; a password change shows
// up as a changed marker line.
func Diff(a, b *Record) string {
	left, right := Render(a, false), Render(b, false)
	if a.Password != b.Password {
		right = strings.Replace(right, "password: "+maskedPassword, "password: "+maskedPassword+" (differs)", 1)
	}
	if left == right {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for field-level output
	x, y, lineArray := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffMain(x, y, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(left, diffs)
	if len(patches) == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- a/%s\n", a.ID)
	fmt.Fprintf(&out, "+++ b/%s\n", b.ID)
	out.WriteString(dmp.PatchToText(patches))
	return out.String()
}
