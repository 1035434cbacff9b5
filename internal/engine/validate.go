package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/flocknet/flock/internal/errs"
)

const (
	// AccountNameMin and AccountNameMax bound account names; the column
	// is varchar(16).
	AccountNameMin = 3
	AccountNameMax = 16

	// PostBodyMax and CommentBodyMax are rune limits, not bytes
	PostBodyMax    = 5000
	CommentBodyMax = 2000

	// MediaURLMax matches the column width
	MediaURLMax = 1024
)

var accountNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidateAccountName checks the name format shared by registration and
// every by-name lookup
func ValidateAccountName(name string) error {
	if len(name) < AccountNameMin || len(name) > AccountNameMax {
		return errs.Validationf("account name must be %d to %d characters", AccountNameMin, AccountNameMax)
	}
	if !accountNameRe.MatchString(name) {
		return errs.Validationf("account name must start with a letter and contain only lowercase letters, digits and hyphens")
	}
	return nil
}

// ValidatePostBody checks a post body before it is stored
func ValidatePostBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return errs.Validationf("post body is empty")
	}
	if utf8.RuneCountInString(body) > PostBodyMax {
		return errs.Validationf("post body exceeds %d characters", PostBodyMax)
	}
	return nil
}

// ValidateCommentBody checks a comment body before it is stored
func ValidateCommentBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return errs.Validationf("comment text is empty")
	}
	if utf8.RuneCountInString(body) > CommentBodyMax {
		return errs.Validationf("comment text exceeds %d characters", CommentBodyMax)
	}
	return nil
}

// ValidateMediaURL checks an optional media attachment URL
func ValidateMediaURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > MediaURLMax {
		return errs.Validationf("media url exceeds %d bytes", MediaURLMax)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return errs.Validationf("media url must be http or https")
	}
	return nil
}

// clampPage normalizes a 1-based page number
func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// clampPageSize bounds a requested page size to [1, max], substituting
// def when the request left it unset
func clampPageSize(size, def, max int) int {
	if size < 1 {
		return def
	}
	if size > max {
		return max
	}
	return size
}
