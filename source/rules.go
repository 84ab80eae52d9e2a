package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSubreddit is returned for names Reddit would reject.
var ErrInvalidSubreddit = errors.New("invalid subreddit name")

// subredditPattern matches Reddit's community name rules.
var subredditPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}$`)

// NormalizeSubreddit strips whitespace, a leading "/r/" or "r/" and trailing slashes.
// Case is preserved for display; comparison is case-insensitive.
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) > 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	return strings.TrimSuffix(name, "/")
}

// ValidateSubreddit reports whether the normalized name is acceptable.
func ValidateSubreddit(name string) error {
	if !subredditPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSubreddit, name)
	}
	return nil
}
