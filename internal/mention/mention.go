// Package mention extracts and validates @username references in message
// text. Extraction is pure so it can be tested without storage; validation
// is a separate pass so callers decide the matching policy.
package mention

import (
	"context"
	"regexp"
)

// UsernameChecker is the single storage capability validation needs.
// *sqlite.UserRepo satisfies it.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

var mentionPattern = regexp.MustCompile(`@([\w-]+)`)

// Extract returns candidate usernames referenced as @name in text, each at
// most once, in first-occurrence order. Matching is case-sensitive.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Validate filters candidates down to usernames that exist in storage,
// preserving order. Unknown names are dropped silently; a message saying
// "@nobody" is legal, just not a mention.
func Validate(ctx context.Context, checker UsernameChecker, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var valid []string
	for _, name := range candidates {
		exists, err := checker.UsernameExists(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			valid = append(valid, name)
		}
	}
	return valid, nil
}
