package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskboard/internal/model"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2})(?::\d{2})?$`)
)

// parseDue accepts YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339 (stored as UTC
// date + time).
func parseDue(s string) (*model.DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty due date")
	}
	if reDateOnly.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, fmt.Errorf("invalid due date %q: %w", s, err)
		}
		return &model.DateTime{Date: s}, nil
	}
	if m := reDateTime.FindStringSubmatch(s); m != nil {
		hm := m[2]
		return &model.DateTime{Date: m[1], Time: &hm}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		ts = ts.UTC()
		hm := ts.Format("15:04")
		return &model.DateTime{Date: ts.Format("2006-01-02"), Time: &hm}, nil
	}
	return nil, fmt.Errorf("invalid due date %q (expected YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)", s)
}
