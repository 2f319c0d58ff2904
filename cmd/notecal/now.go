package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var nowParser = func() *when.Parser {
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return p
}()

// nowFunc returns the clock commands use. An empty value is the wall clock;
// anything else is pinned: RFC 3339 first, then natural language relative to
// the wall clock at startup.
func nowFunc(value string) (func() time.Time, error) {
	if value == "" {
		return time.Now, nil
	}
	t, err := parseNow(value, time.Now())
	if err != nil {
		return nil, err
	}
	return func() time.Time { return t }, nil
}

func parseNow(value string, base time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	result, err := nowParser.Parse(value, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --now %q: %w", value, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("parse --now %q: no date or time found", value)
	}
	return result.Time, nil
}
