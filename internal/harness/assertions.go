package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/translate"
)

// AssertionError is returned when an expectation fails. It carries the
// statement text to help debug the failure.
type AssertionError struct {
	Step     string
	Check    string
	Expected string
	Actual   string
	Text     string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "step %s: %s failed\n", e.Step, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Text != "" {
		fmt.Fprintf(&buf, "\nStatement:\n%s\n", e.Text)
	}
	return buf.String()
}

// checkStatement evaluates every expectation against a compiled statement
// and returns the failures.
func checkStatement(step string, exp Expect, stmt *translate.Statement) []error {
	fail := func(check, expected, actual string) error {
		return &AssertionError{Step: step, Check: check, Expected: expected, Actual: actual, Text: stmt.Text}
	}

	var errs []error
	if exp.Error != "" {
		return []error{fail("error", exp.Error, "statement compiled")}
	}
	if exp.Shape != "" && exp.Shape != stmt.Shape.Kind.String() {
		errs = append(errs, fail("shape", exp.Shape, stmt.Shape.Kind.String()))
	}
	for _, s := range exp.Contains {
		if !strings.Contains(stmt.Text, s) {
			errs = append(errs, fail("contains", fmt.Sprintf("%q", s), "not found"))
		}
	}
	for _, s := range exp.NotContains {
		if strings.Contains(stmt.Text, s) {
			errs = append(errs, fail("not_contains", fmt.Sprintf("no %q", s), "found"))
		}
	}
	if err := checkOrder(stmt.Text, exp.Order); err != "" {
		errs = append(errs, fail("order", strings.Join(exp.Order, " < "), err))
	}
	if len(exp.Params) > 0 {
		actual := stmt.ParamMap()
		for name, want := range exp.Params {
			got, ok := actual[name]
			switch {
			case !ok:
				errs = append(errs, fail("params", fmt.Sprintf("$%s = %v", name, want), "missing"))
			case !reflect.DeepEqual(request.Normalize(want), got):
				errs = append(errs, fail("params", fmt.Sprintf("$%s = %#v", name, request.Normalize(want)), fmt.Sprintf("%#v", got)))
			}
		}
	}
	if exp.Warnings != nil && *exp.Warnings != len(stmt.Warnings) {
		errs = append(errs, fail("warnings", fmt.Sprintf("%d", *exp.Warnings), fmt.Sprintf("%d %q", len(stmt.Warnings), stmt.Warnings)))
	}
	if len(exp.Events) > 0 {
		if err := checkEvents(exp.Events, stmt.Events); err != "" {
			errs = append(errs, fail("events", formatExpectedEvents(exp.Events), err))
		}
	}
	return errs
}

// checkCompileError matches a compile failure against the expected code.
func checkCompileError(step string, exp Expect, err error) error {
	code := errorCode(err)
	switch {
	case exp.Error == "":
		return &AssertionError{Step: step, Check: "compile", Expected: "statement", Actual: err.Error()}
	case code != exp.Error:
		return &AssertionError{Step: step, Check: "error", Expected: exp.Error, Actual: err.Error()}
	}
	return nil
}

// checkOrder verifies that each needle occurs after the previous one.
// Occurrences need not be adjacent.
func checkOrder(text string, needles []string) string {
	pos := 0
	for _, n := range needles {
		i := strings.Index(text[pos:], n)
		if i < 0 {
			return fmt.Sprintf("%q not found after offset %d", n, pos)
		}
		pos += i + len(n)
	}
	return ""
}

// checkEvents requires the events to match exactly, in order.
func checkEvents(want []EventExpect, got []translate.Event) string {
	if len(want) != len(got) {
		return fmt.Sprintf("%d events %s", len(got), formatEvents(got))
	}
	for i, w := range want {
		g := got[i]
		if w.Type != g.Type || w.Operation != string(g.Operation) || w.Relationship != g.Relationship {
			return fmt.Sprintf("event %d is %s", i, formatEvents(got[i:i+1]))
		}
	}
	return ""
}

func formatExpectedEvents(events []EventExpect) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = eventString(e.Type, e.Operation, e.Relationship)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatEvents(events []translate.Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = eventString(e.Type, string(e.Operation), e.Relationship)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func eventString(typ, op, rel string) string {
	if rel != "" {
		return fmt.Sprintf("%s %s.%s", op, typ, rel)
	}
	return fmt.Sprintf("%s %s", op, typ)
}
