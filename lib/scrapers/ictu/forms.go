package ictu

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// formSnapshot is the resubmittable state of a server-rendered form: every
// named field in document order with its resolved value, plus the form's
// action attribute.
type formSnapshot struct {
	action string
	names  []string
	values map[string]string
}

type formOptions struct {
	// overrides win over whatever value the page carries, keyed by field
	// name. For selects the override only applies when it matches an
	// existing option value.
	overrides map[string]string
	// submitID names the submit control being invoked; other submit inputs
	// are dropped so the server does not run unintended actions. Empty
	// keeps every submit control (forms with a single unambiguous submit).
	submitID string
}

// snapshotForm collects input/select/textarea fields of the identified form
// into an ordered name→value snapshot.
func snapshotForm(doc *goquery.Document, formID string, opts formOptions) (*formSnapshot, error) {
	form := doc.Find("form#" + formID).First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("form %q not found", formID)
	}

	snap := &formSnapshot{
		action: form.AttrOr("action", ""),
		values: map[string]string{},
	}

	form.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
		name := el.AttrOr("name", "")
		if name == "" {
			return
		}

		value, hasOverride := "", false
		if opts.overrides != nil {
			value, hasOverride = opts.overrides[name]
		}

		switch goquery.NodeName(el) {
		case "input":
			if !hasOverride {
				value = el.AttrOr("value", "")
			}
			switch strings.ToLower(el.AttrOr("type", "")) {
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); !checked {
					return
				}
			case "submit":
				if opts.submitID != "" && el.AttrOr("id", "") != opts.submitID {
					return
				}
			}
		case "select":
			value = resolveSelect(el, value, hasOverride)
		case "textarea":
			if !hasOverride {
				value = el.Text()
			}
		}

		snap.set(name, value)
	})

	return snap, nil
}

// resolveSelect picks a select's submitted value: a matching override, else
// the option marked selected, else the first option.
func resolveSelect(el *goquery.Selection, override string, hasOverride bool) string {
	options := el.Find("option")
	if hasOverride {
		match := false
		options.EachWithBreak(func(_ int, opt *goquery.Selection) bool {
			if opt.AttrOr("value", "") == override {
				match = true
				return false
			}
			return true
		})
		if match {
			return override
		}
	}

	selected := options.Filter("[selected]").First()
	if selected.Length() > 0 {
		return selected.AttrOr("value", "")
	}
	return options.First().AttrOr("value", "")
}

func (s *formSnapshot) set(name, value string) {
	if _, seen := s.values[name]; !seen {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// formData renders the snapshot for a form-encoded POST.
func (s *formSnapshot) formData() map[string]string {
	data := make(map[string]string, len(s.names))
	for _, name := range s.names {
		data[name] = s.values[name]
	}
	return data
}
