package manifest

import "fmt"

// Rule is one named static check. Apply must not modify the manifest.
type Rule struct {
	ID    string
	Apply func(*Manifest) error
}

// check runs r. A failure that is not already a *Error is reported as a
// validation error under r.ID.
func (r Rule) check(m *Manifest) error {
	if r.Apply == nil {
		return newError(KindInternal, "MAN-INTERNAL-001", fmt.Sprintf("rule %q has no check", r.ID))
	}
	err := r.Apply(m)
	if err == nil {
		return nil
	}
	if _, ok := asError(err); ok {
		return err
	}
	return wrapError(KindValidation, r.ID, err.Error(), err)
}

func runRules(m *Manifest, rules []Rule, firstOnly bool) []error {
	var errs []error
	for _, r := range rules {
		if err := r.check(m); err != nil {
			errs = append(errs, err)
			if firstOnly {
				break
			}
		}
	}
	return errs
}

// ValidateRules returns the first failing rule's error, in rule order.
func ValidateRules(m *Manifest, rules []Rule) error {
	if errs := runRules(m, rules, true); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateRulesAll returns every failure, in rule order.
func ValidateRulesAll(m *Manifest, rules []Rule) []error {
	return runRules(m, rules, false)
}
