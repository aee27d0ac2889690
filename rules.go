package makeval

// RuleBody is one target's prerequisite lists plus its recipe lines.
// Recipe lines stay unexpanded; expanding them is the execution engine's
// business, not ours.
type RuleBody struct {
	Prereqs   []string
	OrderOnly []string
	Recipe    []Expr
}

// TargetRules is everything registered for one target. Single-colon
// targets have exactly one body that later rules merge into; double-colon
// targets accumulate an independent body per rule.
type TargetRules struct {
	Target      string
	DoubleColon bool
	Bodies      []*RuleBody
}

// RuleSet is the rule registry the downstream execution engine consumes.
type RuleSet struct {
	targets map[string]*TargetRules
	order   []string
}

func NewRuleSet() *RuleSet {
	return &RuleSet{targets: make(map[string]*TargetRules)}
}

// Lookup returns the rules for target, or nil.
func (rs *RuleSet) Lookup(target string) *TargetRules {
	return rs.targets[target]
}

// Targets returns all target names in definition order.
func (rs *RuleSet) Targets() []string {
	return rs.order
}

// Add registers a rule body for target and returns the body that
// subsequent recipe lines should attach to. A single-colon rule for an
// already-known single-colon target merges: the new prerequisites append
// (duplicates allowed, order preserved) and the merged body becomes
// current. A double-colon rule always appends a fresh body. Mixing colon
// kinds for one target is an error.
func (rs *RuleSet) Add(loc Loc, target string, doubleColon bool, prereqs, orderOnly []string) (*RuleBody, error) {
	tr := rs.targets[target]
	if tr == nil {
		tr = &TargetRules{Target: target, DoubleColon: doubleColon}
		rs.targets[target] = tr
		rs.order = append(rs.order, target)
	} else if tr.DoubleColon != doubleColon {
		return nil, &ConflictingRuleTypeError{Loc: loc, Target: target}
	}

	if doubleColon || len(tr.Bodies) == 0 {
		// Copy: one rule statement can name several targets, and a later
		// merge into one of them must not scribble on its siblings.
		body := &RuleBody{
			Prereqs:   append([]string(nil), prereqs...),
			OrderOnly: append([]string(nil), orderOnly...),
		}
		tr.Bodies = append(tr.Bodies, body)
		return body, nil
	}

	body := tr.Bodies[0]
	body.Prereqs = append(body.Prereqs, prereqs...)
	body.OrderOnly = append(body.OrderOnly, orderOnly...)
	return body, nil
}
