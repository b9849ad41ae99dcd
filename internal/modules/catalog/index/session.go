package index

import (
	"sort"
	"strconv"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// MaxCombinations bounds ValidCombinations.
const MaxCombinations = 10000

// Session is one listing-validation episode over an Index. It captures the
// listing's inputs once so scalar option values take part in every
// dependency check. Sessions are not shared across listings.
type Session struct {
	idx    *Index
	inputs Inputs
	// scalar holds the single code of non-variant enum and lookup inputs.
	scalar map[string]string
	// offered holds the codes each option-backed attribute currently offers:
	// every axis code, or the one scalar code.
	offered map[string][]string
	axes    map[string]bool
}

// BeginValidation validates inputs and opens a session over them.
func (x *Index) BeginValidation(inputs Inputs) (*Session, error) {
	if err := x.ValidateInputs(inputs); err != nil {
		return nil, err
	}
	s := &Session{
		idx:     x,
		inputs:  inputs,
		scalar:  map[string]string{},
		offered: map[string][]string{},
		axes:    map[string]bool{},
	}
	for key, in := range inputs {
		d, _ := x.Definition(key)
		if !d.Kind.IsOptionBacked() {
			continue
		}
		switch in.Shape {
		case ShapeCode:
			s.scalar[key] = in.Code
			s.offered[key] = []string{in.Code}
		case ShapeCodeAxis:
			s.axes[key] = true
			s.offered[key] = append([]string(nil), in.Codes...)
		}
	}
	return s, nil
}

func (s *Session) Index() *Index { return s.idx }

func (s *Session) Inputs() Inputs { return s.inputs }

// MissingRequired reports required attributes the session's inputs leave unset.
func (s *Session) MissingRequired() error { return s.idx.MissingRequired(s.inputs) }

// IsVariantComboValid decides whether one code per selected axis, together
// with the scalar option inputs, satisfies every declared dependency pair and
// every lookup allow-list. Selecting an attribute that is not a code axis of
// this session is an input error; a code the axis does not offer is invalid.
func (s *Session) IsVariantComboValid(selections map[string]string, policy AllowPolicy) (bool, error) {
	for _, key := range sortedKeys(selections) {
		if !s.axes[key] {
			return false, catalog.NewRuleError(catalog.CodeInvalidInput, "Session.IsVariantComboValid",
				"selection for an attribute without a code axis", "attribute", key)
		}
		if !contains(s.offered[key], selections[key]) {
			return false, nil
		}
	}
	return s.comboValid(selections, policy)
}

func (s *Session) comboValid(selections map[string]string, policy AllowPolicy) (bool, error) {
	codes := make(map[string]string, len(s.scalar)+len(selections))
	for k, v := range s.scalar {
		codes[k] = v
	}
	for k, v := range selections {
		codes[k] = v
	}

	for _, key := range sortedKeys(codes) {
		d, _ := s.idx.Definition(key)
		if d.Kind != catalog.KindLookup {
			continue
		}
		ok, err := s.idx.IsLookupOptionAllowed(key, codes[key], policy)
		if err != nil || !ok {
			return false, err
		}
	}

	for _, deps := range []DependencyMap{s.idx.enumDeps, s.idx.lookupDeps} {
		for _, pair := range deps.Pairs() {
			parentCode, okP := codes[pair[0]]
			childCode, okC := codes[pair[1]]
			if !okP || !okC {
				continue
			}
			ok, err := s.idx.childAllows(pair[0], pair[1], parentCode, childCode, policy)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

// IsChildCodeReachableFromParents reports whether childCode can be chosen
// under the current offering. Each direct gating parent that offers codes must
// permit childCode from at least one of them; parents offering nothing are
// skipped. Grandparents are not consulted.
func (s *Session) IsChildCodeReachableFromParents(childKey, childCode string, policy AllowPolicy) (bool, error) {
	for _, parentKey := range s.idx.Parents(childKey) {
		offered := s.offered[parentKey]
		if len(offered) == 0 {
			continue
		}
		reachable := false
		for _, parentCode := range offered {
			ok, err := s.idx.childAllows(parentKey, childKey, parentCode, childCode, policy)
			if err != nil {
				return false, err
			}
			if ok {
				reachable = true
				break
			}
		}
		if !reachable {
			return false, nil
		}
	}
	return true, nil
}

// UnreachableChoices returns, per code axis, the offered codes no current
// parent offering can reach.
func (s *Session) UnreachableChoices(policy AllowPolicy) (map[string][]string, error) {
	out := map[string][]string{}
	for _, key := range sortedKeys(s.axes) {
		for _, code := range s.offered[key] {
			ok, err := s.IsChildCodeReachableFromParents(key, code, policy)
			if err != nil {
				return nil, err
			}
			if !ok {
				out[key] = append(out[key], code)
			}
		}
	}
	return out, nil
}

// Combination is one code per code axis.
type Combination map[string]string

// ValidCombinations enumerates every valid combination of the session's code
// axes. More than MaxCombinations is an out_of_range error.
func (s *Session) ValidCombinations(policy AllowPolicy) ([]Combination, error) {
	out, truncated, err := s.EnumerateCombinations(policy, MaxCombinations)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, catalog.NewRuleError(catalog.CodeOutOfRange, "Session.ValidCombinations",
			"too many combinations", "limit", strconv.Itoa(MaxCombinations))
	}
	return out, nil
}

// EnumerateCombinations walks the code axes parents before children so invalid
// prefixes are pruned early. It stops after limit combinations and reports
// whether more exist.
func (s *Session) EnumerateCombinations(policy AllowPolicy, limit int) ([]Combination, bool, error) {
	order, err := s.axisOrder()
	if err != nil {
		return nil, false, err
	}
	if len(order) == 0 {
		return nil, false, nil
	}
	var (
		out       []Combination
		truncated bool
	)
	current := map[string]string{}
	var walk func(i int) error
	walk = func(i int) error {
		if i == len(order) {
			if len(out) >= limit {
				truncated = true
				return nil
			}
			combo := make(Combination, len(current))
			for k, v := range current {
				combo[k] = v
			}
			out = append(out, combo)
			return nil
		}
		key := order[i]
		for _, code := range s.offered[key] {
			if truncated {
				return nil
			}
			current[key] = code
			ok, err := s.comboValid(current, policy)
			if err != nil {
				return err
			}
			if ok {
				if err := walk(i + 1); err != nil {
					return err
				}
			}
			delete(current, key)
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, false, err
	}
	return out, truncated, nil
}

func (s *Session) axisOrder() ([]string, error) {
	deps, err := catalog.DependencyOrder(s.idx.pt)
	if err != nil {
		return nil, err
	}
	var order []string
	placed := map[string]bool{}
	for _, key := range deps {
		if s.axes[key] {
			order = append(order, key)
			placed[key] = true
		}
	}
	var rest []string
	for key := range s.axes {
		if !placed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...), nil
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
