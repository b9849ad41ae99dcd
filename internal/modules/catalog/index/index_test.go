package index

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

var publishedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustAttr(t *testing.T, pt *catalog.ProductType, spec catalog.AttributeSpec) {
	t.Helper()
	if _, err := pt.AddAttribute(spec); err != nil {
		t.Fatalf("AddAttribute(%s): %v", spec.Key, err)
	}
}

func mustOpt(t *testing.T, pt *catalog.ProductType, attr, code string, pos int, parent string) {
	t.Helper()
	if _, err := pt.AddEnumOption(attr, catalog.OptionSpec{Code: code, Label: code, Position: pos, ParentCode: parent}); err != nil {
		t.Fatalf("AddEnumOption(%s.%s): %v", attr, code, err)
	}
}

// phoneType has brand (acme, zeta) gating model (acme_x, zeta_y), both axes.
func phoneType(t *testing.T) *catalog.ProductType {
	t.Helper()
	pt, err := catalog.NewProductType("phone", "Phone", nil, catalog.NewLookupCatalog())
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	mustAttr(t, pt, catalog.AttributeSpec{Key: "brand", Name: "Brand", Kind: catalog.KindEnum, IsVariant: true, IsRequired: true, Position: 1})
	mustOpt(t, pt, "brand", "acme", 1, "")
	mustOpt(t, pt, "brand", "zeta", 2, "")
	mustAttr(t, pt, catalog.AttributeSpec{Key: "model", Name: "Model", Kind: catalog.KindEnum, IsVariant: true, Position: 2, DependsOnKey: "brand"})
	mustOpt(t, pt, "model", "acme_x", 1, "acme")
	mustOpt(t, pt, "model", "zeta_y", 2, "zeta")
	return pt
}

// paintType has a closed color lookup (allow red, blue), an open finish lookup,
// and linked make -> series lookups.
func paintType(t *testing.T) *catalog.ProductType {
	t.Helper()
	lk := catalog.NewLookupCatalog()
	for _, ty := range []struct {
		key   string
		open  bool
		codes []string
	}{
		{"color", false, []string{"red", "blue", "green"}},
		{"finish", true, []string{"matte", "gloss"}},
		{"make", true, []string{"m1", "m2"}},
		{"series", false, []string{"s1", "s2", "s3"}},
	} {
		if _, err := lk.AddType(ty.key, ty.key, ty.open); err != nil {
			t.Fatalf("AddType: %v", err)
		}
		for i, c := range ty.codes {
			if _, err := lk.AddOption(ty.key, c, c, i); err != nil {
				t.Fatalf("AddOption: %v", err)
			}
		}
	}
	for _, l := range [][2]string{{"m1", "s1"}, {"m1", "s2"}, {"m2", "s3"}} {
		if _, err := lk.AddLink("make", l[0], "series", l[1]); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	pt, err := catalog.NewProductType("paint", "Paint", nil, lk)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	mustAttr(t, pt, catalog.AttributeSpec{Key: "color", Name: "Color", Kind: catalog.KindLookup, IsVariant: true, Position: 1, LookupTypeKey: "color"})
	mustAttr(t, pt, catalog.AttributeSpec{Key: "finish", Name: "Finish", Kind: catalog.KindLookup, Position: 2, LookupTypeKey: "finish"})
	mustAttr(t, pt, catalog.AttributeSpec{Key: "maker", Name: "Maker", Kind: catalog.KindLookup, Position: 3, LookupTypeKey: "make"})
	mustAttr(t, pt, catalog.AttributeSpec{Key: "line", Name: "Line", Kind: catalog.KindLookup, IsVariant: true, Position: 4, LookupTypeKey: "series"})
	if err := pt.SetLookupAllowed("color", []string{"red", "blue"}); err != nil {
		t.Fatalf("SetLookupAllowed: %v", err)
	}
	if err := pt.SetLookupAllowed("series", []string{"s1", "s3"}); err != nil {
		t.Fatalf("SetLookupAllowed: %v", err)
	}
	return pt
}

func publishAndIndex(t *testing.T, pt *catalog.ProductType) *Index {
	t.Helper()
	if err := pt.Publish(publishedAt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	snap, err := Build(pt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	idx, err := Hydrate(snap, pt)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	return idx
}

func mustSession(t *testing.T, idx *Index, inputs Inputs) *Session {
	t.Helper()
	s, err := idx.BeginValidation(inputs)
	if err != nil {
		t.Fatalf("BeginValidation: %v", err)
	}
	return s
}

func mustValid(t *testing.T, s *Session, sel map[string]string, policy AllowPolicy) bool {
	t.Helper()
	ok, err := s.IsVariantComboValid(sel, policy)
	if err != nil {
		t.Fatalf("IsVariantComboValid(%v): %v", sel, err)
	}
	return ok
}

func TestBrandGatesModel(t *testing.T) {
	idx := publishAndIndex(t, phoneType(t))

	row, c := idx.EnumAllowedChildren("brand", "model", "acme")
	if c != ConstraintRow || !reflect.DeepEqual(row.Sorted(), []string{"acme_x"}) {
		t.Fatalf("acme row: want=[acme_x]/row got=%v/%v", row.Sorted(), c)
	}
	if _, c := idx.EnumAllowedChildren("model", "brand", "acme_x"); c != ConstraintNone {
		t.Fatalf("reverse pair: want=none got=%v", c)
	}

	s := mustSession(t, idx, Inputs{"brand": CodeAxis("acme", "zeta"), "model": CodeAxis("acme_x", "zeta_y")})
	if mustValid(t, s, map[string]string{"brand": "acme", "model": "zeta_y"}, AllowAllWhenEmpty) {
		t.Fatalf("acme/zeta_y: want=invalid")
	}
	if !mustValid(t, s, map[string]string{"brand": "acme", "model": "acme_x"}, AllowAllWhenEmpty) {
		t.Fatalf("acme/acme_x: want=valid")
	}

	combos, err := s.ValidCombinations(AllowAllWhenEmpty)
	if err != nil {
		t.Fatalf("ValidCombinations: %v", err)
	}
	want := []Combination{{"brand": "acme", "model": "acme_x"}, {"brand": "zeta", "model": "zeta_y"}}
	if !reflect.DeepEqual(combos, want) {
		t.Fatalf("combinations: want=%v got=%v", want, combos)
	}
}

func TestScalarInputParticipates(t *testing.T) {
	pt := phoneType(t)
	pt.OwnAttribute("brand").IsVariant = false
	idx := publishAndIndex(t, pt)

	s := mustSession(t, idx, Inputs{"brand": CodeInput("zeta"), "model": CodeAxis("acme_x", "zeta_y")})
	if mustValid(t, s, map[string]string{"model": "acme_x"}, AllowAllWhenEmpty) {
		t.Fatalf("zeta/acme_x: want=invalid")
	}
	if !mustValid(t, s, map[string]string{"model": "zeta_y"}, AllowAllWhenEmpty) {
		t.Fatalf("zeta/zeta_y: want=valid")
	}
	if _, err := s.IsVariantComboValid(map[string]string{"brand": "acme"}, AllowAllWhenEmpty); !catalog.IsRule(err, catalog.CodeInvalidInput) {
		t.Fatalf("selecting a scalar: want=invalid_input got=%v", err)
	}
	if mustValid(t, s, map[string]string{"model": "nope"}, AllowAllWhenEmpty) {
		t.Fatalf("unoffered code: want=invalid")
	}
}

func TestDenseRows(t *testing.T) {
	pt := phoneType(t)
	mustOpt(t, pt, "brand", "omega", 3, "")
	idx := publishAndIndex(t, pt)

	row, c := idx.EnumAllowedChildren("brand", "model", "omega")
	if c != ConstraintRow || len(row) != 0 {
		t.Fatalf("omega row: want=empty row got=%v/%v", row.Sorted(), c)
	}
	s := mustSession(t, idx, Inputs{"brand": CodeAxis("omega"), "model": CodeAxis("acme_x")})
	if mustValid(t, s, map[string]string{"brand": "omega", "model": "acme_x"}, AllowAllWhenEmpty) {
		t.Fatalf("empty row: want=invalid")
	}

	delete(idx.snap.EnumDependencies["brand"]["model"], "acme")
	if _, c := idx.EnumAllowedChildren("brand", "model", "acme"); c != ConstraintMissingRow {
		t.Fatalf("deleted row: want=missing_row got=%v", c)
	}
	if err := idx.snap.Validate(); !catalog.IsInvalidState(err) {
		t.Fatalf("Validate: want=invalid state got=%v", err)
	}
	s = mustSession(t, idx, Inputs{"brand": CodeAxis("acme"), "model": CodeAxis("acme_x")})
	if mustValid(t, s, map[string]string{"brand": "acme", "model": "acme_x"}, AllowAllWhenEmpty) {
		t.Fatalf("missing row treated as allow all")
	}
}

func TestLookupAllowList(t *testing.T) {
	idx := publishAndIndex(t, paintType(t))

	cases := []struct {
		attr, code string
		policy     AllowPolicy
		want       bool
	}{
		{"color", "green", AllowAllWhenEmpty, false},
		{"color", "red", AllowAllWhenEmpty, true},
		{"color", "red", AllowNoneWhenEmpty, true},
		{"finish", "matte", AllowAllWhenEmpty, true},
		{"finish", "matte", AllowNoneWhenEmpty, false},
	}
	for _, tc := range cases {
		got, err := idx.IsLookupOptionAllowed(tc.attr, tc.code, tc.policy)
		if err != nil {
			t.Fatalf("IsLookupOptionAllowed(%s,%s): %v", tc.attr, tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("IsLookupOptionAllowed(%s,%s,%d): want=%v got=%v", tc.attr, tc.code, tc.policy, tc.want, got)
		}
	}

	// Inputs are checked without a policy; the allow-list applies per combination.
	if err := idx.ValidateInputs(Inputs{"color": CodeAxis("green")}); err != nil {
		t.Fatalf("ValidateInputs(green): want accepted got=%v", err)
	}
	s := mustSession(t, idx, Inputs{"color": CodeAxis("red", "green"), "line": CodeAxis("s1")})
	for _, policy := range []AllowPolicy{AllowAllWhenEmpty, AllowNoneWhenEmpty} {
		if mustValid(t, s, map[string]string{"color": "green", "line": "s1"}, policy) {
			t.Fatalf("green under policy %d: want=rejected by allow-list", policy)
		}
	}
	combos, err := s.ValidCombinations(AllowAllWhenEmpty)
	if err != nil {
		t.Fatalf("ValidCombinations: %v", err)
	}
	if want := []Combination{{"color": "red", "line": "s1"}}; !reflect.DeepEqual(combos, want) {
		t.Fatalf("combinations: want=%v got=%v", want, combos)
	}

	delete(idx.allowed, "finish")
	if _, err := idx.IsLookupOptionAllowed("finish", "matte", AllowAllWhenEmpty); !catalog.IsInvalidState(err) {
		t.Fatalf("missing entry: want=invalid state got=%v", err)
	}
}

func TestLookupDependencies(t *testing.T) {
	idx := publishAndIndex(t, paintType(t))

	if !idx.HasLookupDependency("maker", "line") || idx.HasLookupDependency("line", "maker") {
		t.Fatalf("lookup pair: want maker->line only")
	}
	row, c, err := idx.LookupAllowedChildren("maker", "line", "m1", AllowAllWhenEmpty)
	if err != nil || c != ConstraintRow {
		t.Fatalf("m1 row: err=%v constraint=%v", err, c)
	}
	if !reflect.DeepEqual(row.Sorted(), []string{"s1"}) {
		t.Fatalf("m1 row intersected with allow-list: want=[s1] got=%v", row.Sorted())
	}
	if _, c, _ := idx.LookupAllowedChildren("color", "line", "red", AllowAllWhenEmpty); c != ConstraintNone {
		t.Fatalf("undeclared pair: want=none got=%v", c)
	}

	s := mustSession(t, idx, Inputs{"maker": CodeInput("m2"), "line": CodeAxis("s1", "s3")})
	if mustValid(t, s, map[string]string{"line": "s1"}, AllowAllWhenEmpty) {
		t.Fatalf("m2/s1: want=invalid")
	}
	if !mustValid(t, s, map[string]string{"line": "s3"}, AllowAllWhenEmpty) {
		t.Fatalf("m2/s3: want=valid")
	}
}

func TestBuildRequiresAllowList(t *testing.T) {
	pt := paintType(t)
	pt.LookupAllowed = nil
	_, err := Build(pt)
	if !catalog.IsRule(err, catalog.CodeMissingAllowList) {
		t.Fatalf("Build: want=missing_allow_list got=%v", err)
	}
}

// deviceFamily returns a published device type (brand gating model, a closed
// color lookup allowing red and blue) and a draft phone child that adds an
// open finish lookup linked from color.
func deviceFamily(t *testing.T) (*catalog.ProductType, *catalog.ProductType) {
	t.Helper()
	lk := catalog.NewLookupCatalog()
	for _, ty := range []struct {
		key   string
		open  bool
		codes []string
	}{
		{"color", false, []string{"red", "blue", "green"}},
		{"finish", true, []string{"matte", "gloss"}},
	} {
		if _, err := lk.AddType(ty.key, ty.key, ty.open); err != nil {
			t.Fatalf("AddType: %v", err)
		}
		for i, c := range ty.codes {
			if _, err := lk.AddOption(ty.key, c, c, i); err != nil {
				t.Fatalf("AddOption: %v", err)
			}
		}
	}
	if _, err := lk.AddLink("color", "red", "finish", "matte"); err != nil {
		t.Fatalf("AddLink: %v", err)
	}

	device, err := catalog.NewProductType("device", "Device", nil, lk)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	mustAttr(t, device, catalog.AttributeSpec{Key: "brand", Name: "Brand", Kind: catalog.KindEnum, IsVariant: true, Position: 1})
	mustOpt(t, device, "brand", "acme", 1, "")
	mustOpt(t, device, "brand", "zeta", 2, "")
	mustAttr(t, device, catalog.AttributeSpec{Key: "model", Name: "Model", Kind: catalog.KindEnum, IsVariant: true, Position: 2, DependsOnKey: "brand"})
	mustOpt(t, device, "model", "acme_x", 1, "acme")
	mustOpt(t, device, "model", "zeta_y", 2, "zeta")
	mustAttr(t, device, catalog.AttributeSpec{Key: "color", Name: "Color", Kind: catalog.KindLookup, IsVariant: true, Position: 3, LookupTypeKey: "color"})
	if err := device.SetLookupAllowed("color", []string{"red", "blue"}); err != nil {
		t.Fatalf("SetLookupAllowed: %v", err)
	}
	if err := device.Publish(publishedAt); err != nil {
		t.Fatalf("Publish(device): %v", err)
	}

	phone, err := catalog.NewProductType("phone", "Phone", device, lk)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	mustAttr(t, phone, catalog.AttributeSpec{Key: "finish", Name: "Finish", Kind: catalog.KindLookup, IsVariant: true, Position: 1, LookupTypeKey: "finish"})
	return device, phone
}

func TestInheritedAxesResolveFromParent(t *testing.T) {
	_, phone := deviceFamily(t)
	idx := publishAndIndex(t, phone)

	if _, ok := idx.Snapshot().EnumOptions["brand"]; ok {
		t.Fatalf("snapshot: inherited brand must not be compiled into the child")
	}
	if _, ok := idx.EnumOption("brand", "acme"); !ok {
		t.Fatalf("EnumOption(brand,acme): want resolved from parent")
	}
	if _, ok := idx.LookupOption("color", "green"); !ok {
		t.Fatalf("LookupOption(color,green): want resolved from parent")
	}
	if len(idx.Stale()) != 0 {
		t.Fatalf("Stale: want none got=%v", idx.Stale())
	}

	cases := []struct {
		code   string
		policy AllowPolicy
		want   bool
	}{
		{"red", AllowAllWhenEmpty, true},
		{"green", AllowAllWhenEmpty, false},
		{"blue", AllowNoneWhenEmpty, true},
	}
	for _, tc := range cases {
		got, err := idx.IsLookupOptionAllowed("color", tc.code, tc.policy)
		if err != nil {
			t.Fatalf("IsLookupOptionAllowed(color,%s): %v", tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("IsLookupOptionAllowed(color,%s): want=%v got=%v", tc.code, tc.want, got)
		}
	}

	s := mustSession(t, idx, Inputs{
		"brand":  CodeAxis("acme", "zeta"),
		"model":  CodeAxis("acme_x", "zeta_y"),
		"color":  CodeAxis("red", "green"),
		"finish": CodeAxis("matte", "gloss"),
	})
	if !idx.HasEnumDependency("brand", "model") {
		t.Fatalf("HasEnumDependency(brand,model): want inherited pair")
	}
	if !idx.HasLookupDependency("color", "finish") {
		t.Fatalf("HasLookupDependency(color,finish): want pair across parent and child")
	}
	if !mustValid(t, s, map[string]string{"brand": "acme", "model": "acme_x", "color": "red", "finish": "matte"}, AllowAllWhenEmpty) {
		t.Fatalf("acme/acme_x/red/matte: want=valid")
	}
	if mustValid(t, s, map[string]string{"brand": "acme", "model": "zeta_y", "color": "red", "finish": "matte"}, AllowAllWhenEmpty) {
		t.Fatalf("acme/zeta_y: want=invalid")
	}
	if mustValid(t, s, map[string]string{"brand": "acme", "model": "acme_x", "color": "red", "finish": "gloss"}, AllowAllWhenEmpty) {
		t.Fatalf("red/gloss: want=invalid")
	}
	if mustValid(t, s, map[string]string{"brand": "acme", "model": "acme_x", "color": "green", "finish": "matte"}, AllowAllWhenEmpty) {
		t.Fatalf("green: want=rejected by inherited allow-list")
	}
}

func TestChildAllowListOverridesInherited(t *testing.T) {
	_, phone := deviceFamily(t)
	if err := phone.SetLookupAllowed("color", []string{"green"}); err != nil {
		t.Fatalf("SetLookupAllowed: %v", err)
	}
	idx := publishAndIndex(t, phone)
	if ok, err := idx.IsLookupOptionAllowed("color", "green", AllowAllWhenEmpty); err != nil || !ok {
		t.Fatalf("green: want=allowed by own list got=%v err=%v", ok, err)
	}
	if ok, _ := idx.IsLookupOptionAllowed("color", "red", AllowAllWhenEmpty); ok {
		t.Fatalf("red: want=rejected by own list")
	}
}

func TestHydrateLeavesSnapshotUntouched(t *testing.T) {
	_, phone := deviceFamily(t)
	if err := phone.Publish(publishedAt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	snap, err := Build(phone)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	before, err := snap.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Hydrate(snap, phone); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	after, _ := snap.Marshal()
	if string(before) != string(after) {
		t.Fatalf("Hydrate mutated the snapshot:\nbefore=%s\nafter=%s", before, after)
	}

	bare := &Snapshot{ProductTypeID: phone.ID, ProductTypeKey: phone.Key, Version: phone.Version}
	if _, err := Hydrate(bare, phone); err != nil {
		t.Fatalf("Hydrate(bare): %v", err)
	}
	if bare.EnumOptions != nil || bare.LookupOptions != nil || bare.EnumDependencies != nil || bare.LookupDependencies != nil || bare.LookupAllowed != nil {
		t.Fatalf("Hydrate(bare): want nil maps left nil got=%+v", bare)
	}
}

// chainType declares a -> b -> c with disjoint rows.
func chainType(t *testing.T) *catalog.ProductType {
	t.Helper()
	pt, err := catalog.NewProductType("chain", "Chain", nil, catalog.NewLookupCatalog())
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	mustAttr(t, pt, catalog.AttributeSpec{Key: "a", Name: "A", Kind: catalog.KindEnum, IsVariant: true, Position: 1})
	mustOpt(t, pt, "a", "a1", 1, "")
	mustOpt(t, pt, "a", "a2", 2, "")
	mustAttr(t, pt, catalog.AttributeSpec{Key: "b", Name: "B", Kind: catalog.KindEnum, IsVariant: true, Position: 2, DependsOnKey: "a"})
	mustOpt(t, pt, "b", "b1", 1, "a1")
	mustOpt(t, pt, "b", "b2", 2, "a2")
	mustAttr(t, pt, catalog.AttributeSpec{Key: "c", Name: "C", Kind: catalog.KindEnum, IsVariant: true, Position: 3, DependsOnKey: "b"})
	mustOpt(t, pt, "c", "c1", 1, "b1")
	mustOpt(t, pt, "c", "c2", 2, "b2")
	return pt
}

func TestReachabilityIsDirectParentOnly(t *testing.T) {
	idx := publishAndIndex(t, chainType(t))

	s := mustSession(t, idx, Inputs{"a": CodeAxis("a1", "a2"), "b": CodeAxis("b1"), "c": CodeAxis("c1", "c2")})
	ok, err := s.IsChildCodeReachableFromParents("c", "c2", AllowAllWhenEmpty)
	if err != nil || ok {
		t.Fatalf("c2 via b1: want=unreachable got=%v err=%v", ok, err)
	}

	s = mustSession(t, idx, Inputs{"a": CodeAxis("a1"), "b": CodeAxis("b2"), "c": CodeAxis("c2")})
	ok, err = s.IsChildCodeReachableFromParents("c", "c2", AllowAllWhenEmpty)
	if err != nil || !ok {
		t.Fatalf("c2 via b2: want=reachable got=%v err=%v", ok, err)
	}
	unreachable, err := s.UnreachableChoices(AllowAllWhenEmpty)
	if err != nil {
		t.Fatalf("UnreachableChoices: %v", err)
	}
	if want := map[string][]string{"b": {"b2"}}; !reflect.DeepEqual(unreachable, want) {
		t.Fatalf("UnreachableChoices: want=%v got=%v", want, unreachable)
	}

	s = mustSession(t, idx, Inputs{"c": CodeAxis("c1")})
	if ok, _ := s.IsChildCodeReachableFromParents("c", "c1", AllowAllWhenEmpty); !ok {
		t.Fatalf("no parent offering: want=reachable")
	}
}

func TestValidCombinationsPrunesChains(t *testing.T) {
	idx := publishAndIndex(t, chainType(t))
	s := mustSession(t, idx, Inputs{"a": CodeAxis("a1", "a2"), "b": CodeAxis("b1", "b2"), "c": CodeAxis("c1", "c2")})
	combos, err := s.ValidCombinations(AllowAllWhenEmpty)
	if err != nil {
		t.Fatalf("ValidCombinations: %v", err)
	}
	want := []Combination{{"a": "a1", "b": "b1", "c": "c1"}, {"a": "a2", "b": "b2", "c": "c2"}}
	if !reflect.DeepEqual(combos, want) {
		t.Fatalf("combinations: want=%v got=%v", want, combos)
	}
}

func TestRoundTripMatchesLiveSchema(t *testing.T) {
	for name, build := range map[string]func(*testing.T) *catalog.ProductType{
		"phone": phoneType,
		"chain": chainType,
		"paint": paintType,
	} {
		t.Run(name, func(t *testing.T) {
			pt := build(t)
			idx := publishAndIndex(t, pt)
			raw, err := idx.Snapshot().Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			snap, err := UnmarshalSnapshot(raw)
			if err != nil {
				t.Fatalf("UnmarshalSnapshot: %v", err)
			}
			reloaded, err := Hydrate(snap, pt)
			if err != nil {
				t.Fatalf("Hydrate: %v", err)
			}
			orig := *idx.Snapshot()
			if !orig.BuiltAt.Equal(snap.BuiltAt) {
				t.Fatalf("BuiltAt: want=%v got=%v", orig.BuiltAt, snap.BuiltAt)
			}
			orig.BuiltAt = snap.BuiltAt
			if !reflect.DeepEqual(*snap, orig) {
				t.Fatalf("json round trip changed the snapshot")
			}
			for _, x := range []*Index{idx, reloaded} {
				if len(x.Stale()) != 0 {
					t.Fatalf("stale codes after round trip: %v", x.Stale())
				}
				for _, d := range pt.Attributes {
					if got, ok := x.Definition(d.Key); !ok || got != d {
						t.Fatalf("Definition(%s) mismatch", d.Key)
					}
					if d.Enum != nil {
						for _, o := range d.Enum.Options {
							if got, ok := x.EnumOption(d.Key, o.Code); !ok || got != o {
								t.Fatalf("EnumOption(%s,%s) mismatch", d.Key, o.Code)
							}
						}
					}
					for _, p := range pt.Attributes {
						live := d.DependsOnID != nil && *d.DependsOnID == p.ID && d.Kind == catalog.KindEnum
						if x.HasEnumDependency(p.Key, d.Key) != live {
							t.Fatalf("HasEnumDependency(%s,%s): want=%v", p.Key, d.Key, live)
						}
					}
				}
			}
		})
	}
}

func TestCodeSetJSONIsSorted(t *testing.T) {
	raw, err := json.Marshal(NewCodeSet("zeta", "acme", "beta"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `["acme","beta","zeta"]` {
		t.Fatalf("CodeSet json: got=%s", raw)
	}
	var back CodeSet
	if err := json.Unmarshal(raw, &back); err != nil || !back.Has("beta") || len(back) != 3 {
		t.Fatalf("Unmarshal: err=%v set=%v", err, back)
	}
}

func TestHydrateDropsStaleCodes(t *testing.T) {
	pt := phoneType(t)
	snap, err := Build(pt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := pt.RemoveEnumOption("model", "zeta_y"); err != nil {
		t.Fatalf("RemoveEnumOption: %v", err)
	}
	idx, err := Hydrate(snap, pt)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if _, ok := idx.EnumOption("model", "zeta_y"); ok {
		t.Fatalf("stale code resolved")
	}
	if want := []StaleCode{{Attribute: "model", Code: "zeta_y"}}; !reflect.DeepEqual(idx.Stale(), want) {
		t.Fatalf("Stale: want=%v got=%v", want, idx.Stale())
	}

	other := phoneType(t)
	if _, err := Hydrate(snap, other); !catalog.IsInvalidState(err) {
		t.Fatalf("foreign snapshot: want=invalid state got=%v", err)
	}
}

func TestValidateInputs(t *testing.T) {
	pt := phoneType(t)
	lo, hi := decimal.NewFromInt(1), decimal.NewFromInt(64)
	mustAttr(t, pt, catalog.AttributeSpec{Key: "storage", Name: "Storage", Kind: catalog.KindInt, Position: 3, Unit: "gb", Min: &lo, Max: &hi})
	mustAttr(t, pt, catalog.AttributeSpec{Key: "refurbished", Name: "Refurbished", Kind: catalog.KindBool, Position: 4})
	idx := publishAndIndex(t, pt)

	cases := []struct {
		name   string
		inputs Inputs
		code   catalog.ErrorCode
	}{
		{"unknown key", Inputs{"color": CodeInput("red")}, catalog.CodeAttributeNotFound},
		{"scalar for axis", Inputs{"brand": CodeInput("acme")}, catalog.CodeInvalidInput},
		{"axis for scalar", Inputs{"storage": NumericAxis(decimal.NewFromInt(8))}, catalog.CodeInvalidInput},
		{"mixed payload", Inputs{"brand": {Shape: ShapeCodeAxis, Codes: []string{"acme"}, Code: "acme"}}, catalog.CodeInvalidInput},
		{"unknown code", Inputs{"brand": CodeAxis("nope")}, catalog.CodeOptionNotFound},
		{"repeated code", Inputs{"brand": CodeAxis("acme", "acme")}, catalog.CodeDuplicateCode},
		{"out of range", Inputs{"storage": NumberInput(decimal.NewFromInt(128))}, catalog.CodeOutOfRange},
		{"fractional int", Inputs{"storage": NumberInput(decimal.RequireFromString("1.5"))}, catalog.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := idx.ValidateInputs(tc.inputs)
			if got := catalog.RuleCode(err); got != tc.code {
				t.Fatalf("want=%s got=%v", tc.code, err)
			}
			if _, err := idx.BeginValidation(tc.inputs); err == nil {
				t.Fatalf("BeginValidation accepted invalid inputs")
			}
		})
	}

	ok := Inputs{"brand": CodeAxis("acme"), "storage": NumberInput(decimal.NewFromInt(32)), "refurbished": BoolInput(true)}
	if err := idx.ValidateInputs(ok); err != nil {
		t.Fatalf("valid inputs: %v", err)
	}
	if err := idx.MissingRequired(Inputs{"storage": NumberInput(decimal.NewFromInt(32))}); !catalog.IsRule(err, catalog.CodeRequiredMissing) {
		t.Fatalf("MissingRequired: want=required_missing got=%v", err)
	}
	var rule *catalog.RuleError
	if err := idx.MissingRequired(ok); errors.As(err, &rule) {
		t.Fatalf("MissingRequired: unexpected %v", err)
	}
}
