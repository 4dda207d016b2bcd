package intelligence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	structuralTagRegex = regexp.MustCompile(`(?i)` + structuralTagPattern)
	utilityCodeRegex   = regexp.MustCompile(utilityCodePattern)
	dateRegex          = regexp.MustCompile(datePattern)
	pressureUnitRegex  = regexp.MustCompile(`(?i)` + pressureUnitPattern)
	temperatureRegex   = regexp.MustCompile(`(?i)` + temperaturePattern)
	valveTagRegex      = regexp.MustCompile(valveTagPattern)
	revisionRowRegex   = regexp.MustCompile(revisionRowPattern)
	equipmentTagRegexs = compileAll(equipmentTagPatterns)
)

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// compiledRule is a FieldRule with its pattern compiled once
type compiledRule struct {
	FieldRule
	re *regexp.Regexp
}

func compileRules(rules []FieldRule) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, compiledRule{FieldRule: r, re: regexp.MustCompile(r.Pattern)})
	}
	return out
}

// firstMatch returns the trimmed first capture of the first match
func (r compiledRule) firstMatch(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// applyRules sets one field per matching rule, never overwriting a set field
func applyRules(fields *FieldMap, rules []compiledRule, text string) {
	for _, r := range rules {
		if v, ok := r.firstMatch(text); ok {
			fields.SetIfAbsent(r.Field, v)
		}
	}
}

// ExtractStructuralPatterns returns every two-letter four-digit match,
// deduplicated by exact string and sorted. Casing is preserved.
func ExtractStructuralPatterns(text string) []string {
	return uniqueSorted(structuralTagRegex.FindAllString(text, -1))
}

// CategoryForPattern maps a structural match to its engineering category
func CategoryForPattern(match string) string {
	if len(match) < 2 {
		return PatternCategoryOther
	}
	if cat, ok := patternPrefixCategories[strings.ToUpper(match[:2])]; ok {
		return cat
	}
	return PatternCategoryOther
}

// PatternGroup is one category of structural matches
type PatternGroup struct {
	Category string
	Matches  []string
}

// GroupPatterns buckets matches by category, in fixed category order.
// Empty categories are omitted and match order is preserved.
func GroupPatterns(matches []string) []PatternGroup {
	buckets := make(map[string][]string)
	for _, m := range matches {
		cat := CategoryForPattern(m)
		buckets[cat] = append(buckets[cat], m)
	}

	groups := make([]PatternGroup, 0, len(buckets))
	for _, cat := range patternCategoryOrder {
		if len(buckets[cat]) > 0 {
			groups = append(groups, PatternGroup{Category: cat, Matches: buckets[cat]})
		}
	}
	return groups
}

// Key renders the group's field name, e.g. "Valves (3)"
func (g PatternGroup) Key() string {
	return fmt.Sprintf("%s (%d)", g.Category, len(g.Matches))
}

// structuralFields runs the structural pattern and its grouping
func structuralFields(text string) *FieldMap {
	fields := NewFieldMap()
	matches := ExtractStructuralPatterns(text)
	if len(matches) == 0 {
		return fields
	}

	fields.Set(FieldPatternList, strings.Join(matches, ", "))
	fields.Set(FieldPatternTotal, strconv.Itoa(len(matches)))
	for _, g := range GroupPatterns(matches) {
		fields.Set(g.Key(), strings.Join(g.Matches, ", "))
	}
	return fields
}

// ExtractEquipmentTags unions all equipment tag shapes, sorted and unique
func ExtractEquipmentTags(text string) []string {
	var all []string
	for _, re := range equipmentTagRegexs {
		all = append(all, re.FindAllString(text, -1)...)
	}
	return uniqueSorted(all)
}

// presentKeywords returns the keywords found in lowered, in list order
func presentKeywords(lowered string, keywords []string) []string {
	var found []string
	for _, k := range keywords {
		if strings.Contains(lowered, k) {
			found = append(found, k)
		}
	}
	return found
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
