// Package tags finds instrument tags in drawing word streams and maintains the
// persistent acronym vocabulary they are reconciled against.
package tags

import (
	"regexp"
	"strings"
)

var (
	acronymRegex = regexp.MustCompile(`^[A-Z]{1,6}$`)
	idTagRegex   = regexp.MustCompile(`^[0-9]{4}[A-Z]?$`)
)

// NewAcronymFunc decides whether a newly seen acronym is accepted into the
// vocabulary. Rejected acronyms are still reported but stay unclassified.
type NewAcronymFunc func(acronym string) bool

// AcceptAll is the default policy: every new acronym is accepted
func AcceptAll(string) bool { return true }

// Extractor scans token streams for ACRONYM + ID pairs
type Extractor struct {
	OnNewAcronym NewAcronymFunc
}

// Result of one scan
type Result struct {
	// Tags are "ACR-ID" candidates in document order, duplicates kept
	Tags []string
	// NewAcronyms lists acronyms missing from the known list, first occurrence only
	NewAcronyms []string
	// Accepted is the subset of NewAcronyms the hook accepted
	Accepted []string
	// Known is the known list extended with the new acronyms
	Known []string
}

// Extract runs the default extractor
func Extract(tokens, known, notTags []string) Result {
	return (&Extractor{}).Extract(tokens, known, notTags)
}

// Extract scans adjacent token pairs. The acronym must be 1-6 upper-case
// letters and not a false positive; the id is four digits with an optional
// upper-case letter.
func (e *Extractor) Extract(tokens, known, notTags []string) Result {
	hook := e.OnNewAcronym
	if hook == nil {
		hook = AcceptAll
	}

	excluded := toSet(notTags)
	knownSet := toSet(known)
	res := Result{Known: append([]string{}, known...)}

	for i := 0; i+1 < len(tokens); i++ {
		acr, id := tokens[i], tokens[i+1]
		if _, skip := excluded[acr]; skip || !acronymRegex.MatchString(acr) {
			continue
		}
		if !idTagRegex.MatchString(id) {
			continue
		}

		res.Tags = append(res.Tags, acr+"-"+id)
		if _, ok := knownSet[acr]; ok {
			continue
		}
		knownSet[acr] = struct{}{}
		res.Known = append(res.Known, acr)
		res.NewAcronyms = append(res.NewAcronyms, acr)
		if hook(acr) {
			res.Accepted = append(res.Accepted, acr)
		}
	}
	return res
}

// FilterNotTags drops tags whose acronym is a false positive
func FilterNotTags(tags, notTags []string) []string {
	excluded := toSet(notTags)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, skip := excluded[acronymOf(t)]; skip {
			continue
		}
		out = append(out, t)
	}
	return out
}

func acronymOf(tag string) string {
	return strings.SplitN(tag, "-", 2)[0]
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
