package billing

import (
	"strconv"

	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// NORMALIZER - One effective entry per (date, subject)
// =============================================================================

// Precedence ranks a submission. Higher wins.
//
// Role decides first: admin > plant manager > operator (an empty role counts
// as operator) > subcontractor. Within a role, an amended record (original
// entry reference, adjustment flag or adjusted-by set) beats a plain one.
// This is the report hierarchy and the amendment rule as one ordering: an
// admin or plant manager submission for a day an operator already logged is
// itself the amendment.
func Precedence(e RawEntry) int {
	rank := e.AuthorRole.rank() * 2
	if e.IsAmended() {
		rank++
	}
	return rank
}

// Normalize collapses submissions to exactly one EffectiveEntry per
// (date, subject), in order of each key's first appearance in the input.
//
// Subcontractor submissions are never selected while any other role
// submitted for the key; they are kept as References. A key with only
// subcontractor submissions yields a ReferenceOnly entry.
//
// A tie on the highest precedence is an AmbiguousEntryError, unless every
// tied submission bills identically (a resubmission), in which case the
// first one wins.
//
// Every submission must carry a calendar day (InvalidTimeRangeError) and a
// known author role (AmbiguousEntryError): neither is ever guessed.
func Normalize(raw []RawEntry) ([]EffectiveEntry, error) {
	index := make(map[EntryKey]int, len(raw))
	var keys []EntryKey
	var groups [][]RawEntry

	for _, e := range raw {
		k := e.Key()
		if k.Subject == "" {
			return nil, &AmbiguousEntryError{Key: k, EntryIDs: idsOf([]RawEntry{e}), Reason: "entry has no subject"}
		}
		if _, err := generic.ParseDay(e.Date); err != nil {
			return nil, &InvalidTimeRangeError{
				Key:     k,
				EntryID: e.ID,
				Field:   "date",
				Value:   e.Date,
				Reason:  "not a calendar day",
				Err:     err,
			}
		}
		if !e.AuthorRole.Valid() {
			return nil, &AmbiguousEntryError{
				Key:      k,
				EntryIDs: idsOf([]RawEntry{e}),
				Reason:   "unknown author role " + strconv.Quote(string(e.AuthorRole)),
			}
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			keys = append(keys, k)
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}

	out := make([]EffectiveEntry, 0, len(groups))
	for i, group := range groups {
		eff, err := resolveGroup(keys[i], group)
		if err != nil {
			return nil, err
		}
		out = append(out, eff)
	}
	return out, nil
}

func resolveGroup(key EntryKey, group []RawEntry) (EffectiveEntry, error) {
	var eligible, refs []RawEntry
	for _, e := range group {
		if e.IsSubcontractor() {
			refs = append(refs, e)
		} else {
			eligible = append(eligible, e)
		}
	}

	if len(eligible) == 0 {
		if len(refs) == 0 {
			return EffectiveEntry{}, &AmbiguousEntryError{Key: key, Reason: "no submissions for key"}
		}
		best, rest, err := pickBest(key, refs)
		if err != nil {
			return EffectiveEntry{}, err
		}
		return EffectiveEntry{Entry: best, Superseded: rest, ReferenceOnly: true}, nil
	}

	best, rest, err := pickBest(key, eligible)
	if err != nil {
		return EffectiveEntry{}, err
	}
	return EffectiveEntry{Entry: best, Superseded: rest, References: refs}, nil
}

// pickBest returns the winner and the remaining submissions in input order.
func pickBest(key EntryKey, candidates []RawEntry) (RawEntry, []RawEntry, error) {
	top := -1
	var tied []int
	for i, e := range candidates {
		switch r := Precedence(e); {
		case r > top:
			top = r
			tied = append(tied[:0], i)
		case r == top:
			tied = append(tied, i)
		}
	}

	winner := tied[0]
	for _, i := range tied[1:] {
		if !candidates[winner].sameBillingContent(candidates[i]) {
			ties := make([]RawEntry, len(tied))
			for j, t := range tied {
				ties[j] = candidates[t]
			}
			return RawEntry{}, nil, &AmbiguousEntryError{
				Key:      key,
				EntryIDs: idsOf(ties),
				Reason:   "submissions of equal precedence disagree",
			}
		}
	}

	rest := make([]RawEntry, 0, len(candidates)-1)
	for i, e := range candidates {
		if i != winner {
			rest = append(rest, e)
		}
	}
	return candidates[winner], rest, nil
}

func idsOf(entries []RawEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
