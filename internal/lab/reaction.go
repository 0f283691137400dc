package lab

import "strings"

// ExperimentID is a unique identifier for an experiment.
type ExperimentID string

// Experiment is the slice of the catalog the engine cares about: the id and
// the reaction category. The full catalog row (difficulty, thumbnail, ...)
// lives in the store package.
type Experiment struct {
	ID       ExperimentID `json:"id"`
	Title    string       `json:"title"`
	Category Category     `json:"category"`
}

// Category is the reaction family an experiment belongs to. Unknown category
// strings collapse to CategoryDefault at parse time, so lookups downstream
// never deal with spelling.
type Category int

const (
	CategoryDefault Category = iota
	CategoryAcidBase
	CategoryPrecipitation
	CategoryCombustion
)

// String returns the canonical spelling of the category.
func (c Category) String() string {
	switch c {
	case CategoryAcidBase:
		return "acid-base"
	case CategoryPrecipitation:
		return "precipitation"
	case CategoryCombustion:
		return "combustion"
	default:
		return "default"
	}
}

// ParseCategory matches a category string case-insensitively against the
// known set. Anything unrecognized is CategoryDefault.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acid-base", "acid base", "acidbase":
		return CategoryAcidBase
	case "precipitation":
		return CategoryPrecipitation
	case "combustion":
		return CategoryCombustion
	default:
		return CategoryDefault
	}
}

// EffectKind is the visual effect family a reaction produces.
type EffectKind int

const (
	EffectColorChange EffectKind = iota
	EffectBubbles
	EffectPrecipitate
	EffectFlame
)

// String returns the string representation of the effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectBubbles:
		return "bubbles"
	case EffectPrecipitate:
		return "precipitate"
	case EffectFlame:
		return "flame"
	default:
		return "color-change"
	}
}

// Effect is one visual effect descriptor: what to show and how strongly.
// Intensity is in [0,1].
type Effect struct {
	Kind      EffectKind `json:"kind"`
	Intensity float32    `json:"intensity"`
}

// ReactionResult is the fixed outcome for one experiment, derived once from
// its category and never mutated afterwards.
type ReactionResult struct {
	Outcome string   `json:"outcome"`
	Effects []Effect `json:"effects"`
}

// resultForCategory is the fixed category -> outcome table.
func resultForCategory(c Category) ReactionResult {
	switch c {
	case CategoryAcidBase:
		return ReactionResult{
			Outcome: "Neutralization reaction: acid and base combine to form salt and water",
			Effects: []Effect{{Kind: EffectBubbles, Intensity: 0.8}},
		}
	case CategoryPrecipitation:
		return ReactionResult{
			Outcome: "Precipitation reaction: an insoluble solid forms and settles",
			Effects: []Effect{{Kind: EffectPrecipitate, Intensity: 0.9}},
		}
	case CategoryCombustion:
		return ReactionResult{
			Outcome: "Combustion reaction: rapid oxidation releases heat and light",
			Effects: []Effect{{Kind: EffectFlame, Intensity: 1.0}},
		}
	default:
		return ReactionResult{
			Outcome: "Reaction occurred",
			Effects: []Effect{{Kind: EffectColorChange, Intensity: 0.7}},
		}
	}
}

// BuildResults derives the ReactionResult for every experiment in the given
// collection. Exactly one result per experiment id; later duplicates of the
// same id overwrite earlier ones.
func BuildResults(experiments []Experiment) map[ExperimentID]ReactionResult {
	out := make(map[ExperimentID]ReactionResult, len(experiments))
	for _, exp := range experiments {
		out[exp.ID] = resultForCategory(exp.Category)
	}
	return out
}

// ReactionTable holds the per-experiment results plus the set of chemicals
// combined so far for each experiment. It answers the trigger check: a
// reaction fires only once at least two chemicals have been combined.
type ReactionTable struct {
	results  map[ExperimentID]ReactionResult
	combined map[ExperimentID]map[string]struct{}
}

// NewReactionTable builds a table for the given experiments.
func NewReactionTable(experiments []Experiment) *ReactionTable {
	return &ReactionTable{
		results:  BuildResults(experiments),
		combined: make(map[ExperimentID]map[string]struct{}),
	}
}

// AddChemical records that a chemical has been combined into the experiment.
// Adding the same chemical twice is a no-op for the count.
func (rt *ReactionTable) AddChemical(id ExperimentID, chemicalID string) {
	set, ok := rt.combined[id]
	if !ok {
		set = make(map[string]struct{})
		rt.combined[id] = set
	}
	set[chemicalID] = struct{}{}
}

// CombinedCount returns how many distinct chemicals have been combined.
func (rt *ReactionTable) CombinedCount(id ExperimentID) int {
	return len(rt.combined[id])
}

// Trigger returns the stored result for the experiment only if at least two
// chemicals have been combined and a result exists. Otherwise it returns the
// zero value and false; there is no error condition.
func (rt *ReactionTable) Trigger(id ExperimentID) (ReactionResult, bool) {
	if len(rt.combined[id]) < 2 {
		return ReactionResult{}, false
	}
	res, ok := rt.results[id]
	if !ok {
		return ReactionResult{}, false
	}
	return res, true
}

// Result returns the stored result for an experiment regardless of the
// combined-chemicals count.
func (rt *ReactionTable) Result(id ExperimentID) (ReactionResult, bool) {
	res, ok := rt.results[id]
	return res, ok
}
