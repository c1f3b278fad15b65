package analyzer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Archetype keys of the built-in catalogue.
const (
	ArchetypeMatrixMultiply        = "matrix_multiply"
	ArchetypeBlockedMatrixMultiply = "blocked_matrix_multiply"
	ArchetypeMatrixVectorMultiply  = "matrix_vector_multiply"
	ArchetypeDataPreprocessing     = "data_preprocessing"
	ArchetypeDataPostprocessing    = "data_postprocessing"
	ArchetypeVectorOperations      = "vector_operations"
	ArchetypeInitializeData        = "initialize_data"
	ArchetypeCalculateChecksum     = "calculate_checksum"
)

// UnknownVerdict is returned for function names no rule matches.
func UnknownVerdict() Verdict {
	return Verdict{
		Parallelizable: ParallelizableUnknown,
		Complexity:     "Unknown",
		AccessPattern:  "Requires manual analysis",
		Platforms:      []string{"Manual analysis needed"},
		Strategy:       "Profile function behavior and analyze dependencies",
		Justification:  "Function characteristics need detailed examination",
	}
}

// defaultArchetypes is listed in matching order, first match wins.
// blocked_matrix_multiply contains matrix_multiply and is never reached by
// name; a replacing catalogue can list it first.
var defaultArchetypes = []archetypeEntry{
	{
		Key: ArchetypeMatrixMultiply,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n³)",
			AccessPattern:  "Triple nested loops with independent (i,j) iterations",
			Platforms:      []string{"OpenMP", "CUDA"},
			Strategy:       "Block decomposition, GPU thread blocks for (i,j) pairs",
			Justification:  "Highly parallel, regular memory access, compute-intensive, no dependencies between result elements",
		},
	},
	{
		Key: ArchetypeBlockedMatrixMultiply,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n³)",
			AccessPattern:  "Cache-blocked nested loops with independent blocks",
			Platforms:      []string{"OpenMP"},
			Strategy:       "Parallel execution of independent blocks using OpenMP collapse directive",
			Justification:  "Cache-friendly algorithm excellent for CPU parallelization, maintains locality",
		},
	},
	{
		Key: ArchetypeMatrixVectorMultiply,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n²)",
			AccessPattern:  "Matrix rows processed independently",
			Platforms:      []string{"OpenMP", "CUDA"},
			Strategy:       "Parallel loop over rows, or GPU threads per output element",
			Justification:  "Independent row computations, good memory locality, moderate parallelism",
		},
	},
	{
		Key: ArchetypeDataPreprocessing,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n)",
			AccessPattern:  "Independent element-wise mathematical operations",
			Platforms:      []string{"OpenMP"},
			Strategy:       "SIMD vectorization with parallel for directive",
			Justification:  "Element-wise operations (sin, cos, sqrt), no dependencies, SIMD-friendly",
		},
	},
	{
		Key: ArchetypeDataPostprocessing,
		Verdict: Verdict{
			Parallelizable: NotParallelizable,
			Complexity:     "O(n)",
			AccessPattern:  "Sequential dependencies between array elements",
			Platforms:      []string{"Sequential only"},
			Strategy:       "Limited parallelization due to dependency chain",
			Justification:  "Each element depends on previous element (data[i] += data[i-1] * 0.05)",
		},
	},
	{
		Key: ArchetypeVectorOperations,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n)",
			AccessPattern:  "Element-wise vector computations",
			Platforms:      []string{"OpenMP", "CUDA"},
			Strategy:       "SIMD vectorization or GPU kernel launch",
			Justification:  "Embarrassingly parallel, high arithmetic intensity with sqrt, sin, cos operations",
		},
	},
	{
		Key: ArchetypeInitializeData,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n²)",
			AccessPattern:  "Independent matrix element initialization",
			Platforms:      []string{"OpenMP"},
			Strategy:       "Parallel nested loops for matrix initialization",
			Justification:  "Independent computations with trigonometric functions per element",
		},
	},
	{
		Key: ArchetypeCalculateChecksum,
		Verdict: Verdict{
			Parallelizable: Parallelizable,
			Complexity:     "O(n²)",
			AccessPattern:  "Reduction operation over matrix elements",
			Platforms:      []string{"OpenMP"},
			Strategy:       "Parallel reduction with OpenMP reduction clause",
			Justification:  "Associative sum operation, perfect for parallel reduction",
		},
	},
}

// defaultHeuristics is evaluated in order after the catalogue keys. The
// vector+multiply rule is shadowed by the multiply rule; it keeps its place in
// the priority order.
var defaultHeuristics = []heuristicEntry{
	{Any: []string{"multiply", "matmul"}, Archetype: ArchetypeMatrixMultiply},
	{All: []string{"vector", "multiply"}, Archetype: ArchetypeMatrixVectorMultiply},
	{Any: []string{"preprocess"}, Archetype: ArchetypeDataPreprocessing},
	{Any: []string{"postprocess"}, Archetype: ArchetypeDataPostprocessing},
	{Any: []string{"vector"}, Archetype: ArchetypeVectorOperations},
	{Any: []string{"init"}, Archetype: ArchetypeInitializeData},
	{Any: []string{"sum", "checksum"}, Archetype: ArchetypeCalculateChecksum},
}

type archetypeEntry struct {
	Key     string `yaml:"key"`
	Verdict `yaml:",inline"`
}

type heuristicEntry struct {
	Any       []string `yaml:"any"`
	All       []string `yaml:"all"`
	Archetype string   `yaml:"archetype"`
}

type catalogueFile struct {
	// Extend appends the file's archetypes and heuristics to the built-in ones
	// instead of replacing them.
	Extend     bool             `yaml:"extend"`
	Archetypes []archetypeEntry `yaml:"archetypes"`
	Heuristics []heuristicEntry `yaml:"heuristics"`
}

// Rule maps a predicate over a lowercased function name to an archetype.
type Rule struct {
	Description string
	Archetype   string
	Source      MatchSource
	match       func(lowerName string) bool
}

// Matches reports whether the rule applies to the function name.
func (r Rule) Matches(name string) bool {
	return r.match(strings.ToLower(name))
}

// Catalogue is an ordered rule set plus the verdict for each archetype.
// It is not modified after construction and is safe for concurrent use.
type Catalogue struct {
	verdicts   map[string]Verdict
	archetypes []string
	rules      []Rule
}

// DefaultCatalogue returns the built-in archetype catalogue.
func DefaultCatalogue() *Catalogue {
	c, err := newCatalogue(defaultArchetypes, defaultHeuristics)
	if err != nil {
		panic(err)
	}
	return c
}

func newCatalogue(archetypes []archetypeEntry, heuristics []heuristicEntry) (*Catalogue, error) {
	c := &Catalogue{verdicts: make(map[string]Verdict, len(archetypes))}
	for _, a := range archetypes {
		key := strings.ToLower(strings.TrimSpace(a.Key))
		if key == "" {
			return nil, fmt.Errorf("archetype with empty key")
		}
		if _, dup := c.verdicts[key]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", key)
		}
		c.verdicts[key] = a.Verdict
		c.archetypes = append(c.archetypes, key)
		c.rules = append(c.rules, Rule{
			Description: fmt.Sprintf("contains %q", key),
			Archetype:   key,
			Source:      MatchCatalogue,
			match:       containsAll(key),
		})
	}
	for i, h := range heuristics {
		key := strings.ToLower(strings.TrimSpace(h.Archetype))
		if _, ok := c.verdicts[key]; !ok {
			return nil, fmt.Errorf("heuristic %d refers to unknown archetype %q", i, h.Archetype)
		}
		if len(h.Any) == 0 && len(h.All) == 0 {
			return nil, fmt.Errorf("heuristic %d for %q has no keywords", i, key)
		}
		c.rules = append(c.rules, Rule{
			Description: describeHeuristic(h),
			Archetype:   key,
			Source:      MatchHeuristic,
			match:       heuristicMatcher(lowerAll(h.Any), lowerAll(h.All)),
		})
	}
	return c, nil
}

// LoadCatalogue reads a YAML catalogue. Without `extend: true` the file
// replaces the built-in rules entirely.
func LoadCatalogue(r io.Reader) (*Catalogue, error) {
	var f catalogueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalogue: %w", err)
	}
	archetypes, heuristics := f.Archetypes, f.Heuristics
	if f.Extend {
		archetypes = append(append([]archetypeEntry{}, defaultArchetypes...), f.Archetypes...)
		heuristics = append(append([]heuristicEntry{}, defaultHeuristics...), f.Heuristics...)
	}
	if len(archetypes) == 0 {
		return nil, fmt.Errorf("catalogue defines no archetypes")
	}
	return newCatalogue(archetypes, heuristics)
}

// LoadCatalogueFile reads a YAML catalogue from disk.
func LoadCatalogueFile(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue '%s': %w", path, err)
	}
	defer f.Close()
	return LoadCatalogue(f)
}

// Classify returns the verdict for a function name. Only the name is
// considered; the first matching rule wins.
func (c *Catalogue) Classify(name string) Classification {
	lower := strings.ToLower(name)
	for _, r := range c.rules {
		if r.match(lower) {
			return Classification{
				Archetype: r.Archetype,
				MatchedBy: r.Source,
				Verdict:   cloneVerdict(c.verdicts[r.Archetype]),
			}
		}
	}
	return Classification{MatchedBy: MatchFallback, Verdict: UnknownVerdict()}
}

// Archetypes returns the archetype keys in matching order.
func (c *Catalogue) Archetypes() []string {
	return append([]string(nil), c.archetypes...)
}

// Rules returns the rules in evaluation order.
func (c *Catalogue) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Verdict returns the verdict configured for an archetype.
func (c *Catalogue) Verdict(archetype string) (Verdict, bool) {
	v, ok := c.verdicts[strings.ToLower(archetype)]
	if !ok {
		return Verdict{}, false
	}
	return cloneVerdict(v), true
}

func cloneVerdict(v Verdict) Verdict {
	v.Platforms = append([]string(nil), v.Platforms...)
	return v
}

func containsAll(keywords ...string) func(string) bool {
	return func(name string) bool {
		for _, k := range keywords {
			if !strings.Contains(name, k) {
				return false
			}
		}
		return true
	}
}

func heuristicMatcher(anyOf, allOf []string) func(string) bool {
	all := containsAll(allOf...)
	return func(name string) bool {
		if !all(name) {
			return false
		}
		if len(anyOf) == 0 {
			return true
		}
		for _, k := range anyOf {
			if strings.Contains(name, k) {
				return true
			}
		}
		return false
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func describeHeuristic(h heuristicEntry) string {
	var parts []string
	if len(h.Any) > 0 {
		parts = append(parts, "any of "+strings.Join(h.Any, "|"))
	}
	if len(h.All) > 0 {
		parts = append(parts, "all of "+strings.Join(h.All, "&"))
	}
	return strings.Join(parts, ", ")
}
