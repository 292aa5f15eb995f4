// Package catalog - Resolves benchmark requests to exactly one registered implementation.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nvr-ai/go-hebench/api"
)

// Entry pairs a registered descriptor with the factory that builds its implementation.
type Entry[F any] struct {
	Descriptor api.BenchmarkDescriptor
	Factory    F
}

// Request is the identity of a benchmark to run plus its numeric workload parameters.
type Request struct {
	Workload        api.Workload `json:"workload"          yaml:"workload"`
	Category        api.Category `json:"category"          yaml:"category"`
	DataType        api.DataType `json:"data_type"         yaml:"data_type"`
	Scheme          api.Scheme   `json:"scheme"            yaml:"scheme"`
	Security        int          `json:"security"          yaml:"security"`
	CipherParamMask uint32       `json:"cipher_param_mask" yaml:"cipher_param_mask"`
	Params          []float64    `json:"params"            yaml:"params"`
}

// String renders the request for error messages.
func (r Request) String() string {
	params := make([]string, len(r.Params))
	for i, p := range r.Params {
		params[i] = fmt.Sprintf("%g", p)
	}
	return fmt.Sprintf("%s/%s/%s/%s-%d/mask=%b[%s]",
		r.Workload, r.Category, r.DataType, r.Scheme, r.Security, r.CipherParamMask, strings.Join(params, ","))
}

// identity reports whether the descriptor's identity fields equal the request's.
func (r Request) identity(d api.BenchmarkDescriptor) bool {
	return d.Workload == r.Workload &&
		d.Category == r.Category &&
		d.DataType == r.DataType &&
		d.Scheme == r.Scheme &&
		d.Security == r.Security &&
		d.CipherParamMask == r.CipherParamMask
}

// Catalog maps descriptors to factories of type F.
type Catalog[F any] struct {
	mu      sync.RWMutex
	entries []Entry[F]
}

// New creates an empty catalog.
func New[F any]() *Catalog[F] {
	return &Catalog[F]{}
}

// Register adds a descriptor and its factory.
//
// Arguments:
//   - descriptor: The benchmark identity and its parameter ranges.
//   - factory: Builds the implementation once the descriptor is matched.
//
// Returns:
//   - error: A DuplicateDescriptorError if an equal descriptor exists, or if a descriptor
//     with the same identity declares overlapping parameter ranges; a plain error if the
//     descriptor's ranges are malformed.
func (c *Catalog[F]) Register(descriptor api.BenchmarkDescriptor, factory F) error {
	if err := validateRanges(descriptor); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.Descriptor.Equal(descriptor) {
			return &api.DuplicateDescriptorError{Descriptor: descriptor}
		}
		if e.Descriptor.SameIdentity(descriptor) && rangesOverlap(e.Descriptor.ParamRanges, descriptor.ParamRanges) {
			return &api.DuplicateDescriptorError{
				Descriptor: descriptor,
				Reason:     "parameter ranges overlap " + e.Descriptor.Key(),
			}
		}
	}

	c.entries = append(c.entries, Entry[F]{Descriptor: descriptor, Factory: factory})
	return nil
}

// Match resolves a request to the single registered entry that accepts it.
//
// Identity fields must be equal and every request parameter must fall within the declared
// range at the same position. There is no nearest match.
//
// Arguments:
//   - req: The benchmark to run.
//
// Returns:
//   - Entry[F]: The matched entry.
//   - error: A NoMatchError when no entry accepts the request.
func (c *Catalog[F]) Match(req Request) (Entry[F], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	identityFound := false
	for _, e := range c.entries {
		if !req.identity(e.Descriptor) {
			continue
		}
		identityFound = true
		if inRanges(req.Params, e.Descriptor.ParamRanges) {
			return e, nil
		}
	}

	reason := "no descriptor with this identity"
	if identityFound {
		reason = "workload parameters outside every registered range or not of the declared type"
	}
	return Entry[F]{}, &api.NoMatchError{Request: req.String(), Reason: reason}
}

// Entries returns a snapshot of the registered entries ordered by descriptor key.
func (c *Catalog[F]) Entries() []Entry[F] {
	c.mu.RLock()
	out := make([]Entry[F], len(c.entries))
	copy(out, c.entries)
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor.Key() < out[j].Descriptor.Key()
	})
	return out
}

// Len returns the number of registered entries.
func (c *Catalog[F]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func validateRanges(d api.BenchmarkDescriptor) error {
	seen := make(map[string]bool, len(d.ParamRanges))
	for _, r := range d.ParamRanges {
		if r.Min > r.Max {
			return fmt.Errorf("descriptor %s: range %q has min %g > max %g", d, r.Name, r.Min, r.Max)
		}
		if seen[r.Name] {
			return fmt.Errorf("descriptor %s: range %q declared twice", d, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// rangesOverlap reports whether some parameter vector would fall within both range lists.
func rangesOverlap(a, b []api.ParamRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Overlaps(b[i]) {
			return false
		}
	}
	return true
}

func inRanges(params []float64, ranges []api.ParamRange) bool {
	if len(params) != len(ranges) {
		return false
	}
	for i, v := range params {
		if !ranges[i].Accepts(v) {
			return false
		}
	}
	return true
}
