package models

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownClass is returned when a class name or index is not part of a ClassSet.
var ErrUnknownClass = errors.New("unknown class")

// OutputClass represents one evaluation label.
type OutputClass struct {
	// The integer index used in configuration and result arrays.
	Index int
	// The human-readable label printed in reports.
	Name string
	// The lower-case name compared against annotation names.
	Match string
}

// ClassSet is an ordered table of evaluation classes.
type ClassSet struct {
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by display name
	nameToIdx map[string]int
}

// NewClassSet builds a class set from display names. Indices follow argument
// order and match names are the lower-cased display names.
func NewClassSet(names ...string) *ClassSet {
	set := &ClassSet{Classes: make([]OutputClass, len(names))}
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name, Match: strings.ToLower(name)}
	}
	set.BuildNameIndexMap()
	return set
}

// KITTIClasses returns the class table used by the official KITTI evaluation.
//
// Index 5 is the lower-case "car" alias; looking up "Car" yields 0 while
// "car" yields 5.
func KITTIClasses() *ClassSet {
	return NewClassSet(
		"Car",
		"Pedestrian",
		"Cyclist",
		"Van",
		"Person_sitting",
		"car",
		"tractor",
		"trailer",
	)
}

// BuildNameIndexMap builds or rebuilds the name->index map. Later entries win
// when two classes share a display name.
func (s *ClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes in the set.
func (s *ClassSet) Len() int {
	return len(s.Classes)
}

// Get returns the class at idx.
func (s *ClassSet) Get(idx int) (OutputClass, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return OutputClass{}, errors.Wrapf(ErrUnknownClass, "index %d out of range [0, %d)", idx, len(s.Classes))
	}
	return s.Classes[idx], nil
}

// Index returns the class index for a display name.
func (s *ClassSet) Index(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownClass, "name %q", name)
	}
	return idx, nil
}

// Resolve maps class references to indices. Each reference is either a
// display name or a decimal index into the set.
//
// Arguments:
//   - refs: Class names ("Car") or indices ("0").
//
// Returns:
//   - Indices in argument order.
//   - ErrUnknownClass if any reference does not resolve.
func (s *ClassSet) Resolve(refs []string) ([]int, error) {
	out := make([]int, 0, len(refs))
	for _, ref := range refs {
		if idx, err := strconv.Atoi(ref); err == nil {
			if _, err := s.Get(idx); err != nil {
				return nil, err
			}
			out = append(out, idx)
			continue
		}
		idx, err := s.Index(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}
