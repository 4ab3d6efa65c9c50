package source

import "strconv"

// Span is a half-open byte range [Start, End) of the target file.
type Span struct {
	Start uint32
	End   uint32
}

func (s Span) Empty() bool { return s.End <= s.Start }

func (s Span) Len() uint32 {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start
}

func (s Span) String() string {
	return strconv.FormatUint(uint64(s.Start), 10) + ".." + strconv.FormatUint(uint64(s.End), 10)
}

// Contains reports whether inner lies within s. Equal spans contain each
// other.
func (s Span) Contains(inner Span) bool {
	return s.Start <= inner.Start && inner.End <= s.End
}

// Overlaps reports whether s and o share a byte; adjacent spans do not.
func (s Span) Overlaps(o Span) bool {
	return o.Start < s.End && s.Start < o.End
}

// Cover is the smallest span containing both.
func (s Span) Cover(o Span) Span {
	return Span{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}
