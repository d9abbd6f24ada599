package types

// Tag names the placeholder.
type Tag byte

// Placeholder tags.
const (
	TagA Tag = iota
	TagB
	TagC
	TagD
	TagE
	TagF
	TagG
	TagH

	// NumberOfTags is the number of available placeholder tags.
	NumberOfTags
)

// String returns the name of the tag.
func (t Tag) String() string {
	return string(rune('A' + t))
}

// Filter defines how many sibling trees placeholder may absorb.
type Filter byte

const (
	// FilterOne matches exactly one tree.
	FilterOne Filter = iota

	// FilterZeroOrMore matches any run of consecutive siblings, including empty one.
	FilterZeroOrMore

	// FilterOneOrMore matches a non-empty run of consecutive siblings.
	FilterOneOrMore
)

const (
	tagMask     = 0x07
	filterShift = 3
	filterMask  = 0x03
)

// PlaceholderValue encodes tag and filter into the header block of placeholder node.
func PlaceholderValue(tag Tag, filter Filter) byte {
	return byte(tag)&tagMask | (byte(filter)&filterMask)<<filterShift
}

// PlaceholderTag decodes tag from the header block of placeholder node.
func PlaceholderTag(value byte) Tag {
	return Tag(value & tagMask)
}

// PlaceholderFilter decodes filter from the header block of placeholder node.
func PlaceholderFilter(value byte) Filter {
	return Filter(value >> filterShift & filterMask)
}
