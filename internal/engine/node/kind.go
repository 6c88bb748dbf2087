package node

import "strings"

// Kind is the structural class of a node.
type Kind uint8

const (
	// KindElement nodes own an ordered child list.
	KindElement Kind = iota

	// KindText nodes own text content.
	KindText

	// KindDecorator nodes are atomic leaves rendered by an external decorator.
	KindDecorator
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindDecorator:
		return "decorator"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "element":
		return KindElement, true
	case "text":
		return KindText, true
	case "decorator":
		return KindDecorator, true
	}
	return 0, false
}

// Mode is the mutability class of a text leaf.
type Mode uint8

const (
	// ModeNormal leaves may be edited freely.
	ModeNormal Mode = iota

	// ModeImmutable leaves can only be replaced as a whole.
	ModeImmutable

	// ModeSegmented leaves can be replaced or cleared but never split or spliced.
	ModeSegmented
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeImmutable:
		return "immutable"
	case ModeSegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name produced by Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "normal", "":
		return ModeNormal, true
	case "immutable":
		return ModeImmutable, true
	case "segmented":
		return ModeSegmented, true
	}
	return 0, false
}

// Format is a bitmask of inline text styles.
type Format uint32

const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

var formatNames = []struct {
	f    Format
	name string
}{
	{FormatBold, "bold"},
	{FormatItalic, "italic"},
	{FormatStrikethrough, "strikethrough"},
	{FormatUnderline, "underline"},
	{FormatCode, "code"},
	{FormatSubscript, "subscript"},
	{FormatSuperscript, "superscript"},
}

// Has reports whether all bits of other are set.
func (f Format) Has(other Format) bool {
	return f&other == other
}

// Toggle flips the given bits.
func (f Format) Toggle(other Format) Format {
	return f ^ other
}

// String returns the set flags joined by "|", or "" for no formatting.
func (f Format) String() string {
	var parts []string
	for _, fn := range formatNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFormat parses a "|"-joined list of format names.
func ParseFormat(s string) (Format, bool) {
	if s == "" {
		return 0, true
	}
	var f Format
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, fn := range formatNames {
			if fn.name == part {
				f |= fn.f
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return f, true
}
