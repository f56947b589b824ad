package core

import (
	"regexp"
	"strings"
)

// CategorySource records where a transaction's category came from.
type CategorySource int

const (
	CategoryNone CategorySource = iota
	// CategoryStructured means the store kept the name in its category column.
	CategoryStructured
	// CategoryEmbedded means the name lives in a "[Name]" tag inside the description.
	CategoryEmbedded
)

func (s CategorySource) String() string {
	switch s {
	case CategoryStructured:
		return "structured"
	case CategoryEmbedded:
		return "embedded"
	default:
		return "none"
	}
}

// Category is the logical category of a transaction. Readers use Name and
// never need to branch on Source.
type Category struct {
	Name   string
	Source CategorySource
}

var categoryTag = regexp.MustCompile(`\[([^\[\]]+)\]`)

func StructuredCategory(name string) Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}
	}
	return Category{Name: name, Source: CategoryStructured}
}

func EmbeddedCategory(name string) Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}
	}
	return Category{Name: name, Source: CategoryEmbedded}
}

func (c Category) IsSet() bool {
	return c.Name != ""
}

// ResolveCategory turns a stored row into its logical category. A non-empty
// column wins; otherwise the first "[Name]" tag in the description is used.
func ResolveCategory(column, description string) Category {
	if c := StructuredCategory(column); c.IsSet() {
		return c
	}
	if name, ok := ExtractCategoryTag(description); ok {
		return EmbeddedCategory(name)
	}
	return Category{}
}

// ExtractCategoryTag returns the name inside the first "[Name]" tag.
func ExtractCategoryTag(description string) (string, bool) {
	m := categoryTag.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	return name, name != ""
}

// EmbedCategory prefixes description with a "[name]" tag, replacing any tag
// already present.
func EmbedCategory(name, description string) string {
	rest := StripCategoryTag(description)
	tag := "[" + strings.TrimSpace(name) + "]"
	if rest == "" {
		return tag
	}
	return tag + " " + rest
}

// StripCategoryTag removes the first "[Name]" tag and tidies the spacing left behind.
func StripCategoryTag(description string) string {
	loc := categoryTag.FindStringIndex(description)
	if loc == nil {
		return strings.TrimSpace(description)
	}
	out := description[:loc[0]] + " " + description[loc[1]:]
	return strings.Join(strings.Fields(out), " ")
}

// HasCategoryTag reports whether description carries "[name]", ignoring case.
func HasCategoryTag(description, name string) bool {
	return strings.Contains(strings.ToLower(description), "["+strings.ToLower(strings.TrimSpace(name))+"]")
}

// RetagDescription swaps a "[oldName]" tag (any case) for "[newName]".
// The second result is false when no tag matched.
func RetagDescription(description, oldName, newName string) (string, bool) {
	loc := categoryTag.FindAllStringSubmatchIndex(description, -1)
	for _, l := range loc {
		inner := strings.TrimSpace(description[l[2]:l[3]])
		if strings.EqualFold(inner, strings.TrimSpace(oldName)) {
			return description[:l[0]] + "[" + strings.TrimSpace(newName) + "]" + description[l[1]:], true
		}
	}
	return description, false
}

// ReplaceCategoryWord swaps every space-delimited occurrence of oldName
// (any case) for newName. Bracketed tags are left to RetagDescription.
// The second result is false when nothing was replaced.
func ReplaceCategoryWord(description, oldName, newName string) (string, bool) {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" {
		return description, false
	}
	var (
		b        strings.Builder
		replaced bool
	)
	n := len(oldName)
	for i := 0; i < len(description); {
		if i+n <= len(description) &&
			(i == 0 || description[i-1] == ' ') &&
			(i+n == len(description) || description[i+n] == ' ') &&
			strings.EqualFold(description[i:i+n], oldName) {
			b.WriteString(newName)
			i += n
			replaced = true
			continue
		}
		b.WriteByte(description[i])
		i++
	}
	if !replaced {
		return description, false
	}
	return b.String(), true
}
