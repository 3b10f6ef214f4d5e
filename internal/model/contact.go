package model

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultContactColor is used for names that do not start with a letter.
const DefaultContactColor = "#A8A8A8"

// letterColors maps A..Z to the avatar colour shown next to a contact.
var letterColors = [26]string{
	"#FF7A00", // A
	"#FF5EB3", // B
	"#6E52FF", // C
	"#9327FF", // D
	"#00BEE8", // E
	"#1FD7C1", // F
	"#FF745E", // G
	"#FFA35E", // H
	"#FC71FF", // I
	"#FFC701", // J
	"#0038FF", // K
	"#C3FF2B", // L
	"#FFE62B", // M
	"#FF4646", // N
	"#FFBB2B", // O
	"#FF7A00", // P
	"#FF5EB3", // Q
	"#6E52FF", // R
	"#9327FF", // S
	"#00BEE8", // T
	"#1FD7C1", // U
	"#FF745E", // V
	"#FFA35E", // W
	"#FC71FF", // X
	"#FFC701", // Y
	"#0038FF", // Z
}

// Contact is an address-book entry that tasks can be assigned to.
type Contact struct {
	// ID is the key the store generated on creation. It is not part of the
	// stored record.
	ID    string `json:"-"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ContactFields is the caller-supplied part of a contact.
type ContactFields struct {
	Name  string
	Email string
	Phone string
}

// Initials returns the uppercased first letters of the first and last
// words of the name. A single-word name yields one letter.
func (c Contact) Initials() string {
	return Initials(c.Name)
}

// ColorTag returns the avatar colour for the contact.
func (c Contact) ColorTag() string {
	return ColorTag(c.Name)
}

// Initials computes the initials of a display name.
func Initials(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(firstRune(words[0]))
	}
	return strings.ToUpper(firstRune(words[0]) + firstRune(words[len(words)-1]))
}

// ColorTag maps a name to a colour keyed by its first letter. Case does not
// matter; names starting with anything but A-Z get DefaultContactColor.
func ColorTag(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultContactColor
	}
	r := unicode.ToUpper([]rune(name)[0])
	if r < 'A' || r > 'Z' {
		return DefaultContactColor
	}
	return letterColors[r-'A']
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// SortContacts orders contacts by name using an English, case-insensitive
// collation, falling back to the ID for equal names.
func SortContacts(contacts []Contact) {
	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(contacts, func(i, j int) bool {
		if c := col.CompareString(contacts[i].Name, contacts[j].Name); c != 0 {
			return c < 0
		}
		return contacts[i].ID < contacts[j].ID
	})
}
