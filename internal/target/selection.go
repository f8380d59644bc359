package target

import "fmt"

// Selection is the relationship between a path and a BackupTarget.
type Selection int

const (
	// Irrelevant paths share no ancestor/descendant relation with any folder.
	Irrelevant Selection = iota
	// Contains marks a path above the backup scope: some folder lies beneath it.
	Contains
	// Included paths lie under a folder and no exclusion applies.
	Included
	// Excluded paths lie under a folder but they or an ancestor match an exclusion.
	Excluded
)

var selectionNames = map[Selection]string{
	Irrelevant: "irrelevant",
	Contains:   "contains",
	Included:   "included",
	Excluded:   "excluded",
}

func (s Selection) String() string {
	if name, ok := selectionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Selection(%d)", int(s))
}

func (s Selection) MarshalText() ([]byte, error) {
	name, ok := selectionNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown selection: %d", int(s))
	}
	return []byte(name), nil
}

func (s *Selection) UnmarshalText(text []byte) error {
	for sel, name := range selectionNames {
		if name == string(text) {
			*s = sel
			return nil
		}
	}
	return fmt.Errorf("unknown selection: %q", text)
}
