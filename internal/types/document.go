package types

import "time"

type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// PRRDocument is the stage-3 artifact. Section order and headings are part of
// the external contract; downstream viewers index sections by position.
type PRRDocument struct {
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Sections    []Section `json:"sections"`
	Degraded    bool      `json:"degraded,omitempty"`
}

// Section returns the section with the given heading, if present.
func (d *PRRDocument) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}
