package model

// State carries what one stage produces for a later one during a single run.
// A fresh State is created for every run and discarded afterwards.
type State struct {
	// BibliographyXML is the bibliography XML path, set once the bibliography
	// stage has run (whether or not it had to regenerate the file).
	BibliographyXML string

	// BibliographyRegenerated records that the bibliography XML was rebuilt in
	// this run, which forces the XML conversion of the main document.
	BibliographyRegenerated bool

	unavailable map[StageName]bool
}

// HasBibliography reports whether a bibliography XML artifact is known.
func (st *State) HasBibliography() bool {
	return st != nil && st.BibliographyXML != ""
}

// MarkUnavailable records that a stage could not launch its tool, so its
// outputs may be missing.
func (st *State) MarkUnavailable(name StageName) {
	if st.unavailable == nil {
		st.unavailable = map[StageName]bool{}
	}
	st.unavailable[name] = true
}

// Unavailable reports whether a stage of this run was missing its tool.
func (st *State) Unavailable(name StageName) bool {
	return st != nil && st.unavailable[name]
}
