package offer

// Revision is the authoritative document value at a point in time. Versions
// increase by one on every accepted replacement; the text is always a
// complete document, never a patch.
type Revision struct {
	Version int64  `json:"version"`
	Text    string `json:"text"`
}

// RevisionSource identifies which flow produced a proposed replacement.
type RevisionSource string

const (
	RevisionSourceChat     RevisionSource = "chat"
	RevisionSourceAutofill RevisionSource = "autofill"
)

// ProposedRevision is a candidate replacement computed against BaseVersion.
// It applies only while the document is still at BaseVersion; a stale
// proposal is discarded, never merged.
type ProposedRevision struct {
	BaseVersion int64
	Text        string
	Source      RevisionSource
}
