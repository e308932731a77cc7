package ingest

// Payload is the extraction payload the orchestrator consumes.
type Payload struct {
	OriginURL    string
	SiteHint     string
	RawHTML      string
	MetadataJSON string
	Media        []MediaItem
}

// MediaItem is one unprocessed media blob as received over the wire.
type MediaItem struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// Outcome is what Ingest returns: the archive paths are always populated;
// QuestionID is set only when the catalog write landed.
type Outcome struct {
	ArchiveHTMLPath  string
	ArchiveJSONPath  string
	MediaPaths       []string
	CatalogPersisted bool
	CatalogError     string
	QuestionID       *int64
}
