package model

// DocumentVersion captures a document as it was at Revision, before the edit
// that produced Revision+1.
type DocumentVersion struct {
	ID         string           `json:"id" db:"id"`
	DocumentID string           `json:"document_id" db:"document_id"`
	UserID     string           `json:"user_id" db:"user_id"`
	Revision   int64            `json:"revision" db:"revision"`
	Content    string           `json:"content" db:"content"`
	Metadata   DocumentMetadata `json:"metadata" db:"metadata"`
	Ctime      int64            `json:"ctime" db:"ctime"`
}

// OrphanVersion is a snapshot whose content change never landed on the
// document: the document revision did not move past the snapshot revision.
type OrphanVersion struct {
	VersionID     string `json:"version_id" db:"version_id"`
	DocumentID    string `json:"document_id" db:"document_id"`
	UserID        string `json:"user_id" db:"user_id"`
	Revision      int64  `json:"revision" db:"revision"`
	DocRevision   int64  `json:"document_revision" db:"document_revision"`
	VersionCtime  int64  `json:"version_ctime" db:"version_ctime"`
	DocumentMtime int64  `json:"document_mtime" db:"document_mtime"`
}
