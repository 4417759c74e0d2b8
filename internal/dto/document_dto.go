package dto

// DocumentFile is a generated binary artifact returned to the client as a download.
type DocumentFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
