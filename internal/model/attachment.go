package model

// Attachment is an audio file carried by a chat message.
//
// FileID is the handle used to download the file from the platform, while
// UniqueID is the platform's stable identity for the content and is what the
// cache is keyed on.
type Attachment struct {
	FileID   string
	UniqueID string
	FileName string
}
