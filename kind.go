package gdrive

// Drive MIME discriminators.
const (
	MimeFolder   = "application/vnd.google-apps.folder"
	MimeShortcut = "application/vnd.google-apps.shortcut"

	// nativeDocPrefix marks Google-native document types (Docs, Sheets,
	// Slides, ...). They have no raw byte representation and must be
	// exported to a concrete format before download.
	nativeDocPrefix = "application/vnd.google-apps."
)

// Kind classifies what a File is. It determines which operations are legal:
// only folders list children, create subfolders, and accept uploads.
type Kind string

const (
	KindFile     Kind = "file"
	KindFolder   Kind = "folder"
	KindShortcut Kind = "shortcut"
)

// kindOf derives the Kind from a MIME type. The folder and shortcut
// discriminators match exactly; everything else, native document subtypes
// included, is a file.
func kindOf(mimeType string) Kind {
	switch mimeType {
	case MimeFolder:
		return KindFolder
	case MimeShortcut:
		return KindShortcut
	default:
		return KindFile
	}
}
