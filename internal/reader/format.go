package reader

// Format is the closed set of document formats the reader can render.
type Format int

const (
	FormatUnknown Format = iota
	FormatEPUB
	FormatPDF
)

// Recognized content types stored at the asset host.
const (
	ContentTypeEPUB = "application/epub+zip"
	ContentTypePDF  = "application/pdf"
)

// FormatFromContentType classifies a stored MIME type. Anything outside
// the recognized set maps to FormatUnknown; the session refuses to
// render those and surfaces an unsupported-format state instead.
func FormatFromContentType(contentType string) Format {
	switch contentType {
	case ContentTypeEPUB:
		return FormatEPUB
	case ContentTypePDF:
		return FormatPDF
	default:
		return FormatUnknown
	}
}

func (f Format) String() string {
	switch f {
	case FormatEPUB:
		return "epub"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}
