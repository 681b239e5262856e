package evaluate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/conforme/conforme-cli/pkg/vertex"
)

// textExtensions are sent to the model as plain text; everything else goes
// as raw bytes with a MIME type.
var textExtensions = map[string]bool{
	".txt":  true,
	".html": true,
	".htm":  true,
	".csv":  true,
	".rtf":  true,
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".ppt":  "application/vnd.ms-powerpoint",
	".msg":  "application/vnd.ms-outlook",
	".eml":  "message/rfc822",
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".csv":  "text/csv",
	".rtf":  "application/rtf",
}

// MIMEType maps a file extension (with dot) to its MIME type.
func MIMEType(ext string) string {
	if mt, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// readContentPart loads a file as the request part the model should see:
// text for textual extensions, bytes plus MIME type for the rest.
func readContentPart(path string) (vertex.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vertex.Part{}, eris.Wrapf(err, "reading %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		return vertex.Part{Text: string(data)}, nil
	}
	return vertex.Part{Data: data, MIMEType: MIMEType(ext)}, nil
}
