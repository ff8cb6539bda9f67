package httpharness

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

type multipartPart struct {
	fieldName   string
	fileName    string
	contentType string
	contents    []byte
}

// MultipartForm builds a multipart/form-data request body out of text
// fields and file parts. Pass the finished form to TestRequest.Multipart.
type MultipartForm struct {
	parts []multipartPart
}

func NewMultipartForm() *MultipartForm {
	return &MultipartForm{}
}

// AddText appends a plain text field to the form.
func (f *MultipartForm) AddText(name, value string) *MultipartForm {
	f.parts = append(f.parts, multipartPart{fieldName: name, contents: []byte(value)})
	return f
}

// AddFile appends a file part with the given field name, file name, content
// type, and contents.
func (f *MultipartForm) AddFile(name, fileName, contentType string, contents []byte) *MultipartForm {
	f.parts = append(f.parts, multipartPart{
		fieldName:   name,
		fileName:    fileName,
		contentType: contentType,
		contents:    contents,
	})
	return f
}

func (f *MultipartForm) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, part := range f.parts {
		var dest io.Writer
		var err error
		if part.fileName == "" && part.contentType == "" {
			dest, err = writer.CreateFormField(part.fieldName)
		} else {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				escapeQuotes(part.fieldName), escapeQuotes(part.fileName)))
			if part.contentType != "" {
				header.Set("Content-Type", part.contentType)
			}
			dest, err = writer.CreatePart(header)
		}
		if err != nil {
			return nil, "", err
		}
		if _, err := dest.Write(part.contents); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
