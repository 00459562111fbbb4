package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type bodyKind int

const (
	bodyStructured bodyKind = iota
	bodyMultipart
	bodyBinary
)

type encodedBody struct {
	kind        bodyKind
	reader      io.Reader
	contentType string
}

// Form is a multipart/form-data body, such as a report with a photo attached.
type Form struct {
	Fields map[string]string
	Files  []File
}

// File is one file part of a Form.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{Fields: make(map[string]string)}
}

// Set adds a text field.
func (f *Form) Set(name, value string) *Form {
	if f.Fields == nil {
		f.Fields = make(map[string]string)
	}
	f.Fields[name] = value
	return f
}

// Attach adds a file part.
func (f *Form) Attach(field, name string, content io.Reader) *Form {
	f.Files = append(f.Files, File{Field: field, Name: name, Content: content})
	return f
}

func (f *Form) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, value := range f.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.Files {
		part, err := createFilePart(w, file)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func createFilePart(w *multipart.Writer, file File) (io.Writer, error) {
	if file.ContentType == "" {
		return w.CreateFormFile(file.Field, file.Name)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", file.ContentType)
	return w.CreatePart(h)
}

func encodeBody(body any) (encodedBody, error) {
	switch b := body.(type) {
	case nil:
		return encodedBody{kind: bodyStructured}, nil
	case *Form:
		buf, contentType, err := b.encode()
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{kind: bodyMultipart, reader: buf, contentType: contentType}, nil
	case json.RawMessage:
		return encodedBody{kind: bodyStructured, reader: bytes.NewReader(b)}, nil
	case []byte:
		return encodedBody{kind: bodyBinary, reader: bytes.NewReader(b)}, nil
	case io.Reader:
		return encodedBody{kind: bodyBinary, reader: b}, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{kind: bodyStructured, reader: bytes.NewReader(raw)}, nil
	}
}
