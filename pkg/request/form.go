package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form is a multipart/form-data body: plain fields and files, in insertion order.
// The Content-Type header, including the boundary, is set by the Sender when the body is encoded.
type Form struct {
	fields []FormField
	files  []FormFile
}

type FormField struct {
	Name  string
	Value string
}

type FormFile struct {
	Field    string
	FileName string
	Content  []byte
}

// NewForm creates an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// AddField returns a clone of the Form with the field appended.
func (f *Form) AddField(name, value string) *Form {
	out := f.clone()
	out.fields = append(out.fields, FormField{Name: name, Value: value})
	return out
}

// AddFile returns a clone of the Form with the file appended.
func (f *Form) AddFile(field, fileName string, content []byte) *Form {
	out := f.clone()
	out.files = append(out.files, FormFile{Field: field, FileName: fileName, Content: content})
	return out
}

func (f *Form) Fields() []FormField {
	return f.fields
}

func (f *Form) Files() []FormFile {
	return f.files
}

// Size returns the total size of the field values and file contents.
func (f *Form) Size() int64 {
	var size int64
	for _, field := range f.fields {
		size += int64(len(field.Value))
	}
	for _, file := range f.files {
		size += int64(len(file.Content))
	}
	return size
}

// Encode writes the multipart body and returns its content type.
func (f *Form) Encode() (body []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf(`cannot write form field "%s": %w`, field.Name, err)
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, "", fmt.Errorf(`cannot create form file "%s": %w`, file.Field, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(file.Content)); err != nil {
			return nil, "", fmt.Errorf(`cannot write form file "%s": %w`, file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (f *Form) clone() *Form {
	if f == nil {
		return &Form{}
	}
	return &Form{
		fields: append([]FormField(nil), f.fields...),
		files:  append([]FormFile(nil), f.files...),
	}
}
