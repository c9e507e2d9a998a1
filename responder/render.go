package responder

import (
	"errors"
	"html/template"
	"io"
)

var errNoRenderer = errors.New("no view renderer configured")

// Renderer produces an HTML view. Template engines plug in here.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, name string, data any) error

func (f RendererFunc) Render(w io.Writer, name string, data any) error {
	return f(w, name, data)
}

// TemplateRenderer renders named templates from an html/template set.
type TemplateRenderer struct {
	Templates *template.Template
}

func (t TemplateRenderer) Render(w io.Writer, name string, data any) error {
	if t.Templates == nil {
		return errors.New("template set not configured")
	}
	return t.Templates.ExecuteTemplate(w, name, data)
}
