// Package web provides the embedded page template and stylesheet.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/summary"
)

// IndexTemplate is the name of the single page.
const IndexTemplate = "index.html"

const (
	pageTitle   = "Medical Report Summarizer"
	buttonLabel = "Upload & Summarize"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// Page is the data rendered by IndexTemplate.
type Page struct {
	Title        string
	ButtonLabel  string
	Error        string
	SelectedFile *models.FileHandle
	PatientLines []summary.PatientLine
	Doctor       summary.DoctorSummary
}

// NewPage derives the page from a session state.
func NewPage(state models.UploadState) Page {
	return Page{
		Title:        pageTitle,
		ButtonLabel:  buttonLabel,
		Error:        state.Error,
		SelectedFile: state.File,
		PatientLines: summary.PatientLines(state.PatientView),
		Doctor:       summary.DoctorLabs(state.DoctorView),
	}
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the named template.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// GetFileSystem returns the embedded static files with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves the embedded stylesheet under /static.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	e.GET("/static/*", echo.WrapHandler(fileServer))
	return nil
}
