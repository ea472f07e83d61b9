package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/repo"
)

const (
	ExportFormatText  = "txt"
	ExportFormatLatex = "latex"
	ExportFormatHTML  = "html"
	// ExportFormatPDF yields the same print-ready html; the browser prints it.
	ExportFormatPDF = "pdf"

	printStyle = "body { font-family: Arial, sans-serif; margin: 2cm; }\n.content { white-space: pre-wrap; }\n.math { margin-top: 1em; }"
)

var (
	ErrUnsupportedFormat = fmt.Errorf("unsupported export format: %w", appErr.ErrInvalid)

	filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type ExportPayload struct {
	Documents []model.Document        `json:"documents"`
	Versions  []model.DocumentVersion `json:"versions"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type ExportService struct {
	store repo.Gateway
	math  goldmark.Markdown
}

func NewExportService(store repo.Gateway) *ExportService {
	return &ExportService{
		store: store,
		math:  goldmark.New(goldmark.WithExtensions(treeblood.MathML())),
	}
}

// Export returns every document and version the user owns.
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportPayload, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	docs, err := s.store.ListAllDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListAllVersions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ExportPayload{Documents: docs, Versions: versions}, nil
}

func (s *ExportService) ExportDocument(ctx context.Context, userID, docID, format string) (*ExportFile, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatText
	}
	doc, err := s.store.GetDocument(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	base := exportBaseName(doc.Title)
	switch format {
	case ExportFormatText:
		return &ExportFile{Filename: base + ".txt", ContentType: "text/plain; charset=utf-8", Body: []byte(doc.Content)}, nil
	case ExportFormatLatex:
		return &ExportFile{Filename: base + ".tex", ContentType: "application/x-tex", Body: []byte(renderLatex(doc))}, nil
	case ExportFormatHTML, ExportFormatPDF:
		body, err := s.renderPrintPage(doc)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Body: body}, nil
	}
	return nil, ErrUnsupportedFormat
}

func renderLatex(doc *model.Document) string {
	var sb strings.Builder
	sb.WriteString("\\documentclass{article}\n\\begin{document}\n")
	sb.WriteString(doc.Content)
	if latex := strings.TrimSpace(doc.Metadata.Latex); latex != "" {
		sb.WriteString("\n\\[\n")
		sb.WriteString(latex)
		sb.WriteString("\n\\]")
	}
	sb.WriteString("\n\\end{document}")
	return sb.String()
}

// renderPrintPage builds the print-to-pdf page. Content is emitted as a text
// node so it is always escaped; metadata latex is rendered to MathML.
func (s *ExportService) renderPrintPage(doc *model.Document) ([]byte, error) {
	body := element(atom.Body)
	content := element(atom.Div, html.Attribute{Key: "class", Val: "content"})
	content.AppendChild(&html.Node{Type: html.TextNode, Data: doc.Content})
	body.AppendChild(content)

	if latex := strings.TrimSpace(doc.Metadata.Latex); latex != "" {
		nodes, err := s.mathNodes(latex, body)
		if err != nil {
			return nil, err
		}
		block := element(atom.Div, html.Attribute{Key: "class", Val: "math"})
		for _, n := range nodes {
			block.AppendChild(n)
		}
		body.AppendChild(block)
	}

	title := element(atom.Title)
	title.AppendChild(&html.Node{Type: html.TextNode, Data: doc.Title})
	style := element(atom.Style)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: printStyle})
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(title)
	head.AppendChild(style)

	root := element(atom.Html)
	root.AppendChild(head)
	root.AppendChild(body)
	page := &html.Node{Type: html.DocumentNode}
	page.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	page.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ExportService) mathNodes(latex string, parent *html.Node) ([]*html.Node, error) {
	var rendered bytes.Buffer
	if err := s.math.Convert([]byte("$$"+latex+"$$"), &rendered); err != nil {
		return nil, fmt.Errorf("render latex: %w", err)
	}
	nodes, err := html.ParseFragment(&rendered, parent)
	if err != nil {
		return nil, fmt.Errorf("parse mathml: %w", err)
	}
	return nodes, nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func exportBaseName(title string) string {
	name := strings.Trim(filenameUnsafe.ReplaceAllString(strings.TrimSpace(title), "-"), "-.")
	if name == "" {
		return "document"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
