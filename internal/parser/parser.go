package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

// SupportedExtensions lists the file types the ingestion pass picks up.
var SupportedExtensions = []string{".pdf", ".docx", ".md", ".txt", ".xlsx", ".ods"}

const defaultPageNumber = 1

// Supported reports whether the file extension is one we can extract text from.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Parse extracts the text of a document as an ordered sequence of pages.
// Pages with no extractable text are skipped. Formats without real pages
// (docx, md, txt) come back as a single page 1; spreadsheets use the sheet
// number as the page number.
func Parse(filePath string) ([]models.Page, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".md":
		return parseMarkdown(filePath)
	case ".txt":
		return parseText(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parsePDF(filePath string) ([]models.Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %v", err)
	}

	var pages []models.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %v", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, models.Page{Number: i, Text: pageText})
	}
	return pages, nil
}

func parseDOCX(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	content := strings.TrimSpace(doc.GetContent())
	if content == "" {
		return nil, nil
	}
	// DOCX has no page numbers
	return []models.Page{{Number: defaultPageNumber, Text: content}}, nil
}

// parseMarkdown walks the goldmark AST and collects the plain text, so
// formatting syntax never ends up in the index.
func parseMarkdown(filePath string) ([]models.Page, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	p := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()
	root := p.Parse(gmtext.NewReader(src))

	var text strings.Builder
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				text.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					text.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			text.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk markdown: %v", err)
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, nil
	}
	return []models.Page{{Number: defaultPageNumber, Text: content}}, nil
}

func parseText(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}
	return []models.Page{{Number: defaultPageNumber, Text: content}}, nil
}

func parseXLSX(filePath string) ([]models.Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		hasCells := false
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				if v := cell.String(); strings.TrimSpace(v) != "" {
					hasCells = true
				}
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		if !hasCells {
			continue
		}
		// 1-based, the sheet number stands in for the page number
		pages = append(pages, models.Page{Number: sheetNum + 1, Text: text.String()})
	}
	return pages, nil
}

func parseODS(filePath string) ([]models.Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		hasCells := false
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					hasCells = true
				}
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		if !hasCells {
			continue
		}
		pages = append(pages, models.Page{Number: sheetNum + 1, Text: text.String()})
	}
	return pages, nil
}
