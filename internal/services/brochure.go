package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/gosimple/slug"
)

var brochureTemplate = template.Must(template.New("brochure").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 32px; color: #222; }
h1 { margin-bottom: 4px; }
.price { font-size: 22px; color: #0a6; margin: 8px 0 16px; }
table { border-collapse: collapse; width: 100%; }
td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
td.label { color: #666; width: 35%; }
img { max-width: 48%; margin: 4px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Project}}<div>{{.Project}}</div>{{end}}
<div class="price">{{.Price}}</div>
<table>
{{range .Facts}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Description}}<h3>About</h3><p>{{.Description}}</p>{{end}}
{{range .Photos}}<img src="{{.}}">{{end}}
</body>
</html>
`))

type brochureFact struct {
	Label string
	Value string
}

type brochureView struct {
	Title       string
	Project     string
	Price       string
	Description string
	Facts       []brochureFact
	Photos      []string
}

// BrochureService renders a property sheet and converts it to PDF.
type BrochureService struct {
	properties *PropertyService
	converter  PDFConverter
}

func NewBrochureService(properties *PropertyService, converter PDFConverter) *BrochureService {
	return &BrochureService{properties: properties, converter: converter}
}

// RenderHTML builds the brochure page for p. Attachment URLs must already be signed.
func RenderHTML(p *models.Property) ([]byte, error) {
	view := brochureView{
		Title:       p.Title,
		Price:       utils.FormatPrice(p.Price),
		Description: p.Description,
	}
	if p.Project != nil {
		view.Project = p.Project.Name
	}

	add := func(label, value string) {
		if value != "" {
			view.Facts = append(view.Facts, brochureFact{Label: label, Value: value})
		}
	}
	add("Configuration", p.BHK)
	add("Property type", p.PropertyType)
	add("Location", p.Location)
	if p.CarpetArea > 0 {
		add("Carpet area", utils.AreaLabel(p.CarpetArea))
	}
	if p.FloorNumber > 0 {
		floor := utils.FloorLabel(p.FloorNumber)
		if p.TotalFloors > 0 {
			floor = fmt.Sprintf("%s of %d", floor, p.TotalFloors)
		}
		add("Floor", floor)
	}
	add("Construction status", p.ConstructionStatus)
	add("Possession", p.PossessionDate)
	add("Financing", p.FinancingOption)
	add("Status", string(p.Status))

	for _, a := range p.Attachments {
		if a.Group == models.GroupPhoto && a.URL != "" {
			view.Photos = append(view.Photos, a.URL)
		}
	}

	var buf bytes.Buffer
	if err := brochureTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Generate returns the brochure PDF and a download file name.
func (s *BrochureService) Generate(ctx context.Context, propertyID string) (io.ReadCloser, string, error) {
	property, err := s.properties.GetPropertyDetails(ctx, propertyID)
	if err != nil {
		return nil, "", err
	}
	html, err := RenderHTML(property)
	if err != nil {
		return nil, "", utils.WrapInternal(err, "failed to render brochure")
	}
	if s.converter == nil {
		return nil, "", utils.WrapInternal(fmt.Errorf("no PDF converter configured"), "brochure generation is unavailable")
	}
	pdf, err := s.converter.ConvertToPDF(ctx, html, "brochure.html")
	if err != nil {
		return nil, "", utils.WrapInternal(err, "failed to generate brochure")
	}
	return pdf, slug.Make(property.Title) + "-brochure.pdf", nil
}
