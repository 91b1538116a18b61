package parser

import (
	"fmt"
	"strings"

	"mandi-prices/models"

	"github.com/PuerkitoBio/goquery"
)

// RowSelector matches the body rows of every table on the page
const RowSelector = "table > tbody > tr"

// MinCells is the number of cells a row needs to become a record
const MinCells = 6

// TablePage is what one rendered page of the trade-data table holds
type TablePage struct {
	Records []models.PriceRecord
	// Skipped counts body rows with fewer than MinCells cells
	Skipped int
	// Signature changes whenever the rendered rows change
	Signature string
}

// Rows counts every body row, records and skipped alike
func (p TablePage) Rows() int {
	return len(p.Records) + p.Skipped
}

// Parser extracts price records from rendered HTML
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseTable extracts one record per body row that has at least MinCells
// cells. Cells 0-5 map positionally to state, mandi, commodity, min, modal and
// max price; extra cells are ignored.
func (p *Parser) ParseTable(htmlContent string) (TablePage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return TablePage{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var page TablePage
	var sig strings.Builder

	doc.Find(RowSelector).Each(func(i int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, cellText(cell))
		})

		sig.WriteString(strings.Join(texts, "\x1f"))
		sig.WriteByte('\x1e')

		if len(texts) < MinCells {
			page.Skipped++
			return
		}
		page.Records = append(page.Records, models.PriceRecord{
			State:      texts[0],
			Mandi:      texts[1],
			Commodity:  texts[2],
			MinPrice:   texts[3],
			ModalPrice: texts[4],
			MaxPrice:   texts[5],
		})
	})

	page.Signature = sig.String()
	return page, nil
}

// HasElement reports whether the CSS selector matches anything in the HTML
func (p *Parser) HasElement(htmlContent, selector string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return false, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc.Find(selector).Length() > 0, nil
}

// cellText returns the visible text of a cell with whitespace collapsed
func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
