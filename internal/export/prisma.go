// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"fmt"
)

// PRISMAData holds the counts shown in the PRISMA 2020 flow diagram.
type PRISMAData struct {
	RecordsIdentified int
	DuplicatesRemoved int
	RecordsScreened   int
	RecordsExcluded   int
	RecordsIncluded   int
	StudiesExtracted  int
}

// WritePRISMA generates the PRISMA flow diagram for the project as SVG.
func (m *Manager) WritePRISMA(ctx context.Context, projectID int64, path string) error {
	stats, err := m.store.ProjectScreeningStats(ctx, projectID)
	if err != nil {
		return err
	}
	extracted, err := m.store.CountExtracted(ctx, projectID)
	if err != nil {
		return err
	}

	data := PRISMAData{
		RecordsIdentified: stats.Total,
		RecordsScreened:   stats.Total,
		RecordsExcluded:   stats.Excluded,
		RecordsIncluded:   stats.Included,
		StudiesExtracted:  extracted,
	}
	return writeFile(path, renderPRISMA(data))
}

const (
	svgWidth  = 800
	svgHeight = 960
	boxWidth  = 260
	boxHeight = 72
)

var sectionColors = map[string]string{
	"IDENTIFICATION": "#E3F2FD",
	"SCREENING":      "#FFF3E0",
	"INCLUDED":       "#E8F5E9",
	"exclusion":      "#FFEBEE",
}

// renderPRISMA lays out the flow diagram: a center column of stage boxes
// joined by arrows, with exclusion boxes branching right.
func renderPRISMA(data PRISMAData) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" font-family="Helvetica, Arial, sans-serif">`+"\n", svgWidth, svgHeight)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#FFFFFF"/>`+"\n", svgWidth, svgHeight)

	centerX := svgWidth / 2
	y := 30

	y = sectionBanner(&b, "IDENTIFICATION", y)
	y = stageBox(&b, centerX, y, sectionColors["IDENTIFICATION"], []string{
		"Records identified through",
		"database searching",
		fmt.Sprintf("(n = %d)", data.RecordsIdentified),
	})
	y = arrowDown(&b, centerX, y)
	y = stageBox(&b, centerX, y, sectionColors["IDENTIFICATION"], []string{
		"Records after duplicates removed",
		fmt.Sprintf("(n = %d)", data.RecordsIdentified-data.DuplicatesRemoved),
	})

	y = sectionBanner(&b, "SCREENING", y+20)
	y = arrowDown(&b, centerX, y)
	screenedTop := y
	y = stageBox(&b, centerX, y, sectionColors["SCREENING"], []string{
		"Records screened",
		fmt.Sprintf("(n = %d)", data.RecordsScreened),
	})
	arrowRight(&b, centerX+boxWidth/2, screenedTop+boxHeight/2)
	sideBox(&b, screenedTop, sectionColors["exclusion"], []string{
		"Records excluded",
		fmt.Sprintf("(n = %d)", data.RecordsExcluded),
	})

	y = sectionBanner(&b, "INCLUDED", y+20)
	y = arrowDown(&b, centerX, y)
	y = stageBox(&b, centerX, y, sectionColors["INCLUDED"], []string{
		"Studies included in review",
		fmt.Sprintf("(n = %d)", data.RecordsIncluded),
	})
	y = arrowDown(&b, centerX, y)
	stageBox(&b, centerX, y, sectionColors["INCLUDED"], []string{
		"Studies with extracted data",
		fmt.Sprintf("(n = %d)", data.StudiesExtracted),
	})

	b.WriteString("</svg>\n")
	return b.Bytes()
}

func sectionBanner(b *bytes.Buffer, title string, y int) int {
	fmt.Fprintf(b, `<rect x="20" y="%d" width="%d" height="30" fill="%s" stroke="#424242"/>`+"\n",
		y, svgWidth-40, sectionColors[title])
	fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle" font-size="16" font-weight="bold" fill="#212121">%s</text>`+"\n",
		svgWidth/2, y+20, title)
	return y + 44
}

func stageBox(b *bytes.Buffer, centerX, y int, color string, lines []string) int {
	box(b, centerX-boxWidth/2, y, color, lines)
	return y + boxHeight + 8
}

func sideBox(b *bytes.Buffer, y int, color string, lines []string) {
	box(b, svgWidth-boxWidth-30, y, color, lines)
}

func box(b *bytes.Buffer, x, y int, color string, lines []string) {
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#424242" stroke-width="2"/>`+"\n",
		x, y, boxWidth, boxHeight, color)
	lineHeight := 18
	startY := y + boxHeight/2 - (len(lines)*lineHeight)/2 + 13
	for i, line := range lines {
		fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle" font-size="13" fill="#212121">%s</text>`+"\n",
			x+boxWidth/2, startY+i*lineHeight, line)
	}
}

func arrowDown(b *bytes.Buffer, x, y int) int {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#424242" stroke-width="2"/>`+"\n", x, y, x, y+20)
	fmt.Fprintf(b, `<polygon points="%d,%d %d,%d %d,%d" fill="#424242"/>`+"\n",
		x-5, y+15, x, y+20, x+5, y+15)
	return y + 24
}

func arrowRight(b *bytes.Buffer, x, y int) {
	end := svgWidth - boxWidth - 30
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#424242" stroke-width="2"/>`+"\n", x, y, end, y)
	fmt.Fprintf(b, `<polygon points="%d,%d %d,%d %d,%d" fill="#424242"/>`+"\n",
		end-5, y-5, end, y, end-5, y+5)
}
