package sender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/lvanheel/teamdigest/internal/report"
)

// ExcelConfig is the output.excel block of a report definition.
type ExcelConfig struct {
	Directory string `yaml:"directory"`
	Scope     string `yaml:"scope"`
}

// Excel archives a digest as an xlsx workbook: an overview sheet plus one
// sheet per project with the task lines as rows.
type Excel struct {
	cfg    ExcelConfig
	dryRun bool
	diag   io.Writer
	logger *slog.Logger
}

func newExcelChannels(node yaml.Node, opts Options) ([]Channel, error) {
	var cfg ExcelConfig
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("excel channel config: %w", err)
	}
	if cfg.Directory == "" {
		cfg.Directory = "digests"
	}
	if cfg.Scope == "" {
		cfg.Scope = report.ScopeAll
	}
	e := &Excel{cfg: cfg, dryRun: opts.DryRun, diag: opts.Diag, logger: opts.Logger}
	return []Channel{{Tag: "excel", Scope: cfg.Scope, Format: report.FormatPlain, Sender: e}}, nil
}

func (e *Excel) Name() string {
	return "excel"
}

func (e *Excel) Send(ctx context.Context, d *report.Digest) error {
	if e.dryRun {
		e.logger.Info("dry run, skipping workbook write", "directory", e.cfg.Directory)
		fmt.Fprintf(e.diag, "Workbook: digest_%s.xlsx\n%s\n", d.Window, d.Body)
		return nil
	}

	if err := os.MkdirAll(e.cfg.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(e.cfg.Directory, fmt.Sprintf("digest_%s.xlsx", d.Window))

	f := excelize.NewFile()
	defer f.Close()

	if err := e.createOverviewSheet(f, d); err != nil {
		return fmt.Errorf("failed to create overview: %w", err)
	}
	for _, section := range d.Sections {
		if err := e.createProjectSheet(f, section); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", section.Project, err)
		}
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	e.logger.Info("digest archived", "file", filename)
	return nil
}

func (e *Excel) createOverviewSheet(f *excelize.File, d *report.Digest) error {
	const sheetName = "Overview"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", "Subject:")
	f.SetCellValue(sheetName, "B1", d.Subject)
	f.SetCellValue(sheetName, "A2", "Date From:")
	f.SetCellValue(sheetName, "B2", d.Window.Start.Format("2006-01-02"))
	f.SetCellValue(sheetName, "A3", "Date To:")
	f.SetCellValue(sheetName, "B3", d.Window.End.Format("2006-01-02"))

	row := 5
	f.SetCellValue(sheetName, cellName(1, row), "Project")
	f.SetCellValue(sheetName, cellName(2, row), "Completed Tasks")
	f.SetCellStyle(sheetName, cellName(1, row), cellName(2, row), headerStyle)
	row++

	for _, section := range d.Sections {
		f.SetCellValue(sheetName, cellName(1, row), section.Project)
		f.SetCellValue(sheetName, cellName(2, row), len(section.Lines))
		row++
	}

	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", "B", 60)
	return nil
}

func (e *Excel) createProjectSheet(f *excelize.File, section report.Section) error {
	sheetName := sanitizeSheetName(section.Project)
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", "#")
	f.SetCellValue(sheetName, "B1", "Completed Task")
	f.SetCellStyle(sheetName, "A1", "B1", headerStyle)

	for i, line := range section.Lines {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), strings.TrimPrefix(line, "* "))
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 80)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return nil
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
