// Package export renders evaluation results into styled spreadsheets: one
// independent workbook per run plus a cumulative master history.
package export

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/model"
	"github.com/conforme/conforme-cli/internal/parse"
)

const sheetName = "Resultados Compliance"

// Column widths keyed by header name; unlisted columns get 20.
var columnWidths = map[string]float64{
	"Data":                  18,
	"Nome do Arquivo":       30,
	"Caminho Pasta":         50,
	"Hash SHA256":           15,
	"Conteudo Identificado": 40,
	"Violacoes Encontradas": 35,
	"Avaliacao":             60,
	"Resultado":             15,
	"Justificativa":         40,
	"Recomendacoes":         40,
	"Status Processamento":  15,
	"Erro":                  40,
	"Parecer Final Humano":  40,
}

var resultFills = map[string]string{
	"APROVADO":     "FFC6EFCE",
	"REPROVADO":    "FFFFC7CE",
	"INCONCLUSIVO": "FFFFEB9C",
}

// Exporter writes evaluation results to spreadsheets.
type Exporter struct {
	outputDir  string
	prefix     string
	dateFormat string
	masterName string

	// Now is the clock used for run filenames. Tests override it.
	Now func() time.Time
}

// New builds an Exporter from the loaded configuration.
func New(cfg *config.Config) *Exporter {
	return &Exporter{
		outputDir:  cfg.Paths.OutputFolder,
		prefix:     cfg.Export.FilenamePrefix,
		dateFormat: cfg.Export.DateFormat,
		masterName: cfg.Export.MasterFilename,
		Now:        time.Now,
	}
}

// BuildRows flattens results into export rows. The result column carries the
// verdict recorded on the item; for older artifacts without one it is derived
// from the extracted RESULTADO field with a violations/evaluation fallback.
// It stays empty for items that errored, and the human-opinion column always
// starts empty.
func BuildRows(res *model.Results) []model.Row {
	rows := make([]model.Row, 0, len(res.Results))
	for _, item := range res.Results {
		fields := item.ExtractedFields

		result := ""
		if item.Status != model.StatusError && item.Error == "" {
			result = string(item.Verdict)
			if result == "" {
				result = string(parse.ResolveVerdict(fields))
			}
		}

		path := item.SourcePath
		if path == "" && item.OriginFolder != "" && item.SourceFile != "" {
			path = filepath.Join(item.OriginFolder, item.SourceFile)
		}

		date := ""
		if !item.Timestamp.IsZero() {
			date = item.Timestamp.Format("02/01/2006 15:04")
		}

		rows = append(rows, model.Row{
			Date:        date,
			FileName:    item.SourceFile,
			FolderPath:  path,
			SHA256:      item.SHA256,
			Content:     fields["CONTEUDO_IDENTIFICADO"],
			Violations:  fields["VIOLACOES_ENCONTRADAS"],
			Evaluation:  parse.SummarizeEvaluation(fields, 500),
			Result:      result,
			Rationale:   fields["JUSTIFICATIVA"],
			Suggestions: fields["RECOMENDACOES"],
			Status:      string(item.Status),
			Error:       item.Error,
		})
	}
	return rows
}

// Export writes the per-run workbook and appends the same rows to the
// cumulative master, returning both paths.
func (e *Exporter) Export(res *model.Results) (runPath, masterPath string, err error) {
	rows := BuildRows(res)
	if len(rows) == 0 {
		return "", "", eris.New("export: no results to export")
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", "", eris.Wrapf(err, "export: creating output folder %s", e.outputDir)
	}

	runPath, err = e.saveRunWorkbook(rows)
	if err != nil {
		return "", "", err
	}

	masterPath, err = e.appendToMaster(rows)
	if err != nil {
		return "", "", err
	}

	zap.L().Info("export: workbooks written",
		zap.String("run", runPath),
		zap.String("master", masterPath),
		zap.Int("rows", len(rows)),
	)
	return runPath, masterPath, nil
}

func (e *Exporter) saveRunWorkbook(rows []model.Row) (string, error) {
	now := e.Now()
	name := e.prefix + now.Format(e.dateFormat) + ".xlsx"
	path := filepath.Join(e.outputDir, name)
	if _, err := os.Stat(path); err == nil {
		name = e.prefix + now.Format(e.dateFormat) + "_" + now.Format("150405") + ".xlsx"
		path = filepath.Join(e.outputDir, name)
	}

	file, err := newWorkbook(rows)
	if err != nil {
		return "", err
	}
	if err := file.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: saving %s", path)
	}
	return path, nil
}

func (e *Exporter) appendToMaster(rows []model.Row) (string, error) {
	path := filepath.Join(e.outputDir, e.masterName)

	if _, err := os.Stat(path); err != nil {
		file, buildErr := newWorkbook(rows)
		if buildErr != nil {
			return "", buildErr
		}
		if err := file.Save(path); err != nil {
			return "", eris.Wrapf(err, "export: saving master %s", path)
		}
		return path, nil
	}

	file, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "export: opening master %s", path)
	}
	if len(file.Sheets) == 0 {
		return "", eris.Errorf("export: master %s has no sheets", path)
	}

	sheet := file.Sheets[0]
	for _, r := range rows {
		addDataRow(sheet, r)
	}
	if err := file.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: saving master %s", path)
	}
	return path, nil
}

func newWorkbook(rows []model.Row) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: adding sheet")
	}

	header := sheet.AddRow()
	header.SetHeight(30)
	headerStyle := newHeaderStyle()
	for i, name := range model.RowColumns {
		cell := header.AddCell()
		cell.Value = name
		cell.SetStyle(headerStyle)

		width, ok := columnWidths[name]
		if !ok {
			width = 20
		}
		sheet.SetColWidth(i+1, i+1, width)
	}

	for _, r := range rows {
		addDataRow(sheet, r)
	}
	return file, nil
}

func addDataRow(sheet *xlsx.Sheet, r model.Row) {
	cellStyle := newCellStyle()
	row := sheet.AddRow()
	for i, value := range r.Values() {
		cell := row.AddCell()
		cell.Value = value
		if model.RowColumns[i] == "Resultado" {
			cell.SetStyle(newResultStyle(value))
		} else {
			cell.SetStyle(cellStyle)
		}
	}
}

func newHeaderStyle() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Font = xlsx.Font{Size: 11, Bold: true, Color: "FFFFFFFF"}
	style.Fill = *xlsx.NewFill("solid", "FF1F4E79", "FF1F4E79")
	style.Alignment = xlsx.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	style.Border = *xlsx.NewBorder("thin", "thin", "thin", "thin")
	style.ApplyFont = true
	style.ApplyFill = true
	style.ApplyAlignment = true
	style.ApplyBorder = true
	return style
}

func newCellStyle() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Alignment = xlsx.Alignment{Vertical: "top", WrapText: true}
	style.Border = *xlsx.NewBorder("thin", "thin", "thin", "thin")
	style.ApplyAlignment = true
	style.ApplyBorder = true
	return style
}

func newResultStyle(result string) *xlsx.Style {
	color, ok := resultFills[strings.ToUpper(strings.TrimSpace(result))]
	if !ok {
		color = "FFFFFFFF"
	}
	style := xlsx.NewStyle()
	style.Fill = *xlsx.NewFill("solid", color, color)
	style.Alignment = xlsx.Alignment{Horizontal: "center", Vertical: "center"}
	style.Border = *xlsx.NewBorder("thin", "thin", "thin", "thin")
	style.ApplyFill = true
	style.ApplyAlignment = true
	style.ApplyBorder = true
	return style
}
