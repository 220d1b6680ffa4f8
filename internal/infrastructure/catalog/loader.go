package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// yamlProduct is one product entry of a YAML catalog. Prices are strings so
// that "12,50" is accepted as in spreadsheets.
type yamlProduct struct {
	Name     string `yaml:"nombre"`
	Price    string `yaml:"precio"`
	Unit     string `yaml:"unidad"`
	Category string `yaml:"categoria"`
}

type yamlCatalog struct {
	Products []yamlProduct `yaml:"productos"`
}

// LoadFile reads a catalog from a spreadsheet (.xlsx, first sheet), a .csv
// file or a .yaml/.yml document. Rows that cannot be mapped are skipped
// with a warning.
func LoadFile(path string, logger *zap.Logger) (*domain.Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	case ".yaml", ".yml":
		rows, err = readYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCatalogFormat, path)
	}
	if err != nil {
		return nil, err
	}

	return buildCatalog(rows, logger.With(zap.String("path", path)))
}

func buildCatalog(rows [][]string, logger *zap.Logger) (*domain.Catalog, error) {
	header, data := firstNonEmpty(rows)
	if header == nil {
		return nil, domain.ErrCatalogEmpty
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(data))
	seen := make(map[string]bool, len(data))
	for i, row := range data {
		if isBlank(row) {
			continue
		}
		p, err := mapRow(row, cols)
		if err != nil {
			logger.Warn("skipping catalog row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		if seen[p.Name] {
			logger.Warn("skipping duplicate catalog row", zap.Int("row", i+2), zap.String("product", p.Name))
			continue
		}
		seen[p.Name] = true
		products = append(products, p)
	}

	return domain.NewCatalog(products)
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrCatalogEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffSeparator(string(data))

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return rows, nil
}

// sniffSeparator picks ';' for spreadsheets exported with a Spanish locale.
func sniffSeparator(data string) rune {
	line, _, _ := strings.Cut(data, "\n")
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func readYAML(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading yaml catalog: %w", err)
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml catalog: %w", err)
	}

	rows := make([][]string, 0, len(doc.Products)+1)
	rows = append(rows, []string{"nombre", "precio", "unidad", "categoria"})
	for _, p := range doc.Products {
		rows = append(rows, []string{p.Name, p.Price, p.Unit, p.Category})
	}
	return rows, nil
}

// LoadSynonyms reads a YAML map of colloquial phrase to catalog name. A
// missing file yields an empty table.
func LoadSynonyms(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading synonyms: %w", err)
	}

	synonyms := map[string]string{}
	if err := yaml.Unmarshal(data, &synonyms); err != nil {
		return nil, fmt.Errorf("parsing synonyms: %w", err)
	}
	return synonyms, nil
}

// FileSource serves the catalog and synonyms from files on disk. Every
// load reads the files again, which is what a catalog reload relies on.
type FileSource struct {
	CatalogPath  string
	SynonymsPath string
	Logger       *zap.Logger
}

// LoadCatalog implements domain.CatalogSource.
func (s FileSource) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.CatalogPath, s.Logger)
}

// LoadSynonyms implements domain.CatalogSource.
func (s FileSource) LoadSynonyms(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadSynonyms(s.SynonymsPath)
}

func firstNonEmpty(rows [][]string) ([]string, [][]string) {
	for i, row := range rows {
		if !isBlank(row) {
			return row, rows[i+1:]
		}
	}
	return nil, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
