/* Loading of named gene lists from several curated catalogs into one lookup */

package genesetutils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	"github.com/biogo/store/llrb"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

/*Source one catalog to load */
type Source = utils.GeneSetSource

/*Supported source kinds */
const (
	KindTable = "table"
	KindExcel = "excel"
	KindGMT   = "gmt"
)

/*ErrUnknownKind returned for a source kind that cannot be read */
var ErrUnknownKind = errors.New("unknown gene-set source kind")

/*GeneSet named, uppercase, deduplicated gene list */
type GeneSet struct {
	Name    string
	Catalog string
	Genes   []string
}

/*Compare order gene sets by name inside the catalog tree */
func (g *GeneSet) Compare(b llrb.Comparable) int {
	return strings.Compare(g.Name, b.(*GeneSet).Name)
}

/*Contains whether the (uppercase) gene belongs to the set */
func (g *GeneSet) Contains(gene string) bool {
	gene = NormalizeSymbol(gene)

	for _, member := range g.Genes {
		if member == gene {
			return true
		}
	}

	return false
}

/*Catalog gene sets ordered by name */
type Catalog struct {
	tree llrb.Tree
}

/*NewCatalog empty catalog */
func NewCatalog() *Catalog {
	return &Catalog{}
}

/*Add insert a gene set. A set already present under the same name receives the new
members not yet listed */
func (c *Catalog) Add(set GeneSet) {
	genes := normalizeGenes(set.Genes)

	if existing := c.tree.Get(&GeneSet{Name: set.Name}); existing != nil {
		current := existing.(*GeneSet)
		current.Genes = normalizeGenes(append(current.Genes, genes...))
		return
	}

	c.tree.Insert(&GeneSet{Name: set.Name, Catalog: set.Catalog, Genes: genes})
}

/*Get the gene set with this name */
func (c *Catalog) Get(name string) (GeneSet, bool) {
	found := c.tree.Get(&GeneSet{Name: name})

	if found == nil {
		return GeneSet{}, false
	}

	return *found.(*GeneSet), true
}

/*Len number of gene sets */
func (c *Catalog) Len() int {
	return c.tree.Len()
}

/*Sets all gene sets sorted by name */
func (c *Catalog) Sets() []GeneSet {
	sets := make([]GeneSet, 0, c.tree.Len())

	c.tree.Do(func(item llrb.Comparable) bool {
		sets = append(sets, *item.(*GeneSet))
		return false
	})

	return sets
}

/*Names gene-set names sorted */
func (c *Catalog) Names() []string {
	names := make([]string, 0, c.tree.Len())

	c.tree.Do(func(item llrb.Comparable) bool {
		names = append(names, item.(*GeneSet).Name)
		return false
	})

	return names
}

/*Select gene sets whose name matches the pattern */
func (c *Catalog) Select(pattern *regexp.Regexp) []GeneSet {
	var sets []GeneSet

	for _, set := range c.Sets() {
		if pattern.MatchString(set.Name) {
			sets = append(sets, set)
		}
	}

	return sets
}

/*NormalizeSymbol case-normalized gene symbol */
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func isPadding(symbol string) bool {
	switch symbol {
	case "", "NA", "NAN", "NULL":
		return true
	}

	return false
}

/*normalizeGenes uppercase, drop padding and duplicates, keep the first-seen order */
func normalizeGenes(genes []string) []string {
	seen := make(map[string]bool, len(genes))
	out := make([]string, 0, len(genes))

	for _, gene := range genes {
		gene = NormalizeSymbol(gene)

		if isPadding(gene) || seen[gene] {
			continue
		}

		seen[gene] = true
		out = append(out, gene)
	}

	return out
}

/*SourceKind kind of a source, guessed from the extension when not given */
func SourceKind(source Source) string {
	if source.Kind != "" {
		return source.Kind
	}

	ext := path.Ext(strings.TrimSuffix(strings.TrimSuffix(source.Path, ".gz"), ".bz2"))

	switch strings.ToLower(ext) {
	case ".xlsx", ".xlsm", ".xls":
		return KindExcel
	case ".gmt":
		return KindGMT
	default:
		return KindTable
	}
}

/*LoadCatalog load every source into one catalog. Names are suffixed with the catalog
name of their source. Optional sources that cannot be read are logged and skipped */
func LoadCatalog(sources []Source, logger log.FieldLogger) (*Catalog, error) {
	catalog := NewCatalog()
	timer := utils.Timer()

	for _, source := range sources {
		sets, err := LoadSource(source)

		if err != nil {
			if source.Optional {
				logger.WithFields(log.Fields{
					"catalog": source.Catalog,
					"path":    source.Path,
					"err":     err,
				}).Warn("optional gene-set source skipped")
				continue
			}

			return nil, fmt.Errorf("gene-set source %s (%s): %w", source.Catalog, source.Path, err)
		}

		for _, set := range sets {
			catalog.Add(set)
		}

		logger.WithFields(log.Fields{
			"catalog": source.Catalog,
			"sets":    len(sets),
		}).Info("gene-set source loaded")
	}

	logger.WithFields(log.Fields{
		"sets":    catalog.Len(),
		"seconds": timer().Seconds(),
	}).Info("gene-set catalog done")

	return catalog, nil
}

/*LoadSource read one source: exclusion filter, suffixing and normalization applied */
func LoadSource(source Source) ([]GeneSet, error) {
	var exclude *regexp.Regexp
	var err error

	if source.Exclude != "" {
		if exclude, err = regexp.Compile(source.Exclude); err != nil {
			return nil, fmt.Errorf("exclude pattern: %w", err)
		}
	}

	var names []string
	var members map[string][]string

	switch SourceKind(source) {
	case KindTable:
		names, members, err = readWideTableFile(source.Path, source.Separator)
	case KindExcel:
		names, members, err = readExcel(source.Path, source.Sheet)
	case KindGMT:
		names, members, err = readGMT(source.Path)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownKind, source.Kind)
	}

	if err != nil {
		return nil, err
	}

	sets := make([]GeneSet, 0, len(names))

	for _, name := range names {
		if exclude != nil && exclude.MatchString(name) {
			continue
		}

		sets = append(sets, GeneSet{
			Name:    SuffixedName(name, source.Catalog),
			Catalog: source.Catalog,
			Genes:   normalizeGenes(members[name]),
		})
	}

	return sets, nil
}

/*SuffixedName name of a set disambiguated by its catalog */
func SuffixedName(name, catalog string) string {
	name = strings.TrimSpace(name)

	if catalog == "" {
		return name
	}

	return name + "_" + catalog
}

func separatorFor(fname, sep string) rune {
	if sep != "" {
		if sep == `\t` {
			return '\t'
		}

		return []rune(sep)[0]
	}

	if strings.HasSuffix(strings.TrimSuffix(strings.TrimSuffix(fname, ".gz"), ".bz2"), ".csv") {
		return ','
	}

	return '\t'
}

func readWideTableFile(fname, sep string) ([]string, map[string][]string, error) {
	stream, err := utils.OpenStream(fname)

	if err != nil {
		return nil, nil, err
	}

	defer stream.Close()

	reader := csv.NewReader(stream)
	reader.Comma = separatorFor(fname, sep)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string

	for {
		record, err := reader.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", fname, err)
		}

		rows = append(rows, record)
	}

	return wideRows(rows)
}

/*wideRows header row holds the set names, each column lists the members */
func wideRows(rows [][]string) ([]string, map[string][]string, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("empty gene-set table")
	}

	header := rows[0]
	members := make(map[string][]string, len(header))
	var names []string

	for _, name := range header {
		name = strings.TrimSpace(name)

		if name == "" {
			continue
		}

		if _, isInside := members[name]; !isInside {
			names = append(names, name)
			members[name] = nil
		}
	}

	for _, row := range rows[1:] {
		for col, value := range row {
			if col >= len(header) {
				break
			}

			name := strings.TrimSpace(header[col])

			if name == "" {
				continue
			}

			members[name] = append(members[name], value)
		}
	}

	return names, members, nil
}

func readExcel(fname, sheet string) ([]string, map[string][]string, error) {
	workbook, err := excelize.OpenFile(fname)

	if err != nil {
		return nil, nil, err
	}

	defer workbook.Close()

	if sheet == "" {
		sheets := workbook.GetSheetList()

		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("no sheet in %s", fname)
		}

		sheet = sheets[0]
	}

	rows, err := workbook.GetRows(sheet)

	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s of %s: %w", sheet, fname, err)
	}

	return wideRows(rows)
}

func readGMT(fname string) ([]string, map[string][]string, error) {
	scanner, closer, err := utils.OpenReader(fname)

	if err != nil {
		return nil, nil, err
	}

	defer closer.Close()

	var names []string
	members := make(map[string][]string)

	for scanner.Scan() {
		split := strings.Split(scanner.Text(), "\t")

		if len(split) < 2 || strings.TrimSpace(split[0]) == "" {
			continue
		}

		name := strings.TrimSpace(split[0])

		if _, isInside := members[name]; !isInside {
			names = append(names, name)
		}

		members[name] = append(members[name], split[2:]...)
	}

	if err = scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", fname, err)
	}

	return names, members, nil
}

/*WriteWideTable write gene sets as a wide table (one column per set, ragged columns
padded with empty cells) */
func WriteWideTable(fname string, sets []GeneSet) error {
	writer, err := utils.OpenWriter(fname)

	if err != nil {
		return err
	}

	table := csv.NewWriter(writer)
	table.Comma = separatorFor(fname, "")

	header := make([]string, len(sets))
	longest := 0

	for i, set := range sets {
		header[i] = set.Name

		if len(set.Genes) > longest {
			longest = len(set.Genes)
		}
	}

	table.Write(header)

	for row := 0; row < longest; row++ {
		record := make([]string, len(sets))

		for i, set := range sets {
			if row < len(set.Genes) {
				record[i] = set.Genes[row]
			}
		}

		table.Write(record)
	}

	table.Flush()

	if err = table.Error(); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}
