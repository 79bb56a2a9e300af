package scrnautils

import (
	"bufio"
	originalbzip2 "compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	gzip "github.com/klauspost/pgzip"
)

/*Filename type used to check if files exists */
type Filename string

/*Set ... */
func (i *Filename) Set(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("!!!!Error %s with file: %s", err, filename)
	}

	*i = Filename(filename)
	return nil
}

func (i *Filename) String() string {
	return string(*i)
}

/*BUFFERSIZE initial scanner buffer size */
const BUFFERSIZE = 1000000

/*MAXLINESIZE longest line accepted by the scanners (wide gene-set tables can be long) */
const MAXLINESIZE = 64 * BUFFERSIZE

/*Pair ...*/
type Pair struct {
	Key   string
	Value int
}

/*PairList ...*/
type PairList []Pair

func (p PairList) Len() int      { return len(p) }
func (p PairList) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

/*Less by count, then reverse alphabetical so that RankByCount lists equal counts alphabetically */
func (p PairList) Less(i, j int) bool {
	if p[i].Value != p[j].Value {
		return p[i].Value < p[j].Value
	}
	return p[i].Key > p[j].Key
}

/*ArrayFlags ... */
type ArrayFlags []string

/*String ... */
func (i *ArrayFlags) String() string {
	return strings.Join(*i, "\t")
}

/*Set ... */
func (i *ArrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

/*RankByCount rank a key->count dict from the highest to the lowest count */
func RankByCount(counts map[string]int) PairList {
	pl := make(PairList, 0, len(counts))

	for k, v := range counts {
		pl = append(pl, Pair{k, v})
	}

	sort.Sort(sort.Reverse(pl))

	return pl
}

/*Check ... */
func Check(err error) {
	if err != nil {
		panic(err)
	}
}

/*CloseFile close file checking error */
func CloseFile(file io.Closer) {
	err := file.Close()
	Check(err)
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error

	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

type streamReader struct {
	io.Reader
	io.Closer
}

/*OpenStream open a (possibly .gz or .bz2 compressed) file for reading */
func OpenStream(fname string) (io.ReadCloser, error) {
	fileOpen, err := os.Open(fname)

	if err != nil {
		return nil, err
	}

	switch path.Ext(fname) {
	case ".gz":
		readerGzip, err := gzip.NewReader(bufio.NewReader(fileOpen))

		if err != nil {
			fileOpen.Close()
			return nil, fmt.Errorf("gzip header of %s: %w", fname, err)
		}

		return streamReader{readerGzip, multiCloser{readerGzip, fileOpen}}, nil
	case ".bz2":
		readerBzip := originalbzip2.NewReader(bufio.NewReader(fileOpen))
		return streamReader{readerBzip, fileOpen}, nil
	default:
		return fileOpen, nil
	}
}

/*OpenReader return a line scanner for a (possibly compressed) file */
func OpenReader(fname string) (*bufio.Scanner, io.Closer, error) {
	stream, err := OpenStream(fname)

	if err != nil {
		return nil, nil, err
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, BUFFERSIZE), MAXLINESIZE)

	return scanner, stream, nil
}

/*OpenWriter open a writer, compressed according to the file extension (.gz or .bz2) */
func OpenWriter(fname string) (io.WriteCloser, error) {
	outputFile, err := os.Create(fname)

	if err != nil {
		return nil, err
	}

	switch path.Ext(fname) {
	case ".bz2":
		bzipFile, err := bzip2.NewWriter(outputFile, new(bzip2.WriterConfig))

		if err != nil {
			outputFile.Close()
			return nil, err
		}

		return writerCloser{bzipFile, multiCloser{bzipFile, outputFile}}, nil
	case ".gz":
		gzipFile := gzip.NewWriter(outputFile)
		return writerCloser{gzipFile, multiCloser{gzipFile, outputFile}}, nil
	default:
		return outputFile, nil
	}
}

type writerCloser struct {
	io.Writer
	io.Closer
}

/*LoadIDList load the first column of each non-empty line of a file (cell IDs, gene IDs...) */
func LoadIDList(fname string) ([]string, error) {
	scanner, closer, err := OpenReader(fname)

	if err != nil {
		return nil, err
	}

	defer closer.Close()

	var ids []string
	var id string

	for scanner.Scan() {
		id = scanner.Text()
		id = strings.ReplaceAll(id, " ", "\t")
		id = strings.Split(id, "\t")[0]

		if id == "" {
			continue
		}

		ids = append(ids, id)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", fname, err)
	}

	return ids, nil
}

/*WriteIDList write one ID per line */
func WriteIDList(fname string, ids []string) error {
	writer, err := OpenWriter(fname)

	if err != nil {
		return err
	}

	buf := bufio.NewWriter(writer)

	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteRune('\n')
	}

	if err = buf.Flush(); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

/*CountNbLines count nb lines in a file*/
func CountNbLines(filename string) (int, error) {
	reader, file, err := OpenReader(filename)

	if err != nil {
		return 0, err
	}

	defer file.Close()

	nbLines := 0

	for reader.Scan() {
		nbLines++
	}

	return nbLines, reader.Err()
}

/*Timer return a function reporting the time elapsed since its creation */
func Timer() func() time.Duration {
	tStart := time.Now()

	return func() time.Duration {
		return time.Since(tStart)
	}
}
