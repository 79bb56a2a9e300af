package sampleutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
)

/*INDEXFILE collection index: one "sample_id<TAB>relative_dir" per line */
const INDEXFILE = "samples.tsv"

/*ErrEmptyIndex the collection root lists no sample */
var ErrEmptyIndex = errors.New("collection holds no sample")

/*GroupPattern named study grouping matched by substring on the sample ID */
type GroupPattern = utils.GroupPattern

/*Entry a sample of a collection, loaded on demand */
type Entry struct {
	ID     string
	Dir    string
	sample *Sample
}

/*Preloaded entry wrapping a sample already in memory */
func Preloaded(sample *Sample) Entry {
	return Entry{ID: sample.ID, sample: sample}
}

/*SampleID id of the sample */
func (e Entry) SampleID() string {
	return e.ID
}

/*Load read the sample */
func (e Entry) Load() (*Sample, error) {
	if e.sample != nil {
		return e.sample, nil
	}

	return LoadSample(e.Dir, e.ID)
}

/*Collection samples of a collection root, sorted by id */
type Collection struct {
	Root    string
	Entries []Entry
}

/*OpenCollection list the samples of a root directory. Samples are only listed here;
reading errors surface per sample from Entry.Load */
func OpenCollection(root string) (*Collection, error) {
	collection := &Collection{Root: root}
	indexFile := filepath.Join(root, INDEXFILE)

	if _, err := os.Stat(indexFile); err == nil {
		if collection.Entries, err = readIndex(root, indexFile); err != nil {
			return nil, err
		}
	} else {
		dirs, err := os.ReadDir(root)

		if err != nil {
			return nil, fmt.Errorf("collection root: %w", err)
		}

		for _, dir := range dirs {
			if !dir.IsDir() {
				continue
			}

			sampleDir := filepath.Join(root, dir.Name())

			if _, err := os.Stat(filepath.Join(sampleDir, MATRIXFILE)); err == nil {
				collection.Entries = append(collection.Entries, Entry{ID: dir.Name(), Dir: sampleDir})
			}
		}
	}

	if len(collection.Entries) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrEmptyIndex)
	}

	sort.Slice(collection.Entries, func(i, j int) bool {
		return collection.Entries[i].ID < collection.Entries[j].ID
	})

	return collection, nil
}

func readIndex(root, fname string) ([]Entry, error) {
	scanner, closer, err := utils.OpenReader(fname)

	if err != nil {
		return nil, err
	}

	defer closer.Close()

	var entries []Entry
	seen := make(map[string]bool)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		split := strings.Split(line, "\t")
		id, rel := split[0], split[0]

		if len(split) > 1 && split[1] != "" {
			rel = split[1]
		}

		if seen[id] {
			return nil, fmt.Errorf("%s: sample %s listed twice", fname, id)
		}

		seen[id] = true

		if !filepath.IsAbs(rel) {
			rel = filepath.Join(root, rel)
		}

		entries = append(entries, Entry{ID: id, Dir: rel})
	}

	return entries, scanner.Err()
}

/*WriteIndex write the samples.tsv index of a collection root */
func WriteIndex(root string, entries []Entry) error {
	writer, err := utils.OpenWriter(filepath.Join(root, INDEXFILE))

	if err != nil {
		return err
	}

	for _, entry := range entries {
		rel, err := filepath.Rel(root, entry.Dir)

		if err != nil {
			rel = entry.Dir
		}

		if _, err = fmt.Fprintf(writer, "%s\t%s\n", entry.ID, rel); err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}

/*IDs sample ids */
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.Entries))

	for i, entry := range c.Entries {
		ids[i] = entry.ID
	}

	return ids
}

/*Get the entry of a sample */
func (c *Collection) Get(id string) (Entry, bool) {
	pos := sort.Search(len(c.Entries), func(i int) bool { return c.Entries[i].ID >= id })

	if pos < len(c.Entries) && c.Entries[pos].ID == id {
		return c.Entries[pos], true
	}

	return Entry{}, false
}

/*Partition group sample ids by substring patterns. Groups are not exclusive and
unmatched samples belong to no group */
func (c *Collection) Partition(groups []GroupPattern) map[string][]string {
	partition := make(map[string][]string, len(groups))

	for _, group := range groups {
		for _, entry := range c.Entries {
			if strings.Contains(entry.ID, group.Pattern) {
				partition[group.Name] = append(partition[group.Name], entry.ID)
			}
		}
	}

	return partition
}

/*Select entries of the given ids, in collection order */
func (c *Collection) Select(ids []string) []Entry {
	wanted := make(map[string]bool, len(ids))

	for _, id := range ids {
		wanted[id] = true
	}

	var entries []Entry

	for _, entry := range c.Entries {
		if wanted[entry.ID] {
			entries = append(entries, entry)
		}
	}

	return entries
}

/*ParseSampleMeta study and stage of a sample id. The pattern matches the stage suffix and
captures the stage code; the study is what precedes the match. Without a match the whole
id is the study and the stage is empty */
func ParseSampleMeta(id string, pattern *regexp.Regexp) (study, stage string) {
	match := pattern.FindStringSubmatchIndex(id)

	if match == nil {
		return id, ""
	}

	study = id[:match[0]]

	if len(match) >= 4 && match[2] >= 0 {
		stage = strings.ToUpper(id[match[2]:match[3]])
	}

	return study, stage
}
