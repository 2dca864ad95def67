package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	CollectionName = "oncology_reference"
	maxChunkChars  = 1200
)

// Passage is a retrieved reference chunk.
type Passage struct {
	ID         string
	Source     string
	Content    string
	Similarity float32
}

// Store is the reference corpus used to ground case analysis.
type Store struct {
	collection    *chromem.Collection
	minSimilarity float32
	log           *logrus.Logger
}

// NewStore opens the chromem database under dir. An empty dir keeps the
// store in memory.
func NewStore(dir string, embed chromem.EmbeddingFunc, minSimilarity float32, log *logrus.Logger) (*Store, error) {
	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, errors.Wrapf(err, "open knowledge db %s", dir)
		}
	}

	collection, err := db.GetOrCreateCollection(CollectionName, nil, embed)
	if err != nil {
		return nil, errors.Wrap(err, "open knowledge collection")
	}
	return &Store{collection: collection, minSimilarity: minSimilarity, log: log}, nil
}

func (s *Store) Count() int {
	return s.collection.Count()
}

// Ingest splits a markdown or text file into paragraph chunks and upserts
// them. Re-ingesting the same file replaces its chunks by id.
func (s *Store) Ingest(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", path)
	}
	return s.AddText(ctx, filepath.Base(path), string(raw))
}

func (s *Store) AddText(ctx context.Context, source, text string) (int, error) {
	chunks := SplitParagraphs(text, maxChunkChars)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Metadata: map[string]string{"source": source},
			Content:  chunk,
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, errors.Wrapf(err, "add %s", source)
	}
	s.log.WithFields(logrus.Fields{"source": source, "chunks": len(docs)}).Info("knowledge ingested")
	return len(docs), nil
}

// Search returns up to k passages at or above the similarity floor, best first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	n := s.collection.Count()
	if n == 0 || k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "query knowledge")
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		if r.Similarity < s.minSimilarity {
			continue
		}
		passages = append(passages, Passage{
			ID:         r.ID,
			Source:     r.Metadata["source"],
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return passages, nil
}

// SplitParagraphs groups blank-line separated paragraphs into chunks of at
// most maxChars. A single longer paragraph becomes its own chunk.
func SplitParagraphs(text string, maxChars int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}
