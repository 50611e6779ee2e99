// Package vectorstore keeps an in-memory similarity index over text chunks.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"docextract/internal/logger"
)

const (
	// DefaultK is the number of matches Retrieve returns when k <= 0.
	DefaultK = 4

	batchSize       = 64
	maxConcurrency  = 4
	defaultMaxChars = 1500
	collectionName  = "chunks"
)

// ErrEmptyIndex is returned when searching an index without documents.
var ErrEmptyIndex = errors.New("index has no documents")

// Match is a retrieved text with its cosine similarity to the query.
type Match struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Index is safe for concurrent use.
type Index struct {
	embedder   Embedder
	collection *chromem.Collection

	mu     sync.Mutex
	nextID int

	log zerolog.Logger
}

// NewIndex embeds texts and returns an index over them.
func NewIndex(ctx context.Context, embedder Embedder, texts []string) (*Index, error) {
	idx := &Index{
		embedder: embedder,
		log:      logger.WithComponent("vectorstore"),
	}

	collection, err := chromem.NewDB().CreateCollection(collectionName, nil, idx.embedQuery)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	idx.collection = collection

	if err := idx.Add(ctx, texts...); err != nil {
		return nil, err
	}
	return idx, nil
}

// embedQuery adapts the batch Embedder to a chromem embedding func.
func (x *Index) embedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	return vectors[0], nil
}

// Add embeds and stores more texts. Blank texts are skipped.
func (x *Index) Add(ctx context.Context, texts ...string) error {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	vectors := make([][]float32, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for start := 0; start < len(kept); start += batchSize {
		end := min(start+batchSize, len(kept))
		g.Go(func() error {
			batch, err := x.embedder.Embed(gctx, kept[start:end])
			if err != nil {
				return fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed texts %d-%d: got %d vectors", start, end-1, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	x.mu.Lock()
	first := x.nextID
	x.nextID += len(kept)
	x.mu.Unlock()

	docs := make([]chromem.Document, len(kept))
	for i, t := range kept {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(first + i),
			Content:   t,
			Embedding: vectors[i],
		}
	}
	if err := x.collection.AddDocuments(ctx, docs, maxConcurrency); err != nil {
		return fmt.Errorf("store texts: %w", err)
	}

	x.log.Debug().
		Int("added", len(docs)).
		Int("total", x.collection.Count()).
		Msg("Indexed texts")
	return nil
}

// Len returns the number of indexed texts.
func (x *Index) Len() int {
	return x.collection.Count()
}

// Retrieve returns up to k texts most similar to query, best first.
func (x *Index) Retrieve(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		k = DefaultK
	}
	total := x.Len()
	if total == 0 {
		return nil, ErrEmptyIndex
	}

	results, err := x.collection.Query(ctx, query, min(k, total), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Text: r.Content, Score: float64(r.Similarity)}
	}
	return matches, nil
}

// SplitParagraphs breaks text into blank-line separated chunks of at most
// maxChars bytes. Oversized paragraphs are cut at word boundaries.
func SplitParagraphs(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChars {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, pack(strings.Fields(para), maxChars)...)
	}
	return chunks
}

func pack(words []string, maxChars int) []string {
	var chunks []string
	var b strings.Builder
	for _, w := range words {
		if b.Len() > 0 && b.Len()+1+len(w) > maxChars {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
