// Package importer holds the CSV bulk-import pipeline: the extractor turns an
// uploaded file into one queue message per row, the consumer writes queued
// rows to the catalog, and the notifier announces what a batch created.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"

	"catalog-service/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
)

type ObjectStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type RowPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type Extractor struct {
	store     ObjectStore
	publisher RowPublisher
	logger    *slog.Logger
	rows      prometheus.Counter
}

func NewExtractor(store ObjectStore, publisher RowPublisher, logger *slog.Logger, rows prometheus.Counter) *Extractor {
	return &Extractor{
		store:     store,
		publisher: publisher,
		logger:    logger,
		rows:      rows,
	}
}

// Run processes uploaded object keys until the channel closes.
func (e *Extractor) Run(ctx context.Context, keys <-chan string) {
	for key := range keys {
		if err := e.HandleObject(ctx, key); err != nil {
			e.logger.Error("extract uploaded file failed", "key", key, "error", err)
		}
	}
}

// HandleObject streams one uploaded CSV and publishes each row as a queue
// message. Rows are published concurrently and joined before returning; a
// failed publish is logged and skipped, never aborting the rest of the file.
// Keys outside the upload prefix or without the CSV extension are ignored.
func (e *Extractor) HandleObject(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, catalog.UploadPrefix) || !strings.EqualFold(path.Ext(key), catalog.UploadExtension) {
		e.logger.Info("skipping object outside import scope", "key", key)
		return nil
	}

	object, err := e.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open object: %w", err)
	}
	defer object.Close()

	reader := csv.NewReader(object)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}

	var wg sync.WaitGroup
	published := 0
	for rowNum := 1; ; rowNum++ {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			wg.Wait()
			return fmt.Errorf("read csv row %d: %w", rowNum, err)
		}

		payload, err := json.Marshal(rowValues(header, cells))
		if err != nil {
			wg.Wait()
			return fmt.Errorf("marshal csv row %d: %w", rowNum, err)
		}

		wg.Add(1)
		go func(rowNum int, payload []byte) {
			defer wg.Done()
			if err := e.publisher.Publish(ctx, payload); err != nil {
				e.logger.Error("publish import row failed", "key", key, "row", rowNum, "error", err)
				return
			}
			e.rows.Inc()
		}(rowNum, payload)
		published++
	}
	wg.Wait()

	e.logger.Info("import file extracted", "key", key, "rows", published)
	return nil
}

// rowValues maps header names to cell values. Cells that parse as numbers are
// emitted as JSON numbers so the queue payload carries typed fields; anything
// else stays a string.
func rowValues(header, cells []string) map[string]any {
	row := make(map[string]any, len(cells))
	for i, cell := range cells {
		if i >= len(header) {
			break
		}
		name := strings.TrimSpace(header[i])
		if name == "" {
			continue
		}
		// an empty cell is an absent field, letting optional values default
		if cell == "" {
			continue
		}
		if isNumberLiteral(cell) {
			row[name] = json.Number(cell)
		} else {
			row[name] = cell
		}
	}
	return row
}

// isNumberLiteral reports whether a cell can travel as a JSON number verbatim.
// Forms Go parses but JSON forbids, "03" or "+5", stay strings.
func isNumberLiteral(cell string) bool {
	if cell == "" {
		return false
	}
	if _, err := strconv.ParseFloat(cell, 64); err != nil {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(cell), &n) == nil
}
