package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// Vendor feed header contract.
const (
	ColProductName           = "ProductName"
	ColProductDescription    = "ProductDescription"
	ColPackaging             = "PKG"
	ColItemDescription       = "ItemDescription"
	ColUnitPrice             = "UnitPrice"
	ColManufacturerItemCode  = "ManufacturerItemCode"
	ColItemID                = "ItemID"
	ColItemImageURL          = "ItemImageURL"
	ColImageFileName         = "ImageFileName"
	ColCategoryID            = "CategoryID"
	ColCategoryName          = "CategoryName"
	ColSecondaryCategoryID   = "SecondaryCategoryID"
	ColSecondaryCategoryName = "SecondaryCategoryName"
	ColPrimaryCategoryID     = "PrimaryCategoryID"
	ColPrimaryCategoryName   = "PrimaryCategoryName"
)

var RequiredColumns = []string{
	ColProductName, ColProductDescription, ColPackaging, ColItemDescription, ColUnitPrice,
	ColManufacturerItemCode, ColItemID, ColItemImageURL, ColImageFileName,
	ColCategoryID, ColCategoryName, ColSecondaryCategoryID, ColSecondaryCategoryName,
	ColPrimaryCategoryID, ColPrimaryCategoryName,
}

var (
	ErrEmptyFeed      = errors.New("feed has no header row")
	ErrMissingColumns = errors.New("feed header is missing required columns")
	ErrFieldCount     = errors.New("wrong number of fields")
)

// RowError describes a rejected record. It never stops the read.
type RowError struct {
	Number int
	Line   string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Number, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Config struct {
	// Delimiter separates fields. Fields are never quoted.
	Delimiter string
}

type Reader struct {
	delimiter string
}

func NewReader(cfg Config) *Reader {
	d := cfg.Delimiter
	if d == "" {
		d = "\t"
	}
	return &Reader{delimiter: d}
}

// Stats summarizes one pass over a feed.
type Stats struct {
	Rows     int
	Rejected int
}

// Each streams src, calling onRow for every well-formed record and onReject for records
// whose field count does not match the header. A missing header or required column, a
// read error, or context cancellation aborts the pass.
func (r *Reader) Each(ctx context.Context, src io.Reader, onRow func(model.RawRow), onReject func(*RowError)) (Stats, error) {
	var stats Stats

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	header, err := r.readHeader(sc)
	if err != nil {
		return stats, err
	}

	number := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		number++
		stats.Rows++

		fields := r.split(line)
		if len(fields) != len(header) {
			stats.Rejected++
			if onReject != nil {
				onReject(&RowError{
					Number: number,
					Line:   line,
					Err:    fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), len(header)),
				})
			}
			continue
		}

		row := model.RawRow{Number: number, Fields: make(map[string]string, len(header))}
		for i, col := range header {
			row.Fields[col] = fields[i]
		}
		onRow(row)
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read feed: %w", err)
	}

	return stats, nil
}

// EachFile opens path and streams it through Each.
func (r *Reader) EachFile(ctx context.Context, path string, onRow func(model.RawRow), onReject func(*RowError)) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	return r.Each(ctx, f, onRow, onReject)
}

func (r *Reader) readHeader(sc *bufio.Scanner) ([]string, error) {
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		header := r.split(strings.TrimPrefix(line, "\ufeff"))

		present := make(map[string]struct{}, len(header))
		for _, h := range header {
			present[h] = struct{}{}
		}
		var missing []string
		for _, col := range RequiredColumns {
			if _, ok := present[col]; !ok {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
		}
		return header, nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feed header: %w", err)
	}
	return nil, ErrEmptyFeed
}

func (r *Reader) split(line string) []string {
	fields := strings.Split(line, r.delimiter)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
