// Package extract reads the raw datasets from an HTTP endpoint, a directory
// of delimited files or a fake generator, falling back to the last cached
// copy when the source fails.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"order-etl/internal/schema"
)

// DefaultBaseURL serves one JSON array per dataset at <base>/<name>.
const DefaultBaseURL = "https://etl-server.fly.dev"

// Datasets is the list of raw datasets the pipeline extracts.
var Datasets = []string{
	schema.TableOrders,
	schema.TableOrderItems,
	schema.TableCustomers,
	schema.TableProducts,
	schema.TableBrands,
	schema.TableCategories,
	schema.TableStores,
	schema.TableStaffs,
	schema.TableStocks,
}

// Source produces one raw dataset by name.
type Source interface {
	Kind() string
	// Remote reports whether fetched data should be written to the cache.
	Remote() bool
	Fetch(ctx context.Context, name string) (*schema.Dataset, error)
}

// HTTPSource downloads datasets as JSON arrays of objects.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a source with a client bounded by timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Kind() string { return "http" }

func (s *HTTPSource) Remote() bool { return true }

func (s *HTTPSource) Fetch(ctx context.Context, name string) (*schema.Dataset, error) {
	url := s.BaseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("GET %s: decode body: %w", url, err)
	}

	rows := make([]schema.Row, len(records))
	for i, r := range records {
		rows[i] = schema.Row(r)
	}
	return schema.NewDataset(name, nil, rows), nil
}

// CSVSource reads <Dir>/<name>.csv files with a header row.
type CSVSource struct {
	Dir       string
	Delimiter rune
}

func (s *CSVSource) Kind() string { return "csv" }

func (s *CSVSource) Remote() bool { return false }

func (s *CSVSource) Fetch(ctx context.Context, name string) (*schema.Dataset, error) {
	f, err := os.Open(filepath.Join(s.Dir, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCSV(name, f, s.Delimiter)
}

// NewSource builds the source named by kind.
func NewSource(kind, baseURL, dir string, delimiter rune, timeout time.Duration, fakeSeed int64, fakeOrders int) (Source, error) {
	switch strings.ToLower(kind) {
	case "", "http":
		return NewHTTPSource(baseURL, timeout), nil
	case "csv":
		if dir == "" {
			return nil, fmt.Errorf("csv source requires a directory")
		}
		return &CSVSource{Dir: dir, Delimiter: delimiter}, nil
	case "fake":
		return NewFakeSource(fakeSeed, fakeOrders), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", kind)
	}
}
