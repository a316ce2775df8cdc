package dbclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"bqgate/internal/domain"
	"bqgate/internal/transcode"
)

const (
	defaultMaxResults   = 1000
	defaultQueryTimeout = 30 * time.Second
	pollInterval        = 500 * time.Millisecond
)

// bigQueryConnector runs standard-SQL statements through jobs.query.
type bigQueryConnector struct {
	svc        *bigquery.Service
	project    string
	location   string
	maxResults int64
	timeout    time.Duration
	poll       time.Duration
}

func newBigQueryConnector(ctx context.Context, b *domain.Backend) (*bigQueryConnector, error) {
	if b.Project == "" {
		return nil, fmt.Errorf("bigquery backend %q: project is required", b.Name)
	}

	opts, err := bigQueryClientOptions(ctx, b)
	if err != nil {
		return nil, err
	}
	svc, err := bigquery.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}

	c := &bigQueryConnector{
		svc:        svc,
		project:    b.Project,
		location:   b.Location,
		maxResults: b.MaxResults,
		timeout:    b.Timeout,
		poll:       pollInterval,
	}
	if c.maxResults <= 0 {
		c.maxResults = defaultMaxResults
	}
	if c.timeout <= 0 {
		c.timeout = defaultQueryTimeout
	}
	return c, nil
}

// bigQueryClientOptions picks credentials: none for an endpoint override,
// a service account key file when configured, application default
// credentials otherwise.
func bigQueryClientOptions(ctx context.Context, b *domain.Backend) ([]option.ClientOption, error) {
	switch {
	case b.Endpoint != "":
		return []option.ClientOption{option.WithEndpoint(b.Endpoint), option.WithoutAuthentication()}, nil
	case b.CredentialsFile != "":
		data, err := os.ReadFile(b.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, bigquery.BigqueryScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	default:
		creds, err := google.FindDefaultCredentials(ctx, bigquery.BigqueryScope)
		if err != nil {
			return nil, fmt.Errorf("default credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}
}

func (c *bigQueryConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.svc.Datasets.List(c.project).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	return nil
}

func (c *bigQueryConnector) Run(ctx context.Context, query string) (*transcode.Page, error) {
	useLegacySQL := false
	resp, err := c.svc.Jobs.Query(c.project, &bigquery.QueryRequest{
		Query:        query,
		UseLegacySql: &useLegacySQL,
		MaxResults:   c.maxResults,
		TimeoutMs:    c.timeout.Milliseconds(),
		Location:     c.location,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("jobs.query: %w", err)
	}
	if resp.JobComplete {
		return pageFromResponse(resp.Schema, resp.Rows)
	}
	if resp.JobReference == nil {
		return nil, fmt.Errorf("jobs.query: incomplete job without reference")
	}
	return c.waitForResults(ctx, resp.JobReference)
}

// waitForResults polls jobs.getQueryResults until the job completes or ctx
// is done.
func (c *bigQueryConnector) waitForResults(ctx context.Context, ref *bigquery.JobReference) (*transcode.Page, error) {
	location := ref.Location
	if location == "" {
		location = c.location
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.poll):
		}

		call := c.svc.Jobs.GetQueryResults(c.project, ref.JobId).
			MaxResults(c.maxResults).
			TimeoutMs(c.timeout.Milliseconds()).
			Context(ctx)
		if location != "" {
			call = call.Location(location)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("jobs.getQueryResults %s: %w", ref.JobId, err)
		}
		if res.JobComplete {
			return pageFromResponse(res.Schema, res.Rows)
		}
	}
}

func (c *bigQueryConnector) Close() error {
	return nil
}

// pageFromResponse turns typed API rows back into classified cells. Each
// cell's value is re-marshalled on its own so NULLs stay explicit nulls.
func pageFromResponse(schema *bigquery.TableSchema, rows []*bigquery.TableRow) (*transcode.Page, error) {
	if schema == nil {
		return nil, transcode.ErrMissingSchema
	}
	page := &transcode.Page{
		Schema: transcode.Schema{Fields: fieldsFromSchema(schema.Fields)},
		Rows:   make([]transcode.Cell, 0, len(rows)),
	}
	for i, row := range rows {
		if row == nil {
			page.Rows = append(page.Rows, nil)
			continue
		}
		cells := make([]transcode.Cell, 0, len(row.F))
		for _, cell := range row.F {
			var v any
			if cell != nil {
				v = cell.V
			}
			raw, err := transcode.EncodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			cells = append(cells, transcode.Wrap(raw))
		}
		page.Rows = append(page.Rows, transcode.Row(cells...))
	}
	return page, nil
}

func fieldsFromSchema(in []*bigquery.TableFieldSchema) []transcode.Field {
	out := make([]transcode.Field, 0, len(in))
	for _, f := range in {
		if f == nil {
			continue
		}
		out = append(out, transcode.Field{
			Name:   f.Name,
			Type:   transcode.FieldType(f.Type),
			Mode:   transcode.FieldMode(f.Mode),
			Fields: fieldsFromSchema(f.Fields),
		})
	}
	return out
}
