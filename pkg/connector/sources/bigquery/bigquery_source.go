// Package bigquery reads query results from Google BigQuery.
//
// BigQuery has no session, init statements or information schema browsing
// through this tool; schema browsing reports a capability error.
package bigquery

import (
	"context"
	stderrors "errors"
	"io"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Driver is the profile driver name.
const Driver = "bigquery"

// Profile fields read by this source.
const (
	FieldProject         = "project"
	FieldLocation        = "location"
	FieldCredentialsFile = "credentials_file"
	FieldAccessToken     = "access_token"
	FieldRefreshToken    = "refresh_token"
	FieldClientID        = "client_id"
	FieldClientSecret    = "client_secret"
	FieldEndpoint        = "endpoint"
)

const tokenURL = "https://oauth2.googleapis.com/token"

// Source implements core.RowSource over a finished query job.
type Source struct {
	client *bigquery.Client
	it     *bigquery.RowIterator
	fields bigquery.Schema
	schema *models.Schema

	total    int64
	hasTotal bool
	rowIndex int64
	closed   bool

	logger *zap.Logger
}

// clientOptions picks credentials: a service account file, a static access
// token, a refresh token, or application default credentials.
func clientOptions(ctx context.Context, params core.ConnectionParams) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case params.Extra[FieldCredentialsFile] != "":
		opts = append(opts, option.WithCredentialsFile(params.Extra[FieldCredentialsFile]))
	case params.Extra[FieldAccessToken] != "":
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: params.Extra[FieldAccessToken],
		})))
	case params.Extra[FieldRefreshToken] != "":
		cfg := &oauth2.Config{
			ClientID:     params.Extra[FieldClientID],
			ClientSecret: params.Extra[FieldClientSecret],
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
			Scopes:       []string{bigquery.Scope},
		}
		opts = append(opts, option.WithTokenSource(cfg.TokenSource(ctx, &oauth2.Token{
			RefreshToken: params.Extra[FieldRefreshToken],
		})))
	}
	if ep := params.Extra[FieldEndpoint]; ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
		if params.Extra[FieldCredentialsFile] == "" && params.Extra[FieldAccessToken] == "" && params.Extra[FieldRefreshToken] == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	return opts
}

func (s *Source) newQuery(params core.ConnectionParams, sql string) *bigquery.Query {
	q := s.client.Query(sql)
	q.Location = params.Extra[FieldLocation]
	if params.Database != "" {
		q.DefaultDatasetID = params.Database
		q.DefaultProjectID = s.client.Project()
	}
	return q
}

// Open runs the query job and waits for it to finish so the result schema
// is known before the first row.
func Open(ctx context.Context, params core.ConnectionParams, query core.Query) (core.RowSource, error) {
	project := params.Extra[FieldProject]
	if project == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bigquery needs a project")
	}

	client, err := bigquery.NewClient(ctx, project, clientOptions(ctx, params)...)
	if err != nil {
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeConnection, "failed to create bigquery client").
			WithDetail("project", project)
	}
	s := &Source{
		client: client,
		logger: logger.WithContext(ctx).With(zap.String("component", "bigquery_source")),
	}

	if query.Count {
		n, err := s.count(ctx, params, query.SQL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.total, s.hasTotal = n, true
	}

	runCtx := ctx
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}
	job, err := s.newQuery(params, query.SQL).Run(runCtx)
	if err != nil {
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeConnection, "failed to submit query job").
			WithDetail("query", query.SQL)
	}

	status, err := job.Wait(ctx)
	if err == nil {
		err = status.Err()
	}
	if err != nil {
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "query rejected").
			WithDetail("query", query.SQL).
			WithDetail("job_id", job.ID())
	}

	stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics)
	if !ok {
		s.Close()
		return nil, errors.New(errors.ErrorTypeQuery, "query job reported no result schema").
			WithDetail("job_id", job.ID())
	}
	s.fields = stats.Schema

	s.it, err = job.Read(ctx)
	if err != nil {
		s.Close()
		return nil, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "failed to read query results").
			WithDetail("job_id", job.ID())
	}

	cols := make([]models.Column, len(s.fields))
	for i, f := range s.fields {
		cols[i] = models.Column{
			Name:         f.Name,
			DatabaseType: databaseType(f),
			Kind:         KindForField(f),
			Nullable:     !f.Required,
		}
	}
	s.schema = models.NewSchema(cols...)

	s.logger.Debug("query job finished", zap.String("job_id", job.ID()), zap.Int("columns", len(cols)))
	return s, nil
}

func (s *Source) count(ctx context.Context, params core.ConnectionParams, sql string) (int64, error) {
	countSQL := "SELECT count(*) FROM (" + sql + ")"
	it, err := s.newQuery(params, countSQL).Read(ctx)
	if err != nil {
		return 0, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "count query failed").
			WithDetail("query", countSQL)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil {
		return 0, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "count query failed").
			WithDetail("query", countSQL)
	}
	n, _ := row[0].(int64)
	return n, nil
}

func databaseType(f *bigquery.FieldSchema) string {
	if f.Repeated {
		return "ARRAY<" + string(f.Type) + ">"
	}
	return string(f.Type)
}

// Schema returns the result set schema
func (s *Source) Schema() *models.Schema { return s.schema }

// EstimatedRows returns the pre-counted row total when one was requested.
func (s *Source) EstimatedRows() (int64, bool) { return s.total, s.hasTotal }

// Next returns the next row or io.EOF. Pages are fetched by the iterator
// as they are consumed.
func (s *Source) Next(ctx context.Context) (models.Row, error) {
	if s.closed {
		return models.Row{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return models.Row{}, errors.Wrap(err, errors.ErrorTypeCancelled, "export cancelled")
	}

	var raw []bigquery.Value
	if err := s.it.Next(&raw); err != nil {
		if stderrors.Is(err, iterator.Done) {
			return models.Row{}, io.EOF
		}
		return models.Row{}, core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "result stream failed")
	}
	s.rowIndex++

	values := make([]models.Value, len(raw))
	for i, r := range raw {
		v, err := ConvertValue(s.schema.Columns[i], i, s.fields[i], r)
		if err != nil {
			return models.Row{}, errors.Annotate(err, errors.ErrorTypeConversion, nil)
		}
		values[i] = v
	}
	return models.Row{Schema: s.schema, Values: values}, nil
}

// Close closes the client
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("bigquery source closed", zap.Int64("rows_read", s.rowIndex))
	return s.client.Close()
}
