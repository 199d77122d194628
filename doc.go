// Package sqlport is a command-line exporter for relational databases. It
// runs a query against PostgreSQL, MySQL, SQLite, Snowflake or BigQuery and
// streams the result into CSV, JSON, HTML, console text, XLSX, SQLite,
// Parquet or Avro, written to a file, stdout, S3 or GCS.
//
// # Architecture
//
// Every backend value is normalized into one closed value model
// (pkg/models). Row sources (pkg/connector/sources) pull rows lazily from
// the driver cursor; sinks (pkg/connector/destinations) render them. The
// export pipeline (internal/pipeline) connects the two synchronously, so
// memory use does not depend on the size of the result.
//
// Sinks declare whether they stream or need the whole result, and whether
// a failed export leaves a finalized document marked incomplete or no
// output at all. The pipeline honours both.
//
// Connections come from named profiles (pkg/profile) that inherit fields
// from a parent and may unset inherited ones.
//
// # Quick Start
//
//	sqlport export --driver sqlite -d app.db -q 'SELECT * FROM users' -f csv -o users.csv.gz
//	sqlport export -p prod --query-file report.sql -f xlsx -o report.xlsx
//	sqlport run --jobs nightly.yaml
//
// # Package Organization
//
//   - cmd/sqlport: the command-line interface
//   - internal/pipeline: export pipeline, job runner and progress hub
//   - pkg/models: values, rows, schemas, display text
//   - pkg/connector: source and sink contracts, registry and adapters
//   - pkg/profile: profile inheritance tree
//   - pkg/catalog: schema browsing tree
//   - pkg/config: settings, profile and job files
//   - pkg/output, pkg/compression: output targets
//   - pkg/errors, pkg/logger, pkg/metrics, pkg/observability: ambient stack
package sqlport
