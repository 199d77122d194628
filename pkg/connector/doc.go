// Package connector groups the pieces that move rows in and out of sqlport.
//
// # Architecture Overview
//
//   - core: the RowSource and Sink contracts, connection parameters, sink
//     options and capabilities.
//
//   - registry: maps driver names to source factories and format names to
//     sink factories. Connector packages register themselves from init, so
//     a binary only needs to blank-import the ones it ships.
//
//   - sources: row sources. postgresql talks to pgx directly; mysql, sqlite
//     and snowflake share the database/sql adapter in sqldb; bigquery reads
//     query results through the BigQuery client.
//
//   - destinations: sinks for csv, tsv, json, jsonl, html, text,
//     text-vertical, xlsx, sqlite, parquet and avro.
//
// # Sources
//
// A source is opened with a query and is a forward-only cursor from then on.
// Its schema is known before the first row. Backend values are converted by
// one function per backend into models.Value; a value that has no faithful
// representation is a conversion error, never a silent null.
//
// # Sinks
//
// A sink declares its Capabilities. Streaming sinks write as rows arrive and
// are flushed periodically; buffered sinks need the whole result and may
// impose a row limit. When an export fails after Begin, sinks with the
// finalize policy are ended with the cause and mark the output incomplete,
// while sinks with the discard policy have their output dropped.
//
//	sink, err := registry.CreateSink("csv", core.Options{"delimiter": ";"})
//	if err != nil {
//	    return err
//	}
//	if err := sink.Begin(ctx, src.Schema(), w); err != nil {
//	    return err
//	}
//	for {
//	    row, err := src.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	    sink.WriteRow(ctx, row)
//	}
//	return sink.End(ctx, nil)
//
// The export pipeline in internal/pipeline does exactly this, plus
// flushing, row limits, progress and failure handling.
package connector
