package main

// Drivers and formats register themselves with the connector registry.
import (
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/avro"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/csv"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/html"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/json"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/parquet"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/sqlite"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/text"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/xlsx"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/bigquery"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/mysql"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/postgresql"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/snowflake"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/sqlite"
)
