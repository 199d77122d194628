package connector_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/destinations/csv"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	_ "github.com/ajitpratap0/sqlport/pkg/connector/sources/sqlite"
)

// Example streams a SQLite query into CSV on stdout.
func Example() {
	dir, err := os.MkdirTemp("", "sqlport-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "app.db")
	db, _ := sql.Open("sqlite", path)
	_, _ = db.Exec(`CREATE TABLE langs (name TEXT, year INTEGER); INSERT INTO langs VALUES ('Go', 2009), ('C', 1972)`)
	_ = db.Close()

	ctx := context.Background()
	params := core.ConnectionParams{Driver: "sqlite", Database: path}
	src, err := registry.OpenSource(ctx, params, core.Query{SQL: "SELECT name, year FROM langs ORDER BY year"})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer src.Close()

	sink, err := registry.CreateSink("csv", core.Options{})
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := sink.Begin(ctx, src.Schema(), os.Stdout); err != nil {
		fmt.Println(err)
		return
	}
	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := sink.WriteRow(ctx, row); err != nil {
			fmt.Println(err)
			return
		}
	}
	if err := sink.End(ctx, nil); err != nil {
		fmt.Println(err)
	}

	// Output:
	// name,year
	// C,1972
	// Go,2009
}
