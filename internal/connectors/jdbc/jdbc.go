//
// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jdbc reads a relational table or query into a columnar table. Options
// follow Spark's JDBC data source: url, dbtable or query, user and password.
package jdbc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/apache/arrow/go/v12/arrow"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connectors"
)

const Format = "jdbc"

var openDB = func(driverName, dsn string) (*sqlx.DB, error) {
	var system attribute.KeyValue
	switch driverName {
	case "sqlserver":
		system = semconv.DBSystemMSSQL
	default:
		system = semconv.DBSystemPostgreSQL
	}
	db, err := otelsql.Open(driverName, dsn, otelsql.WithAttributes(system))
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, driverName), nil
}

type Source struct {
	logger *zap.Logger
}

func NewSource(logger *zap.Logger) *Source {
	return &Source{logger: logger.Named("jdbc")}
}

func (s *Source) Load(ctx context.Context, options connectors.Options) (*columnar.Table, error) {
	jdbcURL, err := options.Require("url")
	if err != nil {
		return nil, err
	}
	user, _ := options.Get("user")
	password, _ := options.Get("password")
	driverName, dsn, err := TranslateURL(jdbcURL, user, password)
	if err != nil {
		return nil, err
	}
	query, err := buildQuery(options)
	if err != nil {
		return nil, err
	}

	db, err := openDB(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}
	defer db.Close()

	s.logger.Debug("running jdbc query", zap.String("driver", driverName), zap.String("query", query))
	return queryTable(ctx, db, query)
}

// TranslateURL turns a JDBC url into a database/sql driver name and DSN.
// Supported subprotocols are sqlserver (go-mssqldb) and postgresql (pgx).
func TranslateURL(jdbcURL, user, password string) (string, string, error) {
	rest, ok := strings.CutPrefix(jdbcURL, "jdbc:")
	if !ok {
		return "", "", &connectors.InvalidOptionError{Key: "url", Reason: "must start with jdbc:"}
	}
	switch {
	case strings.HasPrefix(rest, "sqlserver://"):
		dsn, err := sqlServerDSN(strings.TrimPrefix(rest, "sqlserver://"), user, password)
		return "sqlserver", dsn, err
	case strings.HasPrefix(rest, "postgresql://"):
		dsn, err := postgresDSN(strings.TrimPrefix(rest, "postgresql://"), user, password)
		return "pgx", dsn, err
	default:
		return "", "", &connectors.InvalidOptionError{Key: "url", Reason: fmt.Sprintf("unsupported subprotocol in %q", jdbcURL)}
	}
}

// sqlServerDSN converts "host[\instance][:port][;key=value...]" to a go-mssqldb URL.
func sqlServerDSN(target, user, password string) (string, error) {
	parts := strings.Split(target, ";")
	server := parts[0]
	if server == "" {
		return "", &connectors.InvalidOptionError{Key: "url", Reason: "missing server name"}
	}

	u := &url.URL{Scheme: "sqlserver"}
	query := url.Values{}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		switch strings.ToLower(key) {
		case "databasename", "database":
			query.Set("database", value)
		case "user":
			if user == "" {
				user = value
			}
		case "password":
			if password == "" {
				password = value
			}
		case "trustservercertificate":
			query.Set("TrustServerCertificate", value)
		case "applicationname":
			query.Set("app name", value)
		case "logintimeout":
			query.Set("connection timeout", value)
		default:
			query.Set(key, value)
		}
	}

	host, port, hasPort := strings.Cut(server, ":")
	if i := strings.IndexByte(host, '\\'); i >= 0 {
		u.Path = host[i+1:]
		host = host[:i]
	}
	u.Host = host
	if hasPort {
		u.Host = host + ":" + port
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func postgresDSN(target, user, password string) (string, error) {
	u, err := url.Parse("postgres://" + target)
	if err != nil {
		return "", &connectors.InvalidOptionError{Key: "url", Reason: err.Error()}
	}
	query := u.Query()
	if user == "" {
		user = query.Get("user")
	}
	if password == "" {
		password = query.Get("password")
	}
	query.Del("user")
	query.Del("password")
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func buildQuery(options connectors.Options) (string, error) {
	table, hasTable := options.Get("dbtable")
	query, hasQuery := options.Get("query")
	switch {
	case hasTable && hasQuery:
		return "", &connectors.InvalidOptionError{Key: "query", Reason: "cannot be combined with dbtable"}
	case hasTable && table != "":
		return "SELECT * FROM " + table, nil
	case hasQuery && query != "":
		return "SELECT * FROM (" + query + ") SPARK_GEN_SUBQ_0", nil
	default:
		return "", &connectors.InvalidOptionError{Key: "dbtable", Reason: "one of dbtable or query is required"}
	}
}

func queryTable(ctx context.Context, db *sqlx.DB, query string) (*columnar.Table, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	fields := make([]arrow.Field, len(columnTypes))
	databaseTypes := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		databaseTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		nullable, ok := ct.Nullable()
		fields[i] = arrow.Field{
			Name:     ct.Name(),
			Type:     arrowType(databaseTypes[i]),
			Nullable: nullable || !ok,
		}
	}

	table := &columnar.Table{Schema: arrow.NewSchema(fields, nil)}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i], err = convertValue(v, fields[i].Type, databaseTypes[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", fields[i].Name, err)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return table, nil
}

func arrowType(databaseType string) arrow.DataType {
	switch databaseType {
	case "INT", "INTEGER", "INT4", "SMALLINT", "INT2", "TINYINT", "SERIAL":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT", "INT8", "BIGSERIAL":
		return arrow.PrimitiveTypes.Int64
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return arrow.PrimitiveTypes.Float64
	case "BIT", "BOOL", "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET", "TIMESTAMP", "TIMESTAMPTZ":
		return columnar.TimestampType
	case "BINARY", "VARBINARY", "IMAGE", "BYTEA":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func convertValue(v any, t arrow.DataType, databaseType string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t.ID() {
	case arrow.INT32:
		i, err := toInt64(v)
		return int32(i), err
	case arrow.INT64:
		return toInt64(v)
	case arrow.FLOAT64:
		return toFloat64(v)
	case arrow.BOOL:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case arrow.DATE32, arrow.TIMESTAMP:
		if x, ok := v.(time.Time); ok {
			return x.UTC(), nil
		}
	case arrow.BINARY:
		switch x := v.(type) {
		case []byte:
			return append([]byte{}, x...), nil
		case string:
			return []byte(x), nil
		}
	case arrow.STRING:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			if databaseType == "UNIQUEIDENTIFIER" {
				var id mssql.UniqueIdentifier
				if err := id.Scan(x); err != nil {
					return nil, err
				}
				return id.String(), nil
			}
			return string(x), nil
		case time.Time:
			return x.UTC().Format(time.RFC3339Nano), nil
		default:
			return fmt.Sprint(x), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to an integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to a double", v)
	}
}
