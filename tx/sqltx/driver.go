/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sqltx implements a transaction driver over database/sql. The mysql
// and postgres drivers are registered, other drivers can be used by opening
// the *sql.DB yourself and calling NewDriver.
//
// Package sqltx 基于 database/sql 的事务驱动。
package sqltx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rulego/weave/tx"
	"github.com/rulego/weave/utils/maps"
)

const (
	// DriverMysql is the mysql driver name.
	DriverMysql = "mysql"
	// DriverPostgres is the postgres driver name.
	DriverPostgres = "postgres"
)

// savepointCounter keeps savepoint names unique across transactions
var savepointCounter atomic.Uint64

// Config configures Open.
type Config struct {
	// DriverName 数据库驱动名称，mysql或postgres
	DriverName string `mapstructure:"driverName"`
	// Dsn 数据库连接配置，参考sql.Open参数
	Dsn string `mapstructure:"dsn"`
	// PoolSize 连接池大小
	PoolSize int `mapstructure:"poolSize"`
}

// DecodeConfig decodes a Config from a configuration map.
func DecodeConfig(m map[string]interface{}) (Config, error) {
	cfg := Config{DriverName: DriverMysql}
	err := maps.Map2Struct(m, &cfg)
	return cfg, err
}

// Driver begins database/sql transactions and gives transactional code the
// executor bound to its context.
//
// Driver 数据库事务驱动。
type Driver struct {
	db         *sql.DB
	driverName string
}

var _ tx.Driver = (*Driver)(nil)

// Open opens a database described by cfg.
func Open(cfg Config) (*Driver, error) {
	if cfg.DriverName == "" {
		cfg.DriverName = DriverMysql
	}
	if cfg.Dsn == "" {
		return nil, errors.New("dsn can not be empty")
	}
	db, err := sql.Open(cfg.DriverName, cfg.Dsn)
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
	}
	return NewDriver(db, cfg.DriverName), nil
}

// NewDriver creates a driver over db. driverName selects the placeholder
// style, "?" statements are rewritten to $n for postgres.
func NewDriver(db *sql.DB, driverName string) *Driver {
	return &Driver{db: db, driverName: driverName}
}

// DB returns the database.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Begin implements tx.Driver.
func (d *Driver) Begin(ctx context.Context, attr *tx.Attribute) (tx.Transaction, error) {
	opts := &sql.TxOptions{ReadOnly: attr.ReadOnly, Isolation: isolationLevel(attr.Isolation)}
	t, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: t}, nil
}

// Executor runs statements.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor returns the *sql.Tx of the transaction bound to ctx, or the
// database when ctx carries none.
func (d *Driver) Executor(ctx context.Context) Executor {
	if t, ok := tx.Resource(ctx, d); ok {
		if st, ok := t.(*Transaction); ok {
			return st.tx
		}
	}
	return d.db
}

// Exec runs a statement in the transaction of ctx and returns the number of affected rows.
func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := d.Executor(ctx).ExecContext(ctx, d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query runs a query in the transaction of ctx and returns one map per row.
// []byte column values are returned as strings.
func (d *Driver) Query(ctx context.Context, query string, args ...any) ([]map[string]interface{}, error) {
	rows, err := d.Executor(ctx).QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(columns))
	for i := range values {
		var v interface{}
		values[i] = &v
	}
	result := make([]map[string]interface{}, 0)
	for rows.Next() {
		if err = rows.Scan(values...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			v := *(values[i].(*interface{}))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[column] = v
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// rebind 转postgres风格占位符
func (d *Driver) rebind(query string) string {
	if d.driverName != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 1
	for _, r := range query {
		if r == '?' {
			sb.WriteString(fmt.Sprintf("$%d", n))
			n++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isolationLevel(i tx.Isolation) sql.IsolationLevel {
	switch i {
	case tx.IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case tx.IsolationReadCommitted:
		return sql.LevelReadCommitted
	case tx.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case tx.IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// Transaction is a database/sql transaction with savepoint support.
type Transaction struct {
	tx *sql.Tx
}

var (
	_ tx.Transaction      = (*Transaction)(nil)
	_ tx.SavepointManager = (*Transaction)(nil)
)

// Tx returns the underlying *sql.Tx.
func (t *Transaction) Tx() *sql.Tx {
	return t.tx
}

// Commit implements tx.Transaction.
func (t *Transaction) Commit(context.Context) error {
	return t.tx.Commit()
}

// Rollback implements tx.Transaction.
func (t *Transaction) Rollback(context.Context) error {
	return t.tx.Rollback()
}

// CreateSavepoint implements tx.SavepointManager.
func (t *Transaction) CreateSavepoint(ctx context.Context) (any, error) {
	name := fmt.Sprintf("sp_%d", savepointCounter.Add(1))
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	return name, nil
}

// RollbackToSavepoint implements tx.SavepointManager.
func (t *Transaction) RollbackToSavepoint(ctx context.Context, savepoint any) error {
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", savepoint)); err != nil {
		return fmt.Errorf("failed to rollback to savepoint: %w", err)
	}
	return nil
}

// ReleaseSavepoint implements tx.SavepointManager.
func (t *Transaction) ReleaseSavepoint(ctx context.Context, savepoint any) error {
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", savepoint)); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
